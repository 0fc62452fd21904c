package checkin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Evaluate(t *testing.T) {
	dep := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
	w := DefaultWindow()

	cases := []struct {
		now  time.Time
		want EligibilityStatus
	}{
		{time.Date(2025, 11, 19, 11, 0, 0, 0, time.UTC), StatusAvailable},
		{time.Date(2025, 11, 19, 9, 0, 0, 0, time.UTC), StatusTooEarly},
		{time.Date(2025, 11, 19, 8, 0, 0, 0, time.UTC), StatusTooEarly},
		{time.Date(2025, 11, 20, 9, 30, 0, 0, time.UTC), StatusTooLate},
		{dep.Add(-24 * time.Hour), StatusAvailable},
		{dep.Add(-24*time.Hour - time.Nanosecond), StatusTooEarly},
		{dep.Add(-time.Hour), StatusAvailable},
		{dep.Add(-time.Hour + time.Nanosecond), StatusTooLate},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, w.Evaluate(tc.now, dep), tc.now.String())
	}
}

func TestWindow_Monotonic(t *testing.T) {
	dep := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
	w := DefaultWindow()
	order := map[EligibilityStatus]int{StatusTooEarly: 0, StatusAvailable: 1, StatusTooLate: 2}

	prev := StatusTooEarly
	for now := dep.Add(-48 * time.Hour); now.Before(dep.Add(time.Hour)); now = now.Add(7 * time.Minute) {
		got := w.Evaluate(now, dep)
		assert.GreaterOrEqual(t, order[got], order[prev], now.String())
		prev = got
	}
	assert.Equal(t, StatusTooLate, prev)
}
