package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake(t *testing.T) {
	start := time.Date(2025, 11, 19, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)
	assert.Equal(t, start, f.Now())

	f.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), f.Now())

	f.Set(start)
	assert.Equal(t, start, f.Now())
}

func TestReal_IsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Real().Now().Location())
}
