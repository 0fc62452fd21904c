package checkin

import "time"

type EligibilityStatus string

const (
	StatusTooEarly  EligibilityStatus = "too_early"
	StatusAvailable EligibilityStatus = "available"
	StatusTooLate   EligibilityStatus = "too_late"
)

// Window is the online check-in period relative to departure. Both
// boundaries are inclusive.
type Window struct {
	OpensBefore  time.Duration
	ClosesBefore time.Duration
}

func DefaultWindow() Window {
	return Window{OpensBefore: 24 * time.Hour, ClosesBefore: time.Hour}
}

func (w Window) Evaluate(now, departure time.Time) EligibilityStatus {
	switch {
	case now.Before(departure.Add(-w.OpensBefore)):
		return StatusTooEarly
	case now.After(departure.Add(-w.ClosesBefore)):
		return StatusTooLate
	default:
		return StatusAvailable
	}
}
