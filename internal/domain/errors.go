package domain

import "errors"

// Kind classifies an Error for propagation and transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindState
	KindConflict
	KindDependency
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error carries a stable reason code next to its kind. Sentinels below are
// compared by identity through errors.Is; wrap them with fmt.Errorf to add
// context.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation builds an ad hoc validation error for malformed input.
func Validation(msg string) error {
	return newError(KindValidation, "VALIDATION_ERROR", msg)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf reports the reason code of the first *Error in err's chain.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}

var (
	ErrBookingNotFound   = newError(KindNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrFlightNotFound    = newError(KindNotFound, "FLIGHT_NOT_FOUND", "flight not found")
	ErrPassengerNotFound = newError(KindNotFound, "PASSENGER_NOT_FOUND", "passenger not found in flight segment")
	ErrSegmentNotFound   = newError(KindNotFound, "SEGMENT_NOT_FOUND", "booking has no segment for this flight")
	ErrSeatNotFound      = newError(KindNotFound, "SEAT_NOT_FOUND", "seat not found on this flight")

	ErrBoardingPassNotFound = newError(KindNotFound, "BOARDING_PASS_NOT_FOUND", "boarding pass not issued")

	ErrSeatUnavailable      = newError(KindState, "SEAT_UNAVAILABLE", "seat is not available")
	ErrClassMismatch        = newError(KindState, "CLASS_MISMATCH", "seat class does not match ticket class")
	ErrAlreadyCheckedIn     = newError(KindState, "ALREADY_CHECKED_IN", "passenger is already checked in")
	ErrNoSeatAssigned       = newError(KindState, "NO_SEAT_ASSIGNED", "passenger has no seat assigned")
	ErrBookingNotModifiable = newError(KindState, "BOOKING_NOT_MODIFIABLE", "booking status does not permit seat changes")
	ErrBookingNotConfirmed  = newError(KindState, "BOOKING_NOT_CONFIRMED", "booking is not confirmed")
	ErrPaymentRequired      = newError(KindState, "PAYMENT_REQUIRED", "booking is not paid")
	ErrTooEarly             = newError(KindState, "CHECK_IN_TOO_EARLY", "check-in is not open yet")
	ErrTooLate              = newError(KindState, "CHECK_IN_CLOSED", "check-in has closed")
	ErrAllSkipped           = newError(KindState, "ALL_SKIPPED", "no passengers were checked in")

	ErrSeatAlreadyTaken = newError(KindConflict, "SEAT_ALREADY_TAKEN", "seat was taken by another booking")
	ErrConcurrentUpdate = newError(KindConflict, "CONCURRENT_UPDATE", "booking was modified concurrently, retry")
	ErrSeatAssigned     = newError(KindConflict, "SEAT_ALREADY_ASSIGNED", "passenger already has a seat")

	ErrNotificationFailed = newError(KindDependency, "NOTIFICATION_FAILED", "notification delivery failed")

	ErrForbidden = newError(KindForbidden, "FORBIDDEN", "booking does not belong to caller")
)
