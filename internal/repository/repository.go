package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/shopspring/decimal"
)

type FlightRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
}

// SeatAssignment asks the store to claim SeatNumber on FlightID for one
// passenger and charge Fee, in a single conditional write. With
// RequireEmpty the write fails with domain.ErrSeatAssigned if the passenger
// already holds a seat.
type SeatAssignment struct {
	BookingID    string
	FlightID     string
	PassengerID  string
	SeatNumber   string
	Fee          decimal.Decimal
	RequireEmpty bool
}

func (a SeatAssignment) check(b *domain.Booking) error {
	if !a.RequireEmpty {
		return nil
	}
	p, err := b.FindPassenger(a.FlightID, a.PassengerID)
	if err != nil {
		return err
	}
	if p.Ticket.SeatNumber != "" {
		return domain.ErrSeatAssigned
	}
	return nil
}

type SeatRelease struct {
	BookingID   string
	FlightID    string
	PassengerID string
}

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	// AssignSeat claims the seat and records it on the ticket atomically.
	// It returns domain.ErrSeatAlreadyTaken when another active booking
	// holds the seat; nothing is written in that case.
	AssignSeat(ctx context.Context, a SeatAssignment) (*domain.Booking, domain.SeatChange, error)
	ClearSeat(ctx context.Context, r SeatRelease) (*domain.Booking, domain.SeatChange, error)
	// Save persists booking status and passenger check-in state. Seat fields
	// are owned by AssignSeat and ClearSeat. Returns
	// domain.ErrConcurrentUpdate when b.Version is stale.
	Save(ctx context.Context, b *domain.Booking) error
}

// SeatClaim is one row of the per-(flight, seat) reservation ledger.
type SeatClaim struct {
	FlightID    string
	SeatNumber  string
	BookingID   string
	PassengerID string
	ClaimedAt   time.Time
}

type SeatLedger interface {
	// Occupancy lists claims on flightID held by paid confirmed or checked
	// in bookings, keyed by seat number, skipping excludeBookingID.
	Occupancy(ctx context.Context, flightID, excludeBookingID string) (map[string]SeatClaim, error)
}
