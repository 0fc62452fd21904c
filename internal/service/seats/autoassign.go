package seats

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/metrics"
	"github.com/Domenick1991/aircheckin/internal/repository"
)

// seatScore ranks free seats for automatic assignment. Middle seats go
// first so free window and aisle seats stay open for manual selection.
func seatScore(t domain.SeatType) int {
	switch t {
	case domain.SeatTypeMiddle:
		return 3
	case domain.SeatTypeWindow:
		return 2
	case domain.SeatTypeAisle:
		return 1
	}
	return 0
}

// PickSeat returns the best free-of-charge seat of class, scanning rows in
// order and taking the top scored candidate of the first row that has one.
// Ties keep seat-map order.
func PickSeat(flight *domain.Flight, class domain.SeatClass, occupied map[string]struct{}) (domain.Seat, bool) {
	for _, row := range flight.SeatMap {
		var candidates []domain.Seat
		for _, s := range row.Seats {
			if s.Class != class || !s.Price.IsZero() || !isFree(s, occupied) {
				continue
			}
			candidates = append(candidates, s)
		}
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return seatScore(candidates[i].Type) > seatScore(candidates[j].Type)
		})
		return candidates[0], true
	}
	return domain.Seat{}, false
}

type AutoAssigner struct {
	bookings  repository.BookingRepository
	inventory *Inventory
	attempts  int
	log       *slog.Logger
}

func NewAutoAssigner(bookings repository.BookingRepository, inventory *Inventory, attempts int, log *slog.Logger) *AutoAssigner {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &AutoAssigner{bookings: bookings, inventory: inventory, attempts: attempts, log: log}
}

// AssignSeat picks a free seat in the passenger's ticket class and claims
// it. A lost race re-reads occupancy and tries again, up to the configured
// number of attempts. ok is false when no seat could be claimed; the
// returned booking is then the one passed in.
func (a *AutoAssigner) AssignSeat(ctx context.Context, b *domain.Booking, flight *domain.Flight, passengerID string) (*domain.Booking, domain.Seat, bool, error) {
	p, err := b.FindPassenger(flight.ID, passengerID)
	if err != nil {
		return b, domain.Seat{}, false, err
	}

	for attempt := 1; attempt <= a.attempts; attempt++ {
		// Seats of fellow passengers count as occupied; this passenger has
		// none of its own yet.
		occupied, err := a.inventory.ComputeOccupancy(ctx, flight.ID, "")
		if err != nil {
			return b, domain.Seat{}, false, err
		}
		seat, found := PickSeat(flight, p.Ticket.SeatClass, occupied)
		if !found {
			metrics.AutoAssignment("none_available")
			return b, domain.Seat{}, false, nil
		}

		updated, _, err := a.bookings.AssignSeat(ctx, repository.SeatAssignment{
			BookingID:    b.ID,
			FlightID:     flight.ID,
			PassengerID:  passengerID,
			SeatNumber:   seat.SeatNumber,
			Fee:          seat.Price,
			RequireEmpty: true,
		})
		if errors.Is(err, domain.ErrSeatAssigned) {
			metrics.AutoAssignment("already_seated")
			return a.existingSeat(ctx, b, flight, passengerID)
		}
		if errors.Is(err, domain.ErrSeatAlreadyTaken) {
			a.log.DebugContext(ctx, "auto-assign lost seat race", "flight_id", flight.ID, "seat", seat.SeatNumber, "attempt", attempt)
			metrics.AutoAssignment("conflict")
			continue
		}
		if err != nil {
			return b, domain.Seat{}, false, err
		}
		a.inventory.Invalidate(ctx, flight.ID)
		metrics.AutoAssignment("assigned")
		return updated, seat, true, nil
	}

	a.log.WarnContext(ctx, "auto-assign gave up", "flight_id", flight.ID, "booking_id", b.ID, "attempts", a.attempts)
	metrics.AutoAssignment("exhausted")
	return b, domain.Seat{}, false, nil
}

// existingSeat returns the seat the passenger picked while auto-assignment
// was running.
func (a *AutoAssigner) existingSeat(ctx context.Context, b *domain.Booking, flight *domain.Flight, passengerID string) (*domain.Booking, domain.Seat, bool, error) {
	fresh, err := a.bookings.GetByID(ctx, b.ID)
	if err != nil {
		return b, domain.Seat{}, false, err
	}
	p, err := fresh.FindPassenger(flight.ID, passengerID)
	if err != nil {
		return b, domain.Seat{}, false, err
	}
	seat, ok := flight.FindSeat(p.Ticket.SeatNumber)
	if !ok {
		return b, domain.Seat{}, false, domain.ErrSeatNotFound
	}
	a.log.InfoContext(ctx, "passenger picked a seat during auto-assign", "flight_id", flight.ID, "booking_id", b.ID, "seat", seat.SeatNumber)
	return fresh, seat, true, nil
}
