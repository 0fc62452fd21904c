package seats

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/metrics"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/shopspring/decimal"
)

// Caller identifies the authenticated user behind a seat request.
type Caller struct {
	UserID string
	Email  string
}

type SelectSeatInput struct {
	BookingID     string
	FlightID      string
	PassengerID   string
	SeatNumber    string
	AcceptUpgrade bool
}

type UnselectSeatInput struct {
	BookingID   string
	FlightID    string
	PassengerID string
}

type SeatResult struct {
	Booking      *domain.Booking
	Seat         *domain.Seat
	Fee          decimal.Decimal
	PreviousSeat string
	Upgrade      bool
}

type ReservationUseCase interface {
	SelectSeat(ctx context.Context, caller Caller, in SelectSeatInput) (*SeatResult, error)
	UnselectSeat(ctx context.Context, caller Caller, in UnselectSeatInput) (*SeatResult, error)
}

type ReservationService struct {
	bookings  repository.BookingRepository
	flights   FlightReader
	inventory *Inventory
	log       *slog.Logger
}

func NewReservationService(bookings repository.BookingRepository, flights FlightReader, inventory *Inventory, log *slog.Logger) *ReservationService {
	if log == nil {
		log = slog.Default()
	}
	return &ReservationService{bookings: bookings, flights: flights, inventory: inventory, log: log}
}

func (s *ReservationService) loadOwned(ctx context.Context, caller Caller, bookingID, flightID, passengerID string) (*domain.Booking, domain.Passenger, error) {
	if strings.TrimSpace(bookingID) == "" || strings.TrimSpace(flightID) == "" || strings.TrimSpace(passengerID) == "" {
		return nil, domain.Passenger{}, domain.Validation("bookingId, flightId and passengerId are required")
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, domain.Passenger{}, err
	}
	if !b.OwnedBy(caller.UserID, caller.Email) {
		return nil, domain.Passenger{}, domain.ErrForbidden
	}
	if !b.AllowsSeatChange() {
		return nil, domain.Passenger{}, domain.ErrBookingNotModifiable
	}
	p, err := b.FindPassenger(flightID, passengerID)
	if err != nil {
		return nil, domain.Passenger{}, err
	}
	if p.CheckIn.IsCheckedIn {
		return nil, domain.Passenger{}, domain.ErrAlreadyCheckedIn
	}
	return b, p, nil
}

// SelectSeat claims a seat for one passenger and charges the seat price.
// A seat of another class needs AcceptUpgrade; the ticket class itself is
// left unchanged.
func (s *ReservationService) SelectSeat(ctx context.Context, caller Caller, in SelectSeatInput) (*SeatResult, error) {
	if strings.TrimSpace(in.SeatNumber) == "" {
		return nil, domain.Validation("seatNumber is required")
	}
	b, p, err := s.loadOwned(ctx, caller, in.BookingID, in.FlightID, in.PassengerID)
	if err != nil {
		metrics.SeatSelection("select", "rejected")
		return nil, err
	}

	flight, err := s.flights.GetByID(ctx, in.FlightID)
	if err != nil {
		return nil, err
	}
	seat, ok := flight.FindSeat(in.SeatNumber)
	if !ok {
		metrics.SeatSelection("select", "rejected")
		return nil, domain.ErrSeatNotFound
	}
	if seat.Status != domain.SeatStatusAvailable {
		metrics.SeatSelection("select", "rejected")
		return nil, domain.ErrSeatUnavailable
	}
	if p.Ticket.SeatNumber == seat.SeatNumber {
		return &SeatResult{Booking: b, Seat: &seat, Fee: p.Ticket.SeatFee, PreviousSeat: seat.SeatNumber}, nil
	}

	occupied, err := s.inventory.ComputeOccupancy(ctx, in.FlightID, b.ID)
	if err != nil {
		return nil, err
	}
	if _, taken := occupied[seat.SeatNumber]; taken {
		metrics.SeatSelection("select", "taken")
		return nil, domain.ErrSeatAlreadyTaken
	}
	upgrade := seat.Class != p.Ticket.SeatClass
	if upgrade && !in.AcceptUpgrade {
		metrics.SeatSelection("select", "rejected")
		return nil, domain.ErrClassMismatch
	}

	updated, change, err := s.bookings.AssignSeat(ctx, repository.SeatAssignment{
		BookingID:   b.ID,
		FlightID:    in.FlightID,
		PassengerID: in.PassengerID,
		SeatNumber:  seat.SeatNumber,
		Fee:         seat.Price,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSeatAlreadyTaken) {
			metrics.SeatSelection("select", "conflict")
			s.log.InfoContext(ctx, "seat race lost", "flight_id", in.FlightID, "seat", seat.SeatNumber, "booking_id", b.ID)
		}
		return nil, err
	}
	s.inventory.Invalidate(ctx, in.FlightID)
	metrics.SeatSelection("select", "ok")
	s.log.InfoContext(ctx, "seat selected", "flight_id", in.FlightID, "seat", seat.SeatNumber,
		"booking_id", b.ID, "passenger_id", in.PassengerID, "fee", seat.Price.String(), "upgrade", upgrade)

	return &SeatResult{
		Booking:      updated,
		Seat:         &seat,
		Fee:          seat.Price,
		PreviousSeat: change.PreviousSeat,
		Upgrade:      upgrade,
	}, nil
}

// UnselectSeat releases the passenger's seat and refunds the fee charged
// for it.
func (s *ReservationService) UnselectSeat(ctx context.Context, caller Caller, in UnselectSeatInput) (*SeatResult, error) {
	if _, _, err := s.loadOwned(ctx, caller, in.BookingID, in.FlightID, in.PassengerID); err != nil {
		metrics.SeatSelection("unselect", "rejected")
		return nil, err
	}
	updated, change, err := s.bookings.ClearSeat(ctx, repository.SeatRelease{
		BookingID:   in.BookingID,
		FlightID:    in.FlightID,
		PassengerID: in.PassengerID,
	})
	if err != nil {
		metrics.SeatSelection("unselect", "rejected")
		return nil, err
	}
	s.inventory.Invalidate(ctx, in.FlightID)
	metrics.SeatSelection("unselect", "ok")
	s.log.InfoContext(ctx, "seat released", "flight_id", in.FlightID, "seat", change.PreviousSeat,
		"booking_id", in.BookingID, "passenger_id", in.PassengerID)

	return &SeatResult{
		Booking:      updated,
		Fee:          change.PreviousFee.Neg(),
		PreviousSeat: change.PreviousSeat,
	}, nil
}

var _ ReservationUseCase = (*ReservationService)(nil)
