package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/domain"
)

// MemoryStore keeps flights, bookings and the seat ledger in process. One
// mutex guards everything, so every method is a single atomic step.
type MemoryStore struct {
	mu       sync.Mutex
	clock    clock.Clock
	flights  map[string]*domain.Flight
	bookings map[string]*domain.Booking
	refs     map[string]string
	claims   map[string]map[string]SeatClaim
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryStore{
		clock:    c,
		flights:  make(map[string]*domain.Flight),
		bookings: make(map[string]*domain.Booking),
		refs:     make(map[string]string),
		claims:   make(map[string]map[string]SeatClaim),
	}
}

func (s *MemoryStore) PutFlight(f *domain.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *f
	c.SeatMap = cloneSeatMap(f.SeatMap)
	s.flights[f.ID] = &c
}

// PutBooking stores b and claims every seat it already holds. Claims left
// by a previous version of the same booking are dropped first.
func (s *MemoryStore) PutBooking(b *domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seats := range s.claims {
		for num, c := range seats {
			if c.BookingID == b.ID {
				delete(seats, num)
			}
		}
	}
	c := b.Clone()
	s.bookings[b.ID] = c
	s.refs[strings.ToUpper(b.Reference)] = b.ID
	now := s.clock.Now()
	for _, seg := range c.Segments {
		for _, p := range seg.Passengers {
			if p.Ticket.SeatNumber != "" {
				s.claim(seg.FlightID, p.Ticket.SeatNumber, c.ID, p.ID, now)
			}
		}
	}
}

func (s *MemoryStore) claim(flightID, seat, bookingID, passengerID string, at time.Time) {
	seats, ok := s.claims[flightID]
	if !ok {
		seats = make(map[string]SeatClaim)
		s.claims[flightID] = seats
	}
	seats[seat] = SeatClaim{FlightID: flightID, SeatNumber: seat, BookingID: bookingID, PassengerID: passengerID, ClaimedAt: at}
}

func (s *MemoryStore) release(flightID, seat, bookingID, passengerID string) {
	if c, ok := s.claims[flightID][seat]; ok && c.BookingID == bookingID && c.PassengerID == passengerID {
		delete(s.claims[flightID], seat)
	}
}

// held reports whether an active booking other than the given holder owns
// the claim on seat.
func (s *MemoryStore) held(flightID, seat, bookingID, passengerID string) bool {
	c, ok := s.claims[flightID][seat]
	if !ok {
		return false
	}
	if c.BookingID == bookingID && c.PassengerID == passengerID {
		return false
	}
	holder, ok := s.bookings[c.BookingID]
	return ok && holder.HoldsSeats()
}

func (s *MemoryStore) Flights() FlightRepository { return memoryFlights{s} }

type memoryFlights struct{ s *MemoryStore }

func (m memoryFlights) GetByID(_ context.Context, id string) (*domain.Flight, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	f, ok := m.s.flights[id]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	c := *f
	c.SeatMap = cloneSeatMap(f.SeatMap)
	return &c, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) GetByReference(_ context.Context, reference string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refs[strings.ToUpper(strings.TrimSpace(reference))]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return s.bookings[id].Clone(), nil
}

func (s *MemoryStore) AssignSeat(_ context.Context, a SeatAssignment) (*domain.Booking, domain.SeatChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bookings[a.BookingID]
	if !ok {
		return nil, domain.SeatChange{}, domain.ErrBookingNotFound
	}
	if !stored.AllowsSeatChange() {
		return nil, domain.SeatChange{}, domain.ErrBookingNotModifiable
	}
	if err := a.check(stored); err != nil {
		return nil, domain.SeatChange{}, err
	}
	b := stored.Clone()
	change, err := b.SetSeat(a.FlightID, a.PassengerID, a.SeatNumber, a.Fee)
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	if !change.Changed {
		return b, change, nil
	}
	seat := strings.ToUpper(strings.TrimSpace(a.SeatNumber))
	if s.held(a.FlightID, seat, a.BookingID, a.PassengerID) {
		return nil, domain.SeatChange{}, domain.ErrSeatAlreadyTaken
	}
	if change.PreviousSeat != "" {
		s.release(a.FlightID, change.PreviousSeat, a.BookingID, a.PassengerID)
	}
	now := s.clock.Now()
	s.claim(a.FlightID, seat, a.BookingID, a.PassengerID, now)
	s.commit(b, now)
	return b.Clone(), change, nil
}

func (s *MemoryStore) ClearSeat(_ context.Context, r SeatRelease) (*domain.Booking, domain.SeatChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bookings[r.BookingID]
	if !ok {
		return nil, domain.SeatChange{}, domain.ErrBookingNotFound
	}
	if !stored.AllowsSeatChange() {
		return nil, domain.SeatChange{}, domain.ErrBookingNotModifiable
	}
	b := stored.Clone()
	change, err := b.ClearSeat(r.FlightID, r.PassengerID)
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	s.release(r.FlightID, change.PreviousSeat, r.BookingID, r.PassengerID)
	s.commit(b, s.clock.Now())
	return b.Clone(), change, nil
}

// Save writes status and check-in state. Seat fields keep their stored
// values, and a passenger already checked in stays checked in.
func (s *MemoryStore) Save(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bookings[b.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if stored.Version != b.Version {
		return domain.ErrConcurrentUpdate
	}
	next := stored.Clone()
	next.Status = b.Status
	for _, seg := range b.Segments {
		for _, p := range seg.Passengers {
			if !p.CheckIn.IsCheckedIn || p.CheckIn.BoardingPass == nil {
				continue
			}
			err := next.MarkCheckedIn(seg.FlightID, p.ID, p.CheckIn.CheckedInAt, p.CheckIn.CheckedInBy, *p.CheckIn.BoardingPass)
			if err != nil && !errors.Is(err, domain.ErrAlreadyCheckedIn) {
				return err
			}
		}
	}
	now := s.clock.Now()
	s.commit(next, now)
	b.Version = next.Version
	b.UpdatedAt = now
	return nil
}

func (s *MemoryStore) commit(b *domain.Booking, at time.Time) {
	b.Version++
	b.UpdatedAt = at
	s.bookings[b.ID] = b.Clone()
}

func (s *MemoryStore) Occupancy(_ context.Context, flightID, excludeBookingID string) (map[string]SeatClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]SeatClaim)
	for num, c := range s.claims[flightID] {
		if c.BookingID == excludeBookingID {
			continue
		}
		if holder, ok := s.bookings[c.BookingID]; ok && holder.HoldsSeats() {
			out[num] = c
		}
	}
	return out, nil
}

func cloneSeatMap(rows []domain.SeatRow) []domain.SeatRow {
	out := make([]domain.SeatRow, len(rows))
	for i, r := range rows {
		out[i] = domain.SeatRow{RowNumber: r.RowNumber, Seats: append([]domain.Seat(nil), r.Seats...)}
	}
	return out
}

var (
	_ BookingRepository = (*MemoryStore)(nil)
	_ SeatLedger        = (*MemoryStore)(nil)
	_ FlightRepository  = memoryFlights{}
)
