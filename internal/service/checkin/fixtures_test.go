package checkin

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/Domenick1991/aircheckin/internal/notify"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/Domenick1991/aircheckin/internal/service/seats"
	"github.com/shopspring/decimal"
)

const flightID = "FL-1"

var departure = time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC)

func row(n int, class domain.SeatClass, letters string, price int64) domain.SeatRow {
	types := map[byte]domain.SeatType{
		'A': domain.SeatTypeWindow, 'B': domain.SeatTypeMiddle, 'C': domain.SeatTypeAisle,
		'D': domain.SeatTypeAisle, 'E': domain.SeatTypeMiddle, 'F': domain.SeatTypeWindow,
	}
	r := domain.SeatRow{RowNumber: n}
	for i := 0; i < len(letters); i++ {
		r.Seats = append(r.Seats, domain.Seat{
			SeatNumber: decimal.NewFromInt(int64(n)).String() + string(letters[i]),
			Class:      class,
			Type:       types[letters[i]],
			Status:     domain.SeatStatusAvailable,
			Price:      decimal.NewFromInt(price),
		})
	}
	return r
}

func testFlight() *domain.Flight {
	return &domain.Flight{
		ID:           flightID,
		FlightNumber: "SU100",
		Route: domain.Route{
			DepartureAirport: "SVO",
			ArrivalAirport:   "LED",
			DepartureTime:    departure,
			Gate:             "B12",
			Terminal:         "D",
		},
		SeatMap: []domain.SeatRow{
			row(1, domain.SeatClassBusiness, "AC", 120),
			row(12, domain.SeatClassEconomy, "ABCDEF", 0),
		},
	}
}

func pax(id, last, seatNumber string) domain.Passenger {
	return domain.Passenger{ID: id, FirstName: "Ivan", LastName: last, Ticket: domain.Ticket{
		SeatNumber: seatNumber, SeatClass: domain.SeatClassEconomy, BoardingGroup: "C",
	}}
}

func testBooking(passengers ...domain.Passenger) *domain.Booking {
	return &domain.Booking{
		ID:            "B1",
		Reference:     "ABC123",
		UserID:        "user-1",
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPaid,
		Contact:       domain.ContactInfo{Email: "ivan@example.com"},
		Segments:      []domain.Segment{{FlightID: flightID, Passengers: passengers}},
		TotalAmount:   decimal.NewFromInt(300),
		Currency:      "RUB",
		Version:       1,
	}
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notify.NotificationRequest
	emails        []notify.BoardingPassEmailRequest
	err           error
}

func (n *recordingNotifier) Notify(_ context.Context, req notify.NotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, req)
	return n.err
}

func (n *recordingNotifier) SendBoardingPassEmail(_ context.Context, req notify.BoardingPassEmailRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, req)
	return n.err
}

var errQueueDown = errors.New("queue down")

type env struct {
	store    *repository.MemoryStore
	clock    *clock.Fake
	notifier *recordingNotifier
	svc      *Service
}

func newEnv(t *testing.T, flight *domain.Flight, bookings ...*domain.Booking) *env {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC))
	store := repository.NewMemoryStore(clk)
	store.PutFlight(flight)
	for _, b := range bookings {
		store.PutBooking(b)
	}
	log := logging.Discard()
	inv := seats.NewInventory(store.Flights(), store, nil, log)
	n := &recordingNotifier{}
	svc := NewService(store, store.Flights(), seats.NewAutoAssigner(store, inv, 3, log),
		NewIssuer(clk, rand.New(rand.NewPCG(1, 1)), 30*time.Minute), n, Options{Window: DefaultWindow(), Clock: clk}, log)
	return &env{store: store, clock: clk, notifier: n, svc: svc}
}

func yes() *bool { v := true; return &v }
func no() *bool  { v := false; return &v }
