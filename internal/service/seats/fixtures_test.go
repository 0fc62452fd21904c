package seats

import (
	"testing"
	"time"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/shopspring/decimal"
)

const flightID = "FL-1"

func seat(number string, class domain.SeatClass, typ domain.SeatType, price int64) domain.Seat {
	return domain.Seat{SeatNumber: number, Class: class, Type: typ, Status: domain.SeatStatusAvailable, Price: decimal.NewFromInt(price)}
}

func economyRow(n int, letters string, price int64) domain.SeatRow {
	types := map[byte]domain.SeatType{
		'A': domain.SeatTypeWindow, 'B': domain.SeatTypeMiddle, 'C': domain.SeatTypeAisle,
		'D': domain.SeatTypeAisle, 'E': domain.SeatTypeMiddle, 'F': domain.SeatTypeWindow,
	}
	row := domain.SeatRow{RowNumber: n}
	for i := 0; i < len(letters); i++ {
		row.Seats = append(row.Seats, seat(itoa(n)+string(letters[i]), domain.SeatClassEconomy, types[letters[i]], price))
	}
	return row
}

func itoa(n int) string {
	return decimal.NewFromInt(int64(n)).String()
}

func testFlight() *domain.Flight {
	return &domain.Flight{
		ID:           flightID,
		FlightNumber: "SU100",
		Route: domain.Route{
			DepartureAirport: "SVO",
			ArrivalAirport:   "LED",
			DepartureTime:    time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC),
			Gate:             "B12",
		},
		SeatMap: []domain.SeatRow{
			{RowNumber: 1, Seats: []domain.Seat{
				seat("1A", domain.SeatClassBusiness, domain.SeatTypeWindow, 120),
				seat("1C", domain.SeatClassBusiness, domain.SeatTypeAisle, 120),
			}},
			economyRow(12, "ABCDEF", 0),
			economyRow(13, "ABCDEF", 0),
		},
	}
}

func booking(id string, status domain.BookingStatus, pay domain.PaymentStatus, passengers ...domain.Passenger) *domain.Booking {
	return &domain.Booking{
		ID:            id,
		Reference:     "REF" + id,
		UserID:        "user-" + id,
		Status:        status,
		PaymentStatus: pay,
		Contact:       domain.ContactInfo{Email: id + "@example.com"},
		Segments:      []domain.Segment{{FlightID: flightID, Passengers: passengers}},
		TotalAmount:   decimal.NewFromInt(100),
		Currency:      "USD",
		Version:       1,
	}
}

func activeBooking(id string, passengers ...domain.Passenger) *domain.Booking {
	return booking(id, domain.BookingStatusConfirmed, domain.PaymentStatusPaid, passengers...)
}

func pax(id, seatNumber string, class domain.SeatClass) domain.Passenger {
	return domain.Passenger{ID: id, FirstName: "John", LastName: "Doe", Ticket: domain.Ticket{SeatNumber: seatNumber, SeatClass: class, BoardingGroup: "C"}}
}

type env struct {
	store       *repository.MemoryStore
	inventory   *Inventory
	reservation *ReservationService
	assigner    *AutoAssigner
}

func newEnv(t *testing.T, flight *domain.Flight, bookings ...*domain.Booking) *env {
	t.Helper()
	store := repository.NewMemoryStore(clock.NewFake(time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC)))
	store.PutFlight(flight)
	for _, b := range bookings {
		store.PutBooking(b)
	}
	log := logging.Discard()
	inv := NewInventory(store.Flights(), store, nil, log)
	return &env{
		store:       store,
		inventory:   inv,
		reservation: NewReservationService(store, store.Flights(), inv, log),
		assigner:    NewAutoAssigner(store, inv, 3, log),
	}
}

func ownerOf(b *domain.Booking) Caller {
	return Caller{UserID: b.UserID}
}
