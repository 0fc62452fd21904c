package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SeatClass string

const (
	SeatClassEconomy        SeatClass = "economy"
	SeatClassPremiumEconomy SeatClass = "premium_economy"
	SeatClassBusiness       SeatClass = "business"
	SeatClassFirst          SeatClass = "first"
)

func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassEconomy, SeatClassPremiumEconomy, SeatClassBusiness, SeatClassFirst:
		return true
	}
	return false
}

type SeatType string

const (
	SeatTypeWindow SeatType = "window"
	SeatTypeAisle  SeatType = "aisle"
	SeatTypeMiddle SeatType = "middle"
)

func (t SeatType) Valid() bool {
	return t == SeatTypeWindow || t == SeatTypeAisle || t == SeatTypeMiddle
}

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusBlocked   SeatStatus = "blocked"
	SeatStatusOccupied  SeatStatus = "occupied"
)

// Seat is a static seat-map entry owned by the flight catalog. Status here
// is the catalog status; occupancy by bookings is derived separately.
type Seat struct {
	SeatNumber string          `json:"seat_number" yaml:"seat_number"`
	Class      SeatClass       `json:"class" yaml:"class"`
	Type       SeatType        `json:"type" yaml:"type"`
	Status     SeatStatus      `json:"status" yaml:"status"`
	Price      decimal.Decimal `json:"price" yaml:"price"`
	Features   []string        `json:"features,omitempty" yaml:"features"`
}

func NewSeat(number string, class SeatClass, typ SeatType, status SeatStatus, price decimal.Decimal, features ...string) (Seat, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return Seat{}, errors.New("seat number is required")
	}
	if !class.Valid() {
		return Seat{}, errors.New("invalid seat class: " + string(class))
	}
	if !typ.Valid() {
		return Seat{}, errors.New("invalid seat type: " + string(typ))
	}
	if status == "" {
		status = SeatStatusAvailable
	}
	if price.IsNegative() {
		return Seat{}, errors.New("seat price must not be negative")
	}
	return Seat{
		SeatNumber: number,
		Class:      class,
		Type:       typ,
		Status:     status,
		Price:      price,
		Features:   features,
	}, nil
}

type SeatRow struct {
	RowNumber int    `json:"row_number" yaml:"row_number"`
	Seats     []Seat `json:"seats" yaml:"seats"`
}

type Route struct {
	DepartureAirport string    `json:"departure_airport" yaml:"departure_airport"`
	ArrivalAirport   string    `json:"arrival_airport" yaml:"arrival_airport"`
	DepartureTime    time.Time `json:"departure_time" yaml:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time" yaml:"arrival_time"`
	Gate             string    `json:"gate" yaml:"gate"`
	Terminal         string    `json:"terminal" yaml:"terminal"`
}

type Flight struct {
	ID           string    `json:"id" yaml:"id"`
	FlightNumber string    `json:"flight_number" yaml:"flight_number"`
	Airline      string    `json:"airline" yaml:"airline"`
	Route        Route     `json:"route" yaml:"route"`
	SeatMap      []SeatRow `json:"seat_map" yaml:"seat_map"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// FindSeat looks a seat up by number, case-insensitively.
func (f *Flight) FindSeat(number string) (Seat, bool) {
	number = strings.ToUpper(strings.TrimSpace(number))
	for _, row := range f.SeatMap {
		for _, s := range row.Seats {
			if s.SeatNumber == number {
				return s, true
			}
		}
	}
	return Seat{}, false
}

func (f *Flight) SeatCount() int {
	n := 0
	for _, row := range f.SeatMap {
		n += len(row.Seats)
	}
	return n
}
