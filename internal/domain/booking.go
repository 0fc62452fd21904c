package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

const CheckedInOnline = "online"

type ContactInfo struct {
	Email string `json:"email" yaml:"email"`
	Phone string `json:"phone,omitempty" yaml:"phone"`
}

type Ticket struct {
	SeatNumber    string          `json:"seat_number,omitempty" yaml:"seat_number"`
	SeatClass     SeatClass       `json:"seat_class" yaml:"seat_class"`
	BoardingGroup string          `json:"boarding_group" yaml:"boarding_group"`
	SeatFee       decimal.Decimal `json:"seat_fee" yaml:"seat_fee"`
}

// BoardingPass is immutable once issued. A re-issue produces a new value.
type BoardingPass struct {
	BarcodeData    string    `json:"barcode_data"`
	QRCodeData     string    `json:"qr_code_data"`
	Gate           string    `json:"gate"`
	BoardingTime   time.Time `json:"boarding_time"`
	Priority       int       `json:"priority"`
	SequenceNumber int       `json:"sequence_number"`
	IssuedAt       time.Time `json:"issued_at"`
}

type CheckInState struct {
	IsCheckedIn  bool          `json:"is_checked_in" yaml:"is_checked_in"`
	CheckedInAt  time.Time     `json:"checked_in_at,omitempty" yaml:"-"`
	CheckedInBy  string        `json:"checked_in_by,omitempty" yaml:"-"`
	BoardingPass *BoardingPass `json:"boarding_pass,omitempty" yaml:"-"`
}

type Passenger struct {
	ID        string       `json:"id" yaml:"id"`
	FirstName string       `json:"first_name" yaml:"first_name"`
	LastName  string       `json:"last_name" yaml:"last_name"`
	Ticket    Ticket       `json:"ticket" yaml:"ticket"`
	CheckIn   CheckInState `json:"check_in" yaml:"check_in"`
}

func NewPassenger(id, firstName, lastName string, ticket Ticket) (Passenger, error) {
	if strings.TrimSpace(id) == "" {
		return Passenger{}, errors.New("passenger id is required")
	}
	if strings.TrimSpace(lastName) == "" {
		return Passenger{}, errors.New("passenger last name is required")
	}
	if !ticket.SeatClass.Valid() {
		return Passenger{}, errors.New("invalid ticket class: " + string(ticket.SeatClass))
	}
	ticket.SeatNumber = strings.ToUpper(strings.TrimSpace(ticket.SeatNumber))
	ticket.BoardingGroup = strings.ToUpper(strings.TrimSpace(ticket.BoardingGroup))
	return Passenger{ID: id, FirstName: firstName, LastName: lastName, Ticket: ticket}, nil
}

func (p Passenger) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Segment struct {
	FlightID   string      `json:"flight_id" yaml:"flight_id"`
	Passengers []Passenger `json:"passengers" yaml:"passengers"`
}

func (s *Segment) CheckedInCount() int {
	n := 0
	for _, p := range s.Passengers {
		if p.CheckIn.IsCheckedIn {
			n++
		}
	}
	return n
}

type Booking struct {
	ID            string          `json:"id" yaml:"id"`
	Reference     string          `json:"reference" yaml:"reference"`
	UserID        string          `json:"user_id,omitempty" yaml:"user_id"`
	Status        BookingStatus   `json:"status" yaml:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status" yaml:"payment_status"`
	Contact       ContactInfo     `json:"contact" yaml:"contact"`
	Segments      []Segment       `json:"segments" yaml:"segments"`
	TotalAmount   decimal.Decimal `json:"total_amount" yaml:"total_amount"`
	Currency      string          `json:"currency" yaml:"currency"`
	Version       int64           `json:"version" yaml:"-"`
	CreatedAt     time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time       `json:"updated_at" yaml:"-"`
}

// HoldsSeats reports whether the booking's seat claims count towards
// occupancy: confirmed or checked in, and paid.
func (b *Booking) HoldsSeats() bool {
	if b.PaymentStatus != PaymentStatusPaid {
		return false
	}
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCheckedIn
}

// AllowsSeatChange reports whether seats may be selected or cleared.
func (b *Booking) AllowsSeatChange() bool {
	return b.HoldsSeats()
}

func (b *Booking) Segment(flightID string) (*Segment, bool) {
	for i := range b.Segments {
		if b.Segments[i].FlightID == flightID {
			return &b.Segments[i], true
		}
	}
	return nil, false
}

// passenger returns a pointer into the booking. Other packages mutate
// passengers only through SetSeat, ClearSeat and MarkCheckedIn.
func (b *Booking) passenger(flightID, passengerID string) (*Passenger, error) {
	seg, ok := b.Segment(flightID)
	if !ok {
		return nil, ErrSegmentNotFound
	}
	for i := range seg.Passengers {
		if seg.Passengers[i].ID == passengerID {
			return &seg.Passengers[i], nil
		}
	}
	return nil, ErrPassengerNotFound
}

// FindPassenger returns a copy of the passenger on the flight segment.
func (b *Booking) FindPassenger(flightID, passengerID string) (Passenger, error) {
	p, err := b.passenger(flightID, passengerID)
	if err != nil {
		return Passenger{}, err
	}
	return *p, nil
}

// FindPassengerAnySegment looks a passenger up across all segments and
// returns the segment's flight id with it.
func (b *Booking) FindPassengerAnySegment(passengerID string) (Passenger, string, error) {
	for _, seg := range b.Segments {
		for _, p := range seg.Passengers {
			if p.ID == passengerID {
				return p, seg.FlightID, nil
			}
		}
	}
	return Passenger{}, "", ErrPassengerNotFound
}

// MatchesSurname is a case-insensitive match against any passenger.
func (b *Booking) MatchesSurname(lastName string) bool {
	lastName = strings.TrimSpace(lastName)
	if lastName == "" {
		return false
	}
	for _, seg := range b.Segments {
		for _, p := range seg.Passengers {
			if strings.EqualFold(strings.TrimSpace(p.LastName), lastName) {
				return true
			}
		}
	}
	return false
}

// OwnedBy reports whether the caller owns the booking either by user id or
// by matching contact email.
func (b *Booking) OwnedBy(userID, email string) bool {
	if userID != "" && b.UserID == userID {
		return true
	}
	return email != "" && strings.EqualFold(b.Contact.Email, email)
}

// SeatChange describes what SetSeat or ClearSeat did to a passenger.
type SeatChange struct {
	PreviousSeat string
	PreviousFee  decimal.Decimal
	Changed      bool
}

// SetSeat records seatNumber on the passenger's ticket and charges fee,
// refunding the fee of any seat it replaces. Selecting the seat already
// held is a no-op.
func (b *Booking) SetSeat(flightID, passengerID, seatNumber string, fee decimal.Decimal) (SeatChange, error) {
	seatNumber = strings.ToUpper(strings.TrimSpace(seatNumber))
	if seatNumber == "" {
		return SeatChange{}, Validation("seat number is required")
	}
	if fee.IsNegative() {
		return SeatChange{}, Validation("seat fee must not be negative")
	}
	p, err := b.passenger(flightID, passengerID)
	if err != nil {
		return SeatChange{}, err
	}
	if p.CheckIn.IsCheckedIn {
		return SeatChange{}, ErrAlreadyCheckedIn
	}
	change := SeatChange{PreviousSeat: p.Ticket.SeatNumber, PreviousFee: p.Ticket.SeatFee}
	if p.Ticket.SeatNumber == seatNumber {
		return change, nil
	}
	b.TotalAmount = b.TotalAmount.Sub(p.Ticket.SeatFee).Add(fee)
	p.Ticket.SeatNumber = seatNumber
	p.Ticket.SeatFee = fee
	change.Changed = true
	return change, nil
}

// ClearSeat removes the passenger's seat and refunds the recorded fee.
func (b *Booking) ClearSeat(flightID, passengerID string) (SeatChange, error) {
	p, err := b.passenger(flightID, passengerID)
	if err != nil {
		return SeatChange{}, err
	}
	if p.CheckIn.IsCheckedIn {
		return SeatChange{}, ErrAlreadyCheckedIn
	}
	if p.Ticket.SeatNumber == "" {
		return SeatChange{}, ErrNoSeatAssigned
	}
	change := SeatChange{PreviousSeat: p.Ticket.SeatNumber, PreviousFee: p.Ticket.SeatFee, Changed: true}
	b.TotalAmount = b.TotalAmount.Sub(p.Ticket.SeatFee)
	p.Ticket.SeatNumber = ""
	p.Ticket.SeatFee = decimal.Zero
	return change, nil
}

// MarkCheckedIn sets the passenger's check-in state exactly once.
func (b *Booking) MarkCheckedIn(flightID, passengerID string, at time.Time, by string, pass BoardingPass) error {
	p, err := b.passenger(flightID, passengerID)
	if err != nil {
		return err
	}
	if p.CheckIn.IsCheckedIn {
		return ErrAlreadyCheckedIn
	}
	p.CheckIn = CheckInState{
		IsCheckedIn:  true,
		CheckedInAt:  at,
		CheckedInBy:  by,
		BoardingPass: &pass,
	}
	return nil
}

// Clone returns a deep copy. Boarding passes are shared since they are
// never mutated.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Segments = make([]Segment, len(b.Segments))
	for i, seg := range b.Segments {
		c.Segments[i] = Segment{
			FlightID:   seg.FlightID,
			Passengers: append([]Passenger(nil), seg.Passengers...),
		}
	}
	return &c
}
