// Package checkin runs online check-in: window eligibility, batch
// check-in with optional seat auto-assignment, boarding pass issue and
// retrieval.
package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/metrics"
	"github.com/Domenick1991/aircheckin/internal/notify"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/skip2/go-qrcode"
)

type FlightReader interface {
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
}

// SeatAssigner claims a free seat for a passenger without one. It returns
// the booking as stored after the claim.
type SeatAssigner interface {
	AssignSeat(ctx context.Context, b *domain.Booking, flight *domain.Flight, passengerID string) (*domain.Booking, domain.Seat, bool, error)
}

type UseCase interface {
	Eligibility(ctx context.Context, reference, lastName string) (*EligibilityResult, error)
	PerformCheckIn(ctx context.Context, in PerformInput) (*PerformResult, error)
	Status(ctx context.Context, reference string) (*StatusResult, error)
	BoardingPass(ctx context.Context, reference, passengerID string) (*BoardingPassView, error)
	MobileBoardingPass(ctx context.Context, reference, passengerID string) (*MobilePass, error)
}

type Options struct {
	Window Window
	Clock  clock.Clock
}

type Service struct {
	bookings repository.BookingRepository
	flights  FlightReader
	assigner SeatAssigner
	issuer   *Issuer
	notifier notify.Notifier
	window   Window
	clock    clock.Clock
	log      *slog.Logger
}

func NewService(bookings repository.BookingRepository, flights FlightReader, assigner SeatAssigner, issuer *Issuer, notifier notify.Notifier, opts Options, log *slog.Logger) *Service {
	if opts.Window == (Window{}) {
		opts.Window = DefaultWindow()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		bookings: bookings,
		flights:  flights,
		assigner: assigner,
		issuer:   issuer,
		notifier: notifier,
		window:   opts.Window,
		clock:    opts.Clock,
		log:      log,
	}
}

type SegmentEligibility struct {
	FlightID        string
	FlightNumber    string
	DepartureTime   time.Time
	Status          EligibilityStatus
	OpensAt         time.Time
	ClosesAt        time.Time
	TotalPassengers int
	CheckedIn       int
	CanCheckIn      bool
}

type EligibilityResult struct {
	BookingReference string
	Segments         []SegmentEligibility
}

func checkable(b *domain.Booking) error {
	if b.Status != domain.BookingStatusConfirmed {
		return domain.ErrBookingNotConfirmed
	}
	if b.PaymentStatus != domain.PaymentStatusPaid {
		return domain.ErrPaymentRequired
	}
	return nil
}

// Eligibility reports the check-in window per flight segment. A surname
// that matches nobody on the booking is reported as a missing booking.
func (s *Service) Eligibility(ctx context.Context, reference, lastName string) (*EligibilityResult, error) {
	if strings.TrimSpace(reference) == "" || strings.TrimSpace(lastName) == "" {
		return nil, domain.Validation("bookingReference and lastName are required")
	}
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !b.MatchesSurname(lastName) {
		return nil, domain.ErrBookingNotFound
	}
	if err := checkable(b); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	res := &EligibilityResult{BookingReference: b.Reference}
	for i := range b.Segments {
		seg := &b.Segments[i]
		f, err := s.flights.GetByID(ctx, seg.FlightID)
		if err != nil {
			return nil, err
		}
		dep := f.Route.DepartureTime
		status := s.window.Evaluate(now, dep)
		checked := seg.CheckedInCount()
		res.Segments = append(res.Segments, SegmentEligibility{
			FlightID:        f.ID,
			FlightNumber:    f.FlightNumber,
			DepartureTime:   dep,
			Status:          status,
			OpensAt:         dep.Add(-s.window.OpensBefore),
			ClosesAt:        dep.Add(-s.window.ClosesBefore),
			TotalPassengers: len(seg.Passengers),
			CheckedIn:       checked,
			CanCheckIn:      status == StatusAvailable && checked < len(seg.Passengers),
		})
	}
	return res, nil
}

type Outcome string

const (
	OutcomeCheckedIn   Outcome = "checked_in"
	OutcomeAlreadyDone Outcome = "already_done"
	OutcomeNotFound    Outcome = "not_found"
)

// PassengerSelection picks one passenger for check-in. A nil
// AutoAssignSeat means true.
type PassengerSelection struct {
	PassengerID    string
	AutoAssignSeat *bool
}

func (p PassengerSelection) autoAssign() bool {
	return p.AutoAssignSeat == nil || *p.AutoAssignSeat
}

type PerformInput struct {
	Reference  string
	FlightID   string
	Passengers []PassengerSelection
}

type PassengerResult struct {
	PassengerID   string
	Name          string
	Outcome       Outcome
	SeatNumber    string
	SeatAssigned  bool
	BoardingGroup string
	BoardingPass  *domain.BoardingPass
}

type PerformResult struct {
	BookingReference string
	FlightID         string
	FlightNumber     string
	Gate             string
	Terminal         string
	DepartureTime    time.Time
	CheckedIn        int
	Passengers       []PassengerResult
}

// PerformCheckIn checks in the selected passengers of one flight segment.
// Only the check-in window fails the whole batch; each passenger otherwise
// gets an outcome. When nobody was checked in the result is returned
// together with domain.ErrAllSkipped.
func (s *Service) PerformCheckIn(ctx context.Context, in PerformInput) (*PerformResult, error) {
	if strings.TrimSpace(in.Reference) == "" || strings.TrimSpace(in.FlightID) == "" {
		return nil, domain.Validation("bookingReference and flightId are required")
	}
	if len(in.Passengers) == 0 {
		return nil, domain.Validation("at least one passenger is required")
	}
	b, err := s.bookings.GetByReference(ctx, in.Reference)
	if err != nil {
		return nil, err
	}
	if err := checkable(b); err != nil {
		return nil, err
	}
	if _, ok := b.Segment(in.FlightID); !ok {
		return nil, domain.ErrSegmentNotFound
	}
	flight, err := s.flights.GetByID(ctx, in.FlightID)
	if err != nil {
		return nil, err
	}
	switch s.window.Evaluate(s.clock.Now(), flight.Route.DepartureTime) {
	case StatusTooEarly:
		return nil, domain.ErrTooEarly
	case StatusTooLate:
		return nil, domain.ErrTooLate
	}

	res := &PerformResult{
		BookingReference: b.Reference,
		FlightID:         flight.ID,
		FlightNumber:     flight.FlightNumber,
		Gate:             flight.Route.Gate,
		Terminal:         flight.Route.Terminal,
		DepartureTime:    flight.Route.DepartureTime,
		Passengers:       make([]PassengerResult, len(in.Passengers)),
	}

	// Seats are claimed first; each claim returns a newer booking version
	// that the check-in marks below are applied to.
	var pending []int
	seen := make(map[string]bool, len(in.Passengers))
	for i, sel := range in.Passengers {
		r := &res.Passengers[i]
		r.PassengerID = sel.PassengerID
		p, err := b.FindPassenger(in.FlightID, sel.PassengerID)
		if err != nil {
			r.Outcome = OutcomeNotFound
			continue
		}
		r.Name = p.FullName()
		if p.CheckIn.IsCheckedIn || seen[p.ID] {
			r.Outcome = OutcomeAlreadyDone
			r.SeatNumber = p.Ticket.SeatNumber
			r.BoardingGroup = p.Ticket.BoardingGroup
			r.BoardingPass = p.CheckIn.BoardingPass
			continue
		}
		seen[p.ID] = true
		if p.Ticket.SeatNumber == "" && sel.autoAssign() {
			updated, seat, ok, err := s.assigner.AssignSeat(ctx, b, flight, p.ID)
			if err != nil {
				return nil, fmt.Errorf("auto-assign seat for %s: %w", p.ID, err)
			}
			if ok {
				b = updated
				r.SeatAssigned = true
				s.log.InfoContext(ctx, "seat auto-assigned", "reference", b.Reference, "passenger_id", p.ID, "seat", seat.SeatNumber)
			}
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		for _, r := range res.Passengers {
			metrics.CheckIn(string(r.Outcome))
		}
		return res, domain.ErrAllSkipped
	}

	now := s.clock.Now()
	for _, i := range pending {
		r := &res.Passengers[i]
		p, err := b.FindPassenger(in.FlightID, r.PassengerID)
		if err != nil {
			return nil, err
		}
		pass := s.issuer.Issue(b, flight, p, p.Ticket.SeatNumber)
		if err := b.MarkCheckedIn(in.FlightID, p.ID, now, domain.CheckedInOnline, pass); err != nil {
			return nil, err
		}
		r.Outcome = OutcomeCheckedIn
		r.SeatNumber = p.Ticket.SeatNumber
		r.BoardingGroup = p.Ticket.BoardingGroup
		r.BoardingPass = &pass
	}

	if err := s.bookings.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("save check-in: %w", err)
	}
	res.CheckedIn = len(pending)
	for _, r := range res.Passengers {
		metrics.CheckIn(string(r.Outcome))
	}
	s.log.InfoContext(ctx, "check-in completed", "reference", b.Reference, "flight_id", flight.ID, "checked_in", res.CheckedIn, "requested", len(in.Passengers))

	for _, i := range pending {
		s.sendNotifications(ctx, b, flight, res.Passengers[i])
	}
	return res, nil
}

func (s *Service) sendNotifications(ctx context.Context, b *domain.Booking, f *domain.Flight, r PassengerResult) {
	if s.notifier == nil {
		return
	}
	seat := r.SeatNumber
	if seat == "" {
		seat = "to be assigned at the airport"
	}
	err := s.notifier.Notify(ctx, notify.NotificationRequest{
		UserID:      b.UserID,
		Type:        notify.TypeCheckInComplete,
		Title:       "Check-in complete",
		Message:     fmt.Sprintf("%s is checked in for flight %s, seat %s.", r.Name, f.FlightNumber, seat),
		RelatedData: notify.RelatedData{BookingID: b.ID, FlightID: f.ID},
		Priority:    notify.PriorityHigh,
	})
	if err != nil {
		s.log.WarnContext(ctx, "check-in notification failed", "reference", b.Reference, "passenger_id", r.PassengerID, "error", err)
	}

	p, _ := b.FindPassenger(f.ID, r.PassengerID)
	err = s.notifier.SendBoardingPassEmail(ctx, notify.BoardingPassEmailRequest{
		BookingReference: b.Reference,
		FlightID:         f.ID,
		FlightNumber:     f.FlightNumber,
		PassengerID:      r.PassengerID,
		PassengerName:    r.Name,
		Email:            b.Contact.Email,
		SeatNumber:       r.SeatNumber,
		FareClass:        string(p.Ticket.SeatClass),
		Gate:             f.Route.Gate,
		BoardingGroup:    r.BoardingGroup,
		BoardingTime:     r.BoardingPass.BoardingTime,
	})
	if err != nil {
		s.log.WarnContext(ctx, "boarding pass email failed", "reference", b.Reference, "passenger_id", r.PassengerID, "error", err)
	}
}

type RosterEntry struct {
	PassengerID   string
	Name          string
	SeatNumber    string
	SeatClass     domain.SeatClass
	BoardingGroup string
	CheckedIn     bool
	CheckedInAt   time.Time
	CheckedInBy   string
}

type SegmentStatus struct {
	FlightID      string
	FlightNumber  string
	DepartureTime time.Time
	Window        EligibilityStatus
	Total         int
	CheckedIn     int
	Passengers    []RosterEntry
}

type StatusResult struct {
	BookingReference string
	BookingStatus    domain.BookingStatus
	Segments         []SegmentStatus
}

// Status lists every passenger of the booking with its check-in state.
func (s *Service) Status(ctx context.Context, reference string) (*StatusResult, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, domain.Validation("bookingReference is required")
	}
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	res := &StatusResult{BookingReference: b.Reference, BookingStatus: b.Status}
	for i := range b.Segments {
		seg := &b.Segments[i]
		f, err := s.flights.GetByID(ctx, seg.FlightID)
		if err != nil {
			return nil, err
		}
		st := SegmentStatus{
			FlightID:      f.ID,
			FlightNumber:  f.FlightNumber,
			DepartureTime: f.Route.DepartureTime,
			Window:        s.window.Evaluate(now, f.Route.DepartureTime),
			Total:         len(seg.Passengers),
			CheckedIn:     seg.CheckedInCount(),
		}
		for _, p := range seg.Passengers {
			st.Passengers = append(st.Passengers, RosterEntry{
				PassengerID:   p.ID,
				Name:          p.FullName(),
				SeatNumber:    p.Ticket.SeatNumber,
				SeatClass:     p.Ticket.SeatClass,
				BoardingGroup: p.Ticket.BoardingGroup,
				CheckedIn:     p.CheckIn.IsCheckedIn,
				CheckedInAt:   p.CheckIn.CheckedInAt,
				CheckedInBy:   p.CheckIn.CheckedInBy,
			})
		}
		res.Segments = append(res.Segments, st)
	}
	return res, nil
}

type BoardingPassView struct {
	BookingReference string
	PassengerID      string
	PassengerName    string
	SeatNumber       string
	SeatClass        domain.SeatClass
	BoardingGroup    string
	Flight           *domain.Flight
	Pass             domain.BoardingPass
}

// BoardingPass returns the pass stored at check-in. It never issues one.
func (s *Service) BoardingPass(ctx context.Context, reference, passengerID string) (*BoardingPassView, error) {
	if strings.TrimSpace(reference) == "" || strings.TrimSpace(passengerID) == "" {
		return nil, domain.Validation("bookingReference and passengerId are required")
	}
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	p, flightID, err := b.FindPassengerAnySegment(passengerID)
	if err != nil {
		return nil, err
	}
	if !p.CheckIn.IsCheckedIn || p.CheckIn.BoardingPass == nil {
		return nil, domain.ErrBoardingPassNotFound
	}
	f, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	return &BoardingPassView{
		BookingReference: b.Reference,
		PassengerID:      p.ID,
		PassengerName:    p.FullName(),
		SeatNumber:       p.Ticket.SeatNumber,
		SeatClass:        p.Ticket.SeatClass,
		BoardingGroup:    p.Ticket.BoardingGroup,
		Flight:           f,
		Pass:             *p.CheckIn.BoardingPass,
	}, nil
}

const qrSize = 256

type MobilePass struct {
	*BoardingPassView
	PNG []byte
}

// MobileBoardingPass renders the stored pass's QR token as a PNG.
func (s *Service) MobileBoardingPass(ctx context.Context, reference, passengerID string) (*MobilePass, error) {
	view, err := s.BoardingPass(ctx, reference, passengerID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(view.Pass.QRCodeData, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return &MobilePass{BoardingPassView: view, PNG: png}, nil
}

var _ UseCase = (*Service)(nil)
