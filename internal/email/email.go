package email

import (
	"context"
	"log/slog"

	"github.com/Domenick1991/aircheckin/internal/notify"
)

// Sender renders boarding pass emails. Mail delivery is outside this
// service, so the rendered message is logged.
type Sender struct {
	log *slog.Logger
}

func NewSender(log *slog.Logger) *Sender {
	return &Sender{log: log}
}

type Message struct {
	To      string
	Subject string
	Body    string
}

func Render(req notify.BoardingPassEmailRequest) Message {
	seat := req.SeatNumber
	if seat == "" {
		seat = "assigned at the airport"
	}
	return Message{
		To:      req.Email,
		Subject: "Your boarding pass for flight " + req.FlightNumber,
		Body: "Dear " + req.PassengerName + ",\n\n" +
			"You are checked in for flight " + req.FlightNumber + " (booking " + req.BookingReference + ").\n" +
			"Seat: " + seat + "\n" +
			"Class: " + req.FareClass + "\n" +
			"Gate: " + req.Gate + "\n" +
			"Boarding group: " + req.BoardingGroup + "\n" +
			"Boarding time: " + req.BoardingTime.UTC().Format("2006-01-02 15:04 MST") + "\n",
	}
}

func (s *Sender) Send(ctx context.Context, req notify.BoardingPassEmailRequest) error {
	msg := Render(req)
	s.log.InfoContext(ctx, "send email", "to", msg.To, "subject", msg.Subject, "reference", req.BookingReference, "passenger_id", req.PassengerID)
	return nil
}
