// Package notify carries check-in side-channel messages: in-app
// notifications and boarding pass emails. Delivery is best effort and never
// part of the check-in commit.
package notify

import (
	"context"
	"time"
)

type Priority string

const PriorityHigh Priority = "high"

const TypeCheckInComplete = "checkin_complete"

type RelatedData struct {
	BookingID string `json:"booking_id"`
	FlightID  string `json:"flight_id"`
}

type NotificationRequest struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id,omitempty"`
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Message     string      `json:"message"`
	RelatedData RelatedData `json:"related_data"`
	Priority    Priority    `json:"priority"`
	CreatedAt   time.Time   `json:"created_at"`
}

type BoardingPassEmailRequest struct {
	ID               string    `json:"id"`
	BookingReference string    `json:"booking_reference"`
	FlightID         string    `json:"flight_id"`
	FlightNumber     string    `json:"flight_number"`
	PassengerID      string    `json:"passenger_id"`
	PassengerName    string    `json:"passenger_name"`
	Email            string    `json:"email"`
	SeatNumber       string    `json:"seat_number,omitempty"`
	FareClass        string    `json:"fare_class"`
	Gate             string    `json:"gate"`
	BoardingGroup    string    `json:"boarding_group"`
	BoardingTime     time.Time `json:"boarding_time"`
}

// Notifier accepts both request kinds. Implementations either publish to a
// transport or, like Dispatcher, queue for later delivery.
type Notifier interface {
	Notify(ctx context.Context, req NotificationRequest) error
	SendBoardingPassEmail(ctx context.Context, req BoardingPassEmailRequest) error
}
