package push

import (
	"context"
	"fmt"

	"github.com/Domenick1991/aircheckin/config"
	"github.com/Domenick1991/aircheckin/internal/notify"
	pubnub "github.com/pubnub/go/v7"
)

type publishFunc func(channel string, message any) error

// Publisher sends in-app notifications on the per-user PubNub channel.
type Publisher struct {
	publish publishFunc
}

func NewPublisher(cfg config.PubNubConfig) *Publisher {
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pn := pubnub.NewPubNub(pnConfig)

	return &Publisher{publish: func(channel string, message any) error {
		_, status, err := pn.Publish().Channel(channel).Message(message).Execute()
		if err != nil {
			return err
		}
		if status.Error != nil {
			return status.Error
		}
		return nil
	}}
}

// Channel names the PubNub channel for a user. Notifications without a
// user go to the booking channel.
func Channel(req notify.NotificationRequest) string {
	if req.UserID != "" {
		return "user-" + req.UserID
	}
	return "booking-" + req.RelatedData.BookingID
}

func (p *Publisher) Send(ctx context.Context, req notify.NotificationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := map[string]any{
		"id":         req.ID,
		"type":       req.Type,
		"title":      req.Title,
		"message":    req.Message,
		"priority":   req.Priority,
		"booking_id": req.RelatedData.BookingID,
		"flight_id":  req.RelatedData.FlightID,
	}
	if err := p.publish(Channel(req), msg); err != nil {
		return fmt.Errorf("pubnub publish: %w", err)
	}
	return nil
}
