// Package worker delivers queued check-in messages: in-app notifications
// go to push, boarding pass emails go to the mail sender.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Domenick1991/aircheckin/internal/metrics"
	"github.com/Domenick1991/aircheckin/internal/notify"
	"github.com/segmentio/kafka-go"
)

type PushSender interface {
	Send(ctx context.Context, req notify.NotificationRequest) error
}

type EmailSender interface {
	Send(ctx context.Context, req notify.BoardingPassEmailRequest) error
}

type Handler struct {
	push  PushSender
	email EmailSender
	log   *slog.Logger
}

// push may be nil; notifications are then only logged.
func NewHandler(push PushSender, email EmailSender, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{push: push, email: email, log: log}
}

// HandleNotification decodes and delivers one notification. Delivery is
// best effort: undecodable payloads and failed sends are logged, counted and
// dropped, so the consumer keeps running.
func (h *Handler) HandleNotification(ctx context.Context, data []byte) error {
	var req notify.NotificationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.log.WarnContext(ctx, "decode notification", "error", err)
		metrics.NotificationFailure("notification", "decode")
		return nil
	}
	if h.push == nil {
		h.log.InfoContext(ctx, "notification", "id", req.ID, "type", req.Type, "user_id", req.UserID, "title", req.Title)
		return nil
	}
	if err := h.push.Send(ctx, req); err != nil {
		h.log.WarnContext(ctx, "push notification failed", "id", req.ID, "user_id", req.UserID, "error", err)
		metrics.NotificationFailure("notification", "push")
	}
	return nil
}

func (h *Handler) HandleBoardingPassEmail(ctx context.Context, data []byte) error {
	var req notify.BoardingPassEmailRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.log.WarnContext(ctx, "decode boarding pass email", "error", err)
		metrics.NotificationFailure("boarding_pass_email", "decode")
		return nil
	}
	if req.Email == "" {
		h.log.WarnContext(ctx, "boarding pass email without recipient", "id", req.ID, "reference", req.BookingReference)
		return nil
	}
	if err := h.email.Send(ctx, req); err != nil {
		h.log.WarnContext(ctx, "boarding pass email failed", "id", req.ID, "reference", req.BookingReference, "error", err)
		metrics.NotificationFailure("boarding_pass_email", "send")
	}
	return nil
}

// KafkaHandler routes messages by topic. Messages on other topics are
// skipped.
func (h *Handler) KafkaHandler(notificationsTopic, boardingPassTopic string) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		switch msg.Topic {
		case notificationsTopic:
			return h.HandleNotification(ctx, msg.Value)
		case boardingPassTopic:
			return h.HandleBoardingPassEmail(ctx, msg.Value)
		default:
			h.log.WarnContext(ctx, "message on unexpected topic", "topic", msg.Topic)
			return nil
		}
	}
}
