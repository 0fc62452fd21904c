package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/metrics"
	"github.com/google/uuid"
)

const (
	kindNotification = "notification"
	kindEmail        = "boarding_pass_email"
)

type job struct {
	ctx          context.Context
	notification *NotificationRequest
	email        *BoardingPassEmailRequest
}

func (j job) kind() string {
	if j.email != nil {
		return kindEmail
	}
	return kindNotification
}

type DispatcherOptions struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
	Clock     clock.Clock
	Breaker   *Breaker
}

// Dispatcher queues requests and delivers them to the sink from a fixed
// pool of workers. Enqueueing never blocks; a full queue drops the request.
type Dispatcher struct {
	sink    Notifier
	queue   chan job
	timeout time.Duration
	clock   clock.Clock
	breaker *Breaker
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sink Notifier, opts DispatcherOptions, log *slog.Logger) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(DefaultBreakerSettings(), opts.Clock)
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan job, opts.QueueSize),
		timeout: opts.Timeout,
		clock:   opts.Clock,
		breaker: opts.Breaker,
		log:     log,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, req NotificationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = d.clock.Now()
	}
	return d.enqueue(job{ctx: ctx, notification: &req})
}

func (d *Dispatcher) SendBoardingPassEmail(ctx context.Context, req BoardingPassEmailRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return d.enqueue(job{ctx: ctx, email: &req})
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.NotificationFailure(j.kind(), "closed")
		return fmt.Errorf("%w: dispatcher closed", domain.ErrNotificationFailed)
	}
	select {
	case d.queue <- j:
		return nil
	default:
		metrics.NotificationFailure(j.kind(), "queue_full")
		return fmt.Errorf("%w: queue full", domain.ErrNotificationFailed)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	// The request context usually ends with the HTTP response; keep its
	// values but not its cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.timeout)
	defer cancel()

	err := d.breaker.Execute(func() error {
		if j.email != nil {
			return d.sink.SendBoardingPassEmail(ctx, *j.email)
		}
		return d.sink.Notify(ctx, *j.notification)
	})
	if err == nil {
		return
	}

	reason := "transport"
	switch {
	case errors.Is(err, ErrBreakerOpen):
		reason = "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	}
	metrics.NotificationFailure(j.kind(), reason)
	d.log.WarnContext(ctx, "notification delivery failed", "kind", j.kind(), "reason", reason, "error", err)
}

// Close stops accepting requests and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

// LogSink is the sink for the "none" transport.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, req NotificationRequest) error {
	s.Log.InfoContext(ctx, "notification", "id", req.ID, "type", req.Type, "user_id", req.UserID, "booking_id", req.RelatedData.BookingID)
	return nil
}

func (s LogSink) SendBoardingPassEmail(ctx context.Context, req BoardingPassEmailRequest) error {
	s.Log.InfoContext(ctx, "boarding pass email", "id", req.ID, "email", req.Email, "reference", req.BookingReference, "passenger_id", req.PassengerID)
	return nil
}

var (
	_ Notifier = (*Dispatcher)(nil)
	_ Notifier = LogSink{}
)
