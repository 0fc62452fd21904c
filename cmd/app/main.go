package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/aircheckin/api"
	"github.com/Domenick1991/aircheckin/config"
	"github.com/Domenick1991/aircheckin/internal/amqp"
	"github.com/Domenick1991/aircheckin/internal/auth"
	"github.com/Domenick1991/aircheckin/internal/bootstrap"
	"github.com/Domenick1991/aircheckin/internal/cache"
	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/kafka"
	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/Domenick1991/aircheckin/internal/notify"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/Domenick1991/aircheckin/internal/service/checkin"
	"github.com/Domenick1991/aircheckin/internal/service/flights"
	"github.com/Domenick1991/aircheckin/internal/service/seats"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

func main() {
	cfgPath := pflag.StringP("config", "c", defaultConfigPath(), "path to the YAML config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

type stores struct {
	flights  repository.FlightRepository
	bookings repository.BookingRepository
	ledger   repository.SeatLedger
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, clk clock.Clock) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		mem := repository.NewMemoryStore(clk)
		if err := mem.LoadSeed(cfg.Storage.SeedFile); err != nil {
			return nil, err
		}
		return &stores{flights: mem.Flights(), bookings: mem, ledger: mem, close: func() {}}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	bookings := repository.NewBookingRepository(pool)
	return &stores{flights: repository.NewFlightRepository(pool), bookings: bookings, ledger: bookings, close: pool.Close}, nil
}

func newSink(ctx context.Context, cfg *config.Config, log *slog.Logger) (notify.Notifier, func(), error) {
	switch cfg.Notifications.Transport {
	case "kafka":
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		sink := kafka.NotifierOrFallback(checkCtx, producer, cfg.Kafka.NotificationsTopic, cfg.Kafka.BoardingPassTopic, notify.LogSink{Log: log}, log)
		return sink, func() { _ = producer.Close() }, nil
	case "amqp":
		client, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.DeclareQueues(cfg.AMQP.NotificationsQueue, cfg.AMQP.BoardingPassQueue); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return amqp.NewNotifier(client, cfg.AMQP.NotificationsQueue, cfg.AMQP.BoardingPassQueue), func() { _ = client.Close() }, nil
	default:
		return notify.LogSink{Log: log}, func() {}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	clk := clock.Real()

	st, err := openStores(ctx, cfg, clk)
	if err != nil {
		return err
	}
	defer st.close()

	var (
		flightCache  flights.FlightCache
		seatMapCache seats.SeatMapCache
		limiter      api.Limiter
	)
	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Seats)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, running without cache and rate limiting", "addr", cfg.Redis.Addr, "error", err)
	} else {
		flightCache, seatMapCache = redisCache, redisCache
		if cfg.RateLimit.Enabled {
			limiter = cache.NewTokenBucket(redisCache.Client(), cfg.RateLimit, clk)
		}
	}

	sink, closeSink, err := newSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	dispatcher := notify.NewDispatcher(sink, notify.DispatcherOptions{
		QueueSize: cfg.Notifications.QueueSize,
		Workers:   cfg.Notifications.Workers,
		Timeout:   cfg.Notifications.Timeout,
		Clock:     clk,
	}, log)
	defer dispatcher.Close()

	flightService := flights.NewFlightService(st.flights, flightCache, log)
	inventory := seats.NewInventory(flightService, st.ledger, seatMapCache, log)
	reservation := seats.NewReservationService(st.bookings, flightService, inventory, log)
	assigner := seats.NewAutoAssigner(st.bookings, inventory, cfg.CheckIn.AutoAssignAttempts, log)
	checkinService := checkin.NewService(
		st.bookings,
		flightService,
		assigner,
		checkin.NewIssuer(clk, nil, cfg.CheckIn.BoardingBefore),
		dispatcher,
		checkin.Options{
			Window: checkin.Window{OpensBefore: cfg.CheckIn.OpensBefore, ClosesBefore: cfg.CheckIn.ClosesBefore},
			Clock:  clk,
		},
		log,
	)

	router := api.NewRouter(api.RouterDeps{
		CheckIn:  api.NewCheckInHandler(checkinService),
		Seats:    api.NewSeatHandler(inventory, reservation),
		Flights:  api.NewFlightHandler(flightService),
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret, clk),
		Limiter:  limiter,
		Log:      log,
	})

	return bootstrap.Run(ctx, cfg, router, log)
}
