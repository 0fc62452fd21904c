package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/aircheckin/config"
	"github.com/Domenick1991/aircheckin/internal/amqp"
	"github.com/Domenick1991/aircheckin/internal/email"
	"github.com/Domenick1991/aircheckin/internal/kafka"
	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/Domenick1991/aircheckin/internal/push"
	"github.com/Domenick1991/aircheckin/internal/worker"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	cfgPath := pflag.StringP("config", "c", defaultPath, "path to the YAML config file")
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

	var pusher worker.PushSender
	if cfg.PubNub.PublishKey != "" {
		pusher = push.NewPublisher(cfg.PubNub)
	} else {
		log.Warn("pubnub keys not set, notifications will only be logged")
	}
	handler := worker.NewHandler(pusher, email.NewSender(log), log)

	if err := consume(ctx, cfg, handler, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("worker shut down")
}

func consume(ctx context.Context, cfg *config.Config, h *worker.Handler, log *slog.Logger) error {
	switch cfg.Worker.Transport {
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, cfg.Kafka.BoardingPassTopic)
		defer consumer.Close()
		log.Info("consuming kafka", "topics", []string{cfg.Kafka.NotificationsTopic, cfg.Kafka.BoardingPassTopic})
		return consumer.Consume(ctx, h.KafkaHandler(cfg.Kafka.NotificationsTopic, cfg.Kafka.BoardingPassTopic))
	case "amqp":
		client, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.DeclareQueues(cfg.AMQP.NotificationsQueue, cfg.AMQP.BoardingPassQueue); err != nil {
			return err
		}
		log.Info("consuming rabbitmq", "queues", []string{cfg.AMQP.NotificationsQueue, cfg.AMQP.BoardingPassQueue})
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return client.Consume(ctx, cfg.AMQP.NotificationsQueue, log, h.HandleNotification) })
		g.Go(func() error { return client.Consume(ctx, cfg.AMQP.BoardingPassQueue, log, h.HandleBoardingPassEmail) })
		return g.Wait()
	default:
		log.Info("no worker transport configured, idling")
		<-ctx.Done()
		return nil
	}
}
