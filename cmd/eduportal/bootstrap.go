package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/EduPortal/internal/config/eduportal"
	"github.com/NordCoder/EduPortal/internal/obs"
	kafkarepo "github.com/NordCoder/EduPortal/internal/repository/kafka"
	pg "github.com/NordCoder/EduPortal/internal/repository/postgres"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.AsLoggerConfig())
}

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	closer, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	return closer.Shutdown, nil
}

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.NewDB(ctx, cfg.DB)
}

func changeTopic(cfg *config.Config) kafkarepo.TopicSpec {
	return kafkarepo.TopicSpec{
		Name:              cfg.Kafka.ChangeTopic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.Replication,
	}
}

func initProducer(cfg *config.Config, logger *zap.Logger) *kafkarepo.Producer {
	return kafkarepo.NewProducer(kafkarepo.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.ChangeTopic,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}).WithLogger(logger)
}

func initFeedConsumer(ctx context.Context, cfg *config.Config, logger *zap.Logger) *kafkarepo.Consumer {
	return kafkarepo.BootstrapConsumer(ctx, &kafkarepo.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.FeedGroupID,
		Topic:   cfg.Kafka.ChangeTopic,
	}, changeTopic(cfg), obs.Component(logger, "realtime.feed"))
}
