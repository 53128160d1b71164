package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/EduPortal/internal/config/eduportal"
	"github.com/NordCoder/EduPortal/internal/obs"
	kafkarepo "github.com/NordCoder/EduPortal/internal/repository/kafka"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	wait := flag.Duration("timeout", 60*time.Second, "how long to wait for the broker")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	spec := kafkarepo.TopicSpec{
		Name:              cfg.Kafka.ChangeTopic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.Replication,
		MaxWait:           30 * time.Second,
	}
	if err := kafkarepo.EnsureTopics(ctx, cfg.Kafka.Brokers, l, spec); err != nil {
		l.Fatal("ensure topics", zap.String("topic", spec.Name), zap.Error(err))
	}
	l.Info("kafka-init ok", zap.String("topic", spec.Name), zap.Strings("brokers", cfg.Kafka.Brokers))
}
