package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/EduPortal/internal/config/reminder"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/obs"
	"github.com/NordCoder/EduPortal/internal/outbox"
	pg "github.com/NordCoder/EduPortal/internal/repository/postgres"
	notifsvc "github.com/NordCoder/EduPortal/internal/services/notification"
	"github.com/NordCoder/EduPortal/internal/services/reminder"
	"github.com/NordCoder/EduPortal/internal/transport/email"
	"github.com/NordCoder/EduPortal/internal/transport/sms"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	flag.Parse()

	// init
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting reminder",
		zap.Duration("tick", cfg.Sched.Tick),
		zap.Duration("window", cfg.Sched.Window),
		zap.String("metrics_addr", cfg.Sched.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, &cfg.OTEL)
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// run metrics server
	ms := obs.BootstrapMetricsServer(cfg.Sched.MetricsAddr, map[string]obs.HealthCheck{"postgres": db.Ping}, l)

	// wiring
	notifier := notifsvc.New(
		pg.NewNotificationRepo(db),
		map[domainnotif.Channel]domainnotif.Transport{
			domainnotif.ChannelSMS:   sms.New(cfg.SMS, l),
			domainnotif.ChannelEmail: email.New(cfg.Email, l),
		},
		cfg.Notification,
		l,
	)
	if cfg.Sched.PublishChanges {
		// the api process relays the outbox to its live subscribers
		notifier.WithEvents(outbox.NewPublisher(pg.NewOutboxRepo(db)))
	}
	uc := reminder.NewUC(
		pg.NewContentRepo(db.SQL, cfg.DB.QueryTimeout),
		pg.NewProfileRepo(db),
		notifier,
		l,
	)
	uc.MaxAttempts = cfg.Sched.MaxAttempts
	runner := reminder.New(obs.Component(l, "reminder.runner"), uc, &cfg.Sched)

	// run
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("reminder started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
