package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/auth"
	config "github.com/NordCoder/EduPortal/internal/config/eduportal"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	domainrt "github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs"
	"github.com/NordCoder/EduPortal/internal/obs/retry"
	"github.com/NordCoder/EduPortal/internal/outbox"
	kafkarepo "github.com/NordCoder/EduPortal/internal/repository/kafka"
	pg "github.com/NordCoder/EduPortal/internal/repository/postgres"
	authapi "github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
	contentapi "github.com/NordCoder/EduPortal/internal/services/api-gateway/content"
	notifapi "github.com/NordCoder/EduPortal/internal/services/api-gateway/notification"
	profileapi "github.com/NordCoder/EduPortal/internal/services/api-gateway/profile"
	rtapi "github.com/NordCoder/EduPortal/internal/services/api-gateway/realtime"
	contentsvc "github.com/NordCoder/EduPortal/internal/services/content"
	notifsvc "github.com/NordCoder/EduPortal/internal/services/notification"
	rtsvc "github.com/NordCoder/EduPortal/internal/services/realtime"
	"github.com/NordCoder/EduPortal/internal/transport/email"
	"github.com/NordCoder/EduPortal/internal/transport/sms"
	"github.com/NordCoder/EduPortal/internal/validation"
)

// app holds the wired services and the background parts that main starts.
type app struct {
	authUC   *authapi.Usecase
	registry *rtsvc.Registry
	streams  *rtapi.Server
	routes   []registrar

	outbox  *outbox.Runner
	feed    *rtsvc.Feed
	closers []func() error
	checks  map[string]obs.HealthCheck
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *pg.DB) *app {
	a := &app{checks: map[string]obs.HealthCheck{"postgres": db.Ping}}

	validate := validation.New()
	profiles := pg.NewProfileRepo(db)

	smsClient := sms.New(cfg.SMS, logger)
	notifier := notifsvc.New(
		pg.NewNotificationRepo(db),
		map[domainnotif.Channel]domainnotif.Transport{
			domainnotif.ChannelSMS:   smsClient,
			domainnotif.ChannelEmail: email.New(cfg.Email, logger),
		},
		cfg.Notification,
		logger,
	)

	hub := rtsvc.NewHub(logger)
	a.registry = rtsvc.NewRegistry(hub, logger)

	var events domainrt.Publisher = hub
	if cfg.Kafka.Enable {
		outboxRepo := pg.NewOutboxRepo(db)
		events = outbox.NewPublisher(outboxRepo)

		producer := initProducer(cfg, logger)
		a.closers = append(a.closers, producer.Close)
		a.outbox = outbox.NewOutboxRunner(
			logger,
			outboxRepo,
			outbox.MakeGlobalOutboxHandler(kafkarepo.NewChangeEvents(producer), retry.OutboxPolicy(logger)),
			cfg.Outbox,
		)

		consumer := initFeedConsumer(ctx, cfg, logger)
		a.closers = append(a.closers, consumer.Close)
		a.feed = rtsvc.NewFeed(consumer, hub, logger)
	} else {
		logger.Warn("kafka disabled; change events go straight to in-process subscribers")
	}
	notifier.WithEvents(events)

	content := contentsvc.New(
		pg.NewContentRepo(db.SQL, cfg.DB.QueryTimeout),
		profiles,
		notifier,
		events,
		auth.CtxIdentities{},
		validate,
		logger,
	)

	a.authUC = authapi.NewUseCase(profiles, authapi.Config{
		Secret:    []byte(cfg.Auth.JWTSecret),
		AccessTTL: cfg.Auth.AccessTTL,
	})
	profileUC := profileapi.NewUsecase(pg.NewTransactor(db, logger), profiles, events, notifier, validate, logger)

	a.streams = rtapi.NewServer(logger, a.registry)
	a.routes = append(a.routes,
		authapi.NewServer(a.authUC, profiles, logger),
		profileapi.NewServer(logger, profileUC),
		contentapi.NewServer(logger, content),
		notifapi.NewServer(logger, notifier, smsClient, validate),
		a.streams,
	)
	return a
}

// start launches the outbox drain and the realtime feed, if configured.
func (a *app) start(ctx context.Context, logger *zap.Logger) {
	if a.outbox != nil {
		a.outbox.Start(ctx)
	}
	if a.feed != nil {
		go func() {
			if err := a.feed.Run(ctx); err != nil {
				logger.Error("realtime feed stopped", zap.Error(err))
			}
		}()
	}
}

func (a *app) stop(logger *zap.Logger) {
	a.registry.UnsubscribeAll()
	if a.outbox != nil {
		a.outbox.Wait()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			logger.Warn("close", zap.Error(err))
		}
	}
}
