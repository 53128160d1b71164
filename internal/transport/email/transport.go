package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcnijman/go-emailaddress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/obs"
	"github.com/NordCoder/EduPortal/internal/obs/retry"
)

// Provider is one way of handing a message to a mail system.
type Provider interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, to, subject, body string) (messageID string, err error)
}

type Config struct {
	Provider        string         `mapstructure:"provider"`
	Attempts        int            `mapstructure:"attempts"`
	SimulateOnError bool           `mapstructure:"simulate_on_error"`
	SMTP            SMTPConfig     `mapstructure:"smtp"`
	SendGrid        SendGridConfig `mapstructure:"sendgrid"`
}

var emailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "email_deliveries_total",
	Help: "Email delivery outcomes by provider and result.",
}, []string{"provider", "result"})

type Transport struct {
	provider        Provider
	simulateOnError bool
	policy          retry.Policy
	log             *zap.Logger
}

var _ notification.Transport = (*Transport)(nil)

// New picks the provider named in cfg. Unknown names and "simulate" leave
// the transport without a provider, so every send is simulated.
func New(cfg Config, log *zap.Logger) *Transport {
	log = obs.Component(log, "transport.email")

	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		p = NewSMTPMailer(cfg.SMTP, log)
	case "sendgrid":
		p = NewSendGrid(cfg.SendGrid)
	case "", "simulate":
	default:
		log.Warn("unknown email provider; simulating", zap.String("provider", cfg.Provider))
	}
	return NewWithProvider(p, cfg.SimulateOnError, cfg.Attempts, log)
}

func NewWithProvider(p Provider, simulateOnError bool, attempts int, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.L()
	}
	return &Transport{
		provider:        p,
		simulateOnError: simulateOnError,
		policy:          retry.DeliveryPolicy("email", attempts, log),
		log:             log,
	}
}

func (t *Transport) providerName() string {
	if t.provider == nil {
		return "simulate"
	}
	return t.provider.Name()
}

// ValidAddress reports whether s parses as a single mailbox address.
func ValidAddress(s string) bool {
	_, err := emailaddress.Parse(strings.TrimSpace(s))
	return err == nil
}

func (t *Transport) Deliver(ctx context.Context, to, subject, body string) notification.Delivery {
	to = strings.TrimSpace(to)
	addr, err := emailaddress.Parse(to)
	if err != nil {
		emailDeliveries.WithLabelValues(t.providerName(), "invalid").Inc()
		return notification.Delivery{Error: fmt.Sprintf("invalid email address %q", to)}
	}

	if t.provider == nil || !t.provider.Configured() {
		return t.simulate(addr.String(), "provider not configured")
	}

	var id string
	err = retry.Do(ctx, func() error {
		var err error
		id, err = t.provider.Send(ctx, addr.String(), subject, body)
		var se *statusError
		if errors.As(err, &se) && se.permanent() {
			return retry.Permanent(err)
		}
		return err
	}, t.policy)
	if err != nil {
		if t.simulateOnError {
			return t.simulate(addr.String(), err.Error())
		}
		emailDeliveries.WithLabelValues(t.providerName(), "failed").Inc()
		obs.WithTrace(ctx, t.log).Warn("email delivery failed",
			zap.String("provider", t.providerName()), zap.String("to", addr.String()), zap.Error(err))
		return notification.Delivery{Error: err.Error()}
	}

	if id == "" {
		id = uuid.NewString()
	}
	emailDeliveries.WithLabelValues(t.providerName(), "sent").Inc()
	return notification.Delivery{Success: true, MessageID: id}
}

// SendBulk delivers the same message to every recipient and returns one
// result per recipient, in order.
func (t *Transport) SendBulk(ctx context.Context, recipients []string, subject, body string) []notification.Delivery {
	out := make([]notification.Delivery, len(recipients))
	for i, to := range recipients {
		out[i] = t.Deliver(ctx, to, subject, body)
	}
	return out
}

func (t *Transport) simulate(to, reason string) notification.Delivery {
	emailDeliveries.WithLabelValues(t.providerName(), "simulated").Inc()
	id := "SIM-" + uuid.NewString()
	t.log.Info("email simulated", zap.String("to", to), zap.String("reason", reason), zap.String("message_id", id))
	return notification.Delivery{Success: true, MessageID: id, Simulated: true}
}
