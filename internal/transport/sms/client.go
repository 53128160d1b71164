package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/obs"
	"github.com/NordCoder/EduPortal/internal/obs/retry"
)

type Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccountSID      string        `mapstructure:"account_sid"`
	AuthToken       string        `mapstructure:"auth_token"`
	From            string        `mapstructure:"from"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BulkDelay       time.Duration `mapstructure:"bulk_delay"`
	Attempts        int           `mapstructure:"attempts"`
	SimulateOnError bool          `mapstructure:"simulate_on_error"`
}

var smsDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sms_deliveries_total",
	Help: "SMS delivery outcomes by result (sent, failed, simulated, invalid).",
}, []string{"result"})

type gatewayRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

type gatewayResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

// Client talks to a JSON SMS gateway. It never returns errors; every call
// produces a Delivery.
type Client struct {
	cfg    Config
	http   *http.Client
	policy retry.Policy
	log    *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

var _ notification.Transport = (*Client)(nil)

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BulkDelay < 0 {
		cfg.BulkDelay = 0
	}
	log = obs.Component(log, "transport.sms")
	return &Client{
		cfg:    cfg,
		http:   obs.HTTPClient(cfg.Timeout),
		policy: retry.DeliveryPolicy("sms", cfg.Attempts, log),
		log:    log,
		sleep:  sleepCtx,
	}
}

// Configured reports whether a real gateway is set up.
func (c *Client) Configured() bool {
	return c.cfg.Endpoint != "" && c.cfg.AccountSID != "" && c.cfg.AuthToken != "" && c.cfg.From != ""
}

func (c *Client) Deliver(ctx context.Context, to, _, body string) notification.Delivery {
	if !ValidPhone(to) {
		smsDeliveries.WithLabelValues("invalid").Inc()
		return notification.Delivery{Error: fmt.Sprintf("invalid phone number %q", to)}
	}
	to = FormatPhone(to)

	if !c.Configured() {
		return c.simulate(to, "gateway not configured")
	}

	var sid string
	err := retry.Do(ctx, func() error {
		var err error
		sid, err = c.post(ctx, to, body)
		return err
	}, c.policy)
	if err != nil {
		if c.cfg.SimulateOnError {
			return c.simulate(to, err.Error())
		}
		smsDeliveries.WithLabelValues("failed").Inc()
		obs.WithTrace(ctx, c.log).Warn("sms delivery failed", zap.String("to", to), zap.Error(err))
		return notification.Delivery{Error: err.Error()}
	}

	smsDeliveries.WithLabelValues("sent").Inc()
	obs.WithTrace(ctx, c.log).Debug("sms sent", zap.String("to", to), zap.String("sid", sid))
	return notification.Delivery{Success: true, MessageID: sid}
}

func (c *Client) post(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(gatewayRequest{To: to, From: c.cfg.From, Body: body})
	if err != nil {
		return "", retry.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out gatewayResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		err := fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, msg)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", retry.Permanent(err)
		}
		return "", err
	}
	if out.SID == "" {
		out.SID = uuid.NewString()
	}
	return out.SID, nil
}

func (c *Client) simulate(to, reason string) notification.Delivery {
	smsDeliveries.WithLabelValues("simulated").Inc()
	id := "SIM-" + uuid.NewString()
	c.log.Info("sms simulated", zap.String("to", to), zap.String("reason", reason), zap.String("sid", id))
	return notification.Delivery{Success: true, MessageID: id, Simulated: true}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
