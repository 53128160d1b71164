package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendGridConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Host       string `mapstructure:"host"`
	From       string `mapstructure:"from"`
	FromName   string `mapstructure:"from_name"`
	SubjPrefix string `mapstructure:"subject_prefix"`
}

type SendGrid struct {
	cfg  SendGridConfig
	from *sgmail.Email
}

var _ Provider = (*SendGrid)(nil)

func NewSendGrid(cfg SendGridConfig) *SendGrid {
	if cfg.Host == "" {
		cfg.Host = sendgridHost
	}
	return &SendGrid{cfg: cfg, from: sgmail.NewEmail(cfg.FromName, cfg.From)}
}

func (s *SendGrid) Name() string { return "sendgrid" }

func (s *SendGrid) Configured() bool { return s.cfg.APIKey != "" && s.cfg.From != "" }

func (s *SendGrid) prepare(to, subject, body string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.cfg.SubjPrefix + subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))
	return m
}

// Send posts one message to the v3 mail send API and returns the
// X-Message-Id assigned by SendGrid. The rest client has no context support;
// the request timeout comes from its default HTTP client.
func (s *SendGrid) Send(_ context.Context, to, subject, body string) (string, error) {
	req := sendgrid.GetRequest(s.cfg.APIKey, sendgridEndpoint, s.cfg.Host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(to, subject, body))

	res, err := sendgrid.API(req)
	if err != nil {
		return "", fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return "", &statusError{code: res.StatusCode, body: res.Body}
	}
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sendgrid returned %d: %s", e.code, e.body)
}

func (e *statusError) permanent() bool {
	return e.code < 500 && e.code != http.StatusTooManyRequests
}
