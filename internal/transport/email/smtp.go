package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Addr       string        `mapstructure:"addr"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	From       string        `mapstructure:"from"`
	UseTLS     bool          `mapstructure:"use_tls"`
	SkipVerify bool          `mapstructure:"skip_verify"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subject_prefix"`
}

// SMTPMailer sends plain-text mail over SMTP, with implicit TLS when
// configured.
type SMTPMailer struct {
	cfg  SMTPConfig
	auth smtp.Auth
	log  *zap.Logger
}

var _ Provider = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg SMTPConfig, log *zap.Logger) *SMTPMailer {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host(cfg.Addr))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.L()
	}
	return &SMTPMailer{cfg: cfg, auth: auth, log: log.With(zap.String("provider", "smtp"))}
}

func (m *SMTPMailer) Name() string { return "smtp" }

func (m *SMTPMailer) Configured() bool { return m.cfg.Addr != "" && m.cfg.From != "" }

// headerLine folds CR and LF out of a header value so callers cannot
// start new header lines.
var headerLine = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func headerValue(s string) string {
	return strings.TrimSpace(headerLine.Replace(s))
}

func (m *SMTPMailer) message(id, to, subject, body string) []byte {
	subj := headerValue(m.cfg.SubjPrefix + " " + subject)
	return []byte(
		"From: " + headerValue(m.cfg.From) + "\r\n" +
			"To: " + headerValue(to) + "\r\n" +
			"Subject: " + subj + "\r\n" +
			"Message-ID: <" + id + "@" + host(m.cfg.Addr) + ">\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" + body + "\r\n")
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	id := uuid.NewString()
	msg := m.message(id, to, subject, body)

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_addr", m.cfg.Addr),
		zap.Bool("tls", m.cfg.UseTLS),
		zap.String("to", to),
	)

	dialer := net.Dialer{Timeout: m.cfg.Timeout}
	var (
		conn net.Conn
		err  error
	)
	if m.cfg.UseTLS {
		td := tls.Dialer{NetDialer: &dialer, Config: &tls.Config{
			ServerName:         host(m.cfg.Addr),
			InsecureSkipVerify: m.cfg.SkipVerify,
		}}
		conn, err = td.DialContext(ctx, "tcp", m.cfg.Addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", m.cfg.Addr)
	}
	if err != nil {
		return "", fmt.Errorf("smtp dial: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	c, err := smtp.NewClient(conn, host(m.cfg.Addr))
	if err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("smtp client: %w", err)
	}
	defer func() { _ = c.Close() }()

	if !m.cfg.UseTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host(m.cfg.Addr), InsecureSkipVerify: m.cfg.SkipVerify}); err != nil {
				return "", fmt.Errorf("smtp STARTTLS: %w", err)
			}
		}
	}
	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return "", fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return "", fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return "", fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return "", fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("smtp close: %w", err)
	}
	_ = c.Quit()

	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))
	return id, nil
}

func host(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}
