package validate

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/types"
)

// AlertSink delivers an anomaly summary somewhere a human will see it.
type AlertSink interface {
	Send(ctx context.Context, subject string, lines []string) error
}

// NewSink builds the configured alert sink. EMAIL mode falls back to logging
// when the SMTP environment is incomplete so a run never silently drops its
// alerts.
func NewSink(ctx context.Context, cfg *store.Config) AlertSink {
	if cfg.Alerts.Mode == "EMAIL" {
		sink, err := NewSMTPSink()
		if err == nil {
			return sink
		}
		logger.Warn(ctx, "SMTP alert sink unavailable, falling back to log", "error", err)
	}
	return LogSink{}
}

// AlertLines collects the human-readable anomaly summary for a run: every
// non-OK validation verdict plus tickers whose tables gained no rows.
func AlertLines(entries []Entry, diffs map[string]types.RowDiff) []string {
	var lines []string
	for _, e := range entries {
		if e.Status == StatusOK {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", e.Symbol, e.Status, e.Issues))
	}
	for sym, d := range diffs {
		if d.NewRows <= 0 {
			lines = append(lines, fmt.Sprintf("%s: no new rows (yesterday %d, today %d)", sym, d.Yesterday, d.Today))
		}
	}
	return lines
}

// SendAlerts delivers the anomaly summary when there is one.
func SendAlerts(ctx context.Context, sink AlertSink, subject string, lines []string) error {
	if len(lines) == 0 {
		logger.Info(ctx, "No anomalies to alert on")
		return nil
	}
	return sink.Send(ctx, subject, lines)
}

// LogSink writes the alert summary to the structured log.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, subject string, lines []string) error {
	logger.Warn(ctx, subject, "anomalies", len(lines), "summary", strings.Join(lines, " | "))
	return nil
}

// SMTPSink emails the alert summary. Configured entirely from environment
// variables so credentials stay out of the config file.
type SMTPSink struct {
	host string
	port string
	user string
	pass string
	from string
	to   []string
}

// NewSMTPSink reads SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS, ALERT_FROM
// and ALERT_TO (comma-separated) from the environment.
func NewSMTPSink() (*SMTPSink, error) {
	s := &SMTPSink{
		host: os.Getenv("SMTP_HOST"),
		port: os.Getenv("SMTP_PORT"),
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: os.Getenv("ALERT_FROM"),
	}
	if to := os.Getenv("ALERT_TO"); to != "" {
		for _, addr := range strings.Split(to, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				s.to = append(s.to, addr)
			}
		}
	}
	if s.host == "" || s.port == "" || s.from == "" || len(s.to) == 0 {
		return nil, fmt.Errorf("incomplete SMTP configuration")
	}
	return s, nil
}

func (s *SMTPSink) Send(ctx context.Context, subject string, lines []string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, strings.Join(s.to, ", "), subject, strings.Join(lines, "\r\n"))

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, s.to, []byte(msg)); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	logger.Info(ctx, "Alert email sent", "recipients", len(s.to), "anomalies", len(lines))
	return nil
}
