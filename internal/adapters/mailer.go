package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const sendgridMailPath = "/v3/mail/send"

var (
	ErrMailRejected = errors.New("mail provider rejected the message")
	ErrMailServer   = errors.New("mail provider error")
	ErrMaxRetry     = errors.New("max retries exceeded")
)

type RetryableError struct {
	RetryAfter time.Duration
	Message    string
}

func (re *RetryableError) Error() string {
	return fmt.Sprintf("msg: %s, timeout: %v", re.Message, re.RetryAfter)
}

type SendgridMailer struct {
	client     *sendgrid.Client
	fromEmail  string
	fromName   string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewSendgridMailer(apiKey, host, fromEmail, fromName string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *SendgridMailer {
	client := sendgrid.NewSendClient(apiKey)
	if host != "" {
		client.BaseURL = strings.TrimRight(host, "/") + sendgridMailPath
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &SendgridMailer{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

func (m *SendgridMailer) SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	subject := "Password reset"
	plainText, html := resetMessage(toName, resetURL)

	message := mail.NewSingleEmail(from, subject, to, plainText, html)
	return m.send(ctx, message)
}

func (m *SendgridMailer) send(ctx context.Context, message *mail.SGMailV3) error {
	retryDelay := m.retryDelay
	var err error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		err = m.doSend(ctx, message)
		if err == nil {
			return nil
		}
		var retrErr *RetryableError
		if errors.As(err, &retrErr) {
			retryDelay = retrErr.RetryAfter
		}

		if !shouldRetry(err) || attempt == m.maxRetries {
			break
		}

		m.logger.Info("retry mail", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-time.After(retryDelay):
			retryDelay = m.retryDelay
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !shouldRetry(err) {
		return err
	}
	return errors.Join(fmt.Errorf("maximum number of repeated requests: %w", ErrMaxRetry), err)
}

func (m *SendgridMailer) doSend(ctx context.Context, message *mail.SGMailV3) error {
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		m.logger.Debug("mail accepted", zap.Int("status", resp.StatusCode))
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RetryableError{
			RetryAfter: m.parseRetryAfter(firstHeader(resp.Headers, "Retry-After")),
			Message:    "too many requests",
		}
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrMailServer, resp.StatusCode)
	default:
		m.logger.Warn("mail rejected", zap.Int("status", resp.StatusCode), zap.String("body", resp.Body))
		return fmt.Errorf("%w: status %d", ErrMailRejected, resp.StatusCode)
	}
}

func (m *SendgridMailer) parseRetryAfter(value string) time.Duration {
	if sec, err := strconv.Atoi(value); err == nil {
		return time.Duration(sec) * time.Second
	} else if date, err := http.ParseTime(value); err == nil {
		return time.Until(date)
	}
	if value != "" {
		m.logger.Warn("invalid Retry-After header", zap.String("value", value))
	}
	return m.retryDelay
}

func firstHeader(headers map[string][]string, key string) string {
	values := http.Header(headers).Values(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var retrErr *RetryableError
	if errors.As(err, &retrErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, ErrMailServer)
}

func resetMessage(name, resetURL string) (string, string) {
	if name == "" {
		name = "there"
	}
	plainText := fmt.Sprintf(
		"Hi %s,\n\nYou requested a password reset. Open the link below to choose a new password:\n\n%s\n\n"+
			"If you did not request this, you can ignore this email.", name, resetURL)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>You requested a password reset. "+
			"<a href=\"%s\">Click here to choose a new password</a>.</p>"+
			"<p>If you did not request this, you can ignore this email.</p>", name, resetURL)
	return plainText, html
}

// LogMailer writes reset links to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, toEmail, _ string, resetURL string) error {
	m.logger.Info("password reset requested", zap.String("email", toEmail), zap.String("reset_url", resetURL))
	return nil
}
