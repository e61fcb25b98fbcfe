package adapters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestMailer(t *testing.T, handler http.HandlerFunc) *SendgridMailer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSendgridMailer("test-key", server.URL, "no-reply@example.com", "Blogpost",
		2, time.Millisecond, zaptest.NewLogger(t))
}

func TestSendgridMailerSends(t *testing.T) {
	var body map[string]any
	mailer := newTestMailer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendgridMailPath, r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusAccepted)
	})

	err := mailer.SendPasswordReset(context.Background(), "alice@example.com", "alice", "http://frontend.test/reset-password/abc")
	require.NoError(t, err)
	assert.Equal(t, "Password reset", body["subject"])
	assert.Contains(t, string(mustJSON(t, body["content"])), "reset-password/abc")
}

func TestSendgridMailerRetries(t *testing.T) {
	var calls atomic.Int32
	mailer := newTestMailer(t, func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	})

	require.NoError(t, mailer.SendPasswordReset(context.Background(), "alice@example.com", "alice", "link"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendgridMailerGivesUp(t *testing.T) {
	var calls atomic.Int32
	mailer := newTestMailer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := mailer.SendPasswordReset(context.Background(), "alice@example.com", "alice", "link")
	assert.ErrorIs(t, err, ErrMaxRetry)
	assert.ErrorIs(t, err, ErrMailServer)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendgridMailerNoWaitAfterLastAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)
	mailer := NewSendgridMailer("test-key", server.URL, "no-reply@example.com", "Blogpost",
		0, time.Hour, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	err := mailer.SendPasswordReset(ctx, "alice@example.com", "alice", "link")
	assert.ErrorIs(t, err, ErrMaxRetry)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendgridMailerRejected(t *testing.T) {
	var calls atomic.Int32
	mailer := newTestMailer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := mailer.SendPasswordReset(context.Background(), "alice@example.com", "alice", "link")
	assert.ErrorIs(t, err, ErrMailRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, shouldRetry(nil))
	assert.True(t, shouldRetry(&RetryableError{RetryAfter: time.Second}))
	assert.True(t, shouldRetry(ErrMailServer))
	assert.False(t, shouldRetry(ErrMailRejected))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
