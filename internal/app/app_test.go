package app

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/announa/blogpost/configs"
	"github.com/announa/blogpost/internal/adapters"
	"github.com/announa/blogpost/internal/domain"
	authservice "github.com/announa/blogpost/internal/service/auth-service"
	"github.com/announa/blogpost/internal/testutil"
)

func TestOpenStoragesSQLite(t *testing.T) {
	cfg := testutil.Config()
	cfg.Database.Path = filepath.Join(t.TempDir(), "blogpost.db")
	ctx := context.Background()

	store, err := openStorages(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.close(ctx) })

	require.NoError(t, store.pinger.Ping(ctx))

	user, err := domain.NewUser("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, store.users.Create(ctx, user))
	_, err = store.users.GetByEmail(ctx, "alice@example.com")
	assert.NoError(t, err)
}

func TestOpenStoragesUnknownDriver(t *testing.T) {
	cfg := testutil.Config()
	cfg.Database.Driver = "oracle"

	_, err := openStorages(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, configs.ErrInvalidConfig)
}

func TestNewLogger(t *testing.T) {
	cfg := testutil.Config()
	cfg.Log.Level = "debug"
	logger, err := newLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.Log.Level = "loud"
	_, err = newLogger(cfg)
	assert.Error(t, err)

	cfg.Log.Development = true
	_, err = newLogger(cfg)
	assert.NoError(t, err)
}

func TestFallbacksWithoutExternalServices(t *testing.T) {
	cfg := testutil.Config()
	logger := zaptest.NewLogger(t)

	deny, err := newDenylist(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.Same(t, deny.memory, deny.denylist)
	assert.NoError(t, deny.close())

	assert.IsType(t, &adapters.LogMailer{}, newMailer(cfg, logger))

	cfg.Mail.SendgridAPIKey = "key"
	assert.IsType(t, &adapters.SendgridMailer{}, newMailer(cfg, logger))
}

// fakeRedis answers PING and reports when a client connection is closed.
func fakeRedis(t *testing.T) (string, <-chan struct{}) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	closed := make(chan struct{}, 8)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						closed <- struct{}{}
						return
					}
					// single argument commands only: reply after the argument line
					if strings.HasPrefix(line, "$") || strings.HasPrefix(line, "*") {
						continue
					}
					_, _ = conn.Write([]byte("+PONG\r\n"))
				}
			}()
		}
	}()
	return listener.Addr().String(), closed
}

func TestRedisDenylistIsClosed(t *testing.T) {
	cfg := testutil.Config()
	addr, closed := fakeRedis(t)
	cfg.Redis.Addr = addr

	deny, err := newDenylist(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, deny.memory)
	assert.IsType(t, &adapters.RedisDenylist{}, deny.denylist)

	require.NoError(t, deny.close())
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("redis connection was not closed")
	}
}

func TestRedisDenylistUnreachable(t *testing.T) {
	cfg := testutil.Config()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Redis.Addr = listener.Addr().String()
	require.NoError(t, listener.Close())

	_, err = newDenylist(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestJanitorSweep(t *testing.T) {
	cfg := testutil.Config()
	logger := zaptest.NewLogger(t)
	db := testutil.OpenTestDB(t)
	ctx := context.Background()

	tokens := adapters.NewTokenStorage(db, logger)
	denylist := adapters.NewMemoryDenylist()
	limiter := adapters.NewRateLimiter(1, 1, logger)
	service, err := authservice.NewAuthService(
		adapters.NewUserStorage(db, logger), tokens, adapters.NewProviderJWT(cfg, logger),
		denylist, &testutil.FakeMailer{}, logger,
		authservice.Options{RefreshTokenExp: time.Hour, ResetTokenExp: time.Minute},
	)
	require.NoError(t, err)

	expired := domain.NewRefreshToken("user-1", "", "", -time.Minute)
	expired.TokenHash = "hash"
	require.NoError(t, tokens.Create(ctx, expired))

	j := &janitor{interval: time.Hour, auth: service, denylist: denylist, limiter: limiter, logger: logger}
	j.sweep(ctx)

	_, err = tokens.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJanitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	j := &janitor{interval: time.Hour, logger: zaptest.NewLogger(t)}
	go func() {
		j.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
