package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/announa/blogpost/configs"
	"github.com/announa/blogpost/internal/domain"
)

var dbCounter atomic.Int64

// OpenTestDB opens a private in-memory SQLite database with every table migrated.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Config returns a configuration suitable for tests.
func Config() *configs.Config {
	cfg := new(configs.Config)
	cfg.Server.Mode = "test"
	cfg.Server.FrontendURL = "http://frontend.test"
	cfg.Database.Driver = configs.DriverSQLite
	cfg.Auth.AccessSecret = "test-access-secret"
	cfg.Auth.RefreshSecret = "test-refresh-secret"
	cfg.Auth.AccessTokenExp = 15 * time.Minute
	cfg.Auth.RefreshTokenExp = 24 * time.Hour
	cfg.Auth.ResetTokenExp = 10 * time.Minute
	cfg.Auth.Issuer = "blogpost-test"
	cfg.RateLimit.RPS = 1000
	cfg.RateLimit.Burst = 1000
	return cfg
}

// FakeMailer records password reset links.
type FakeMailer struct {
	mutex sync.Mutex
	Err   error
	Links []string
}

func (m *FakeMailer) SendPasswordReset(_ context.Context, _, _ string, resetURL string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Links = append(m.Links, resetURL)
	return nil
}

func (m *FakeMailer) LastToken(t *testing.T) string {
	t.Helper()
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.Links) == 0 {
		t.Fatalf("no reset link was sent")
	}
	link := m.Links[len(m.Links)-1]
	return link[strings.LastIndex(link, "/")+1:]
}
