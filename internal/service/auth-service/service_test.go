package authservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/announa/blogpost/internal/adapters"
	"github.com/announa/blogpost/internal/domain"
	authservice "github.com/announa/blogpost/internal/service/auth-service"
	"github.com/announa/blogpost/internal/testutil"
)

type fixture struct {
	service  *authservice.AuthService
	users    *adapters.UserStorageImpl
	tokens   *adapters.TokenStorageImpl
	jwt      *adapters.ProviderJWT
	denylist *adapters.MemoryDenylist
	mailer   *testutil.FakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := testutil.Config()
	db := testutil.OpenTestDB(t)

	f := &fixture{
		users:    adapters.NewUserStorage(db, logger),
		tokens:   adapters.NewTokenStorage(db, logger),
		jwt:      adapters.NewProviderJWT(cfg, logger),
		denylist: adapters.NewMemoryDenylist(),
		mailer:   &testutil.FakeMailer{},
	}
	service, err := authservice.NewAuthService(f.users, f.tokens, f.jwt, f.denylist, f.mailer, logger,
		authservice.Options{
			RefreshTokenExp: cfg.Auth.RefreshTokenExp,
			ResetTokenExp:   cfg.Auth.ResetTokenExp,
			FrontendURL:     cfg.Server.FrontendURL,
		})
	require.NoError(t, err)
	f.service = service
	return f
}

func (f *fixture) register(t *testing.T) *authservice.Session {
	t.Helper()
	session, err := f.service.Register(context.Background(), "alice", "alice@example.com", "password123", "test-agent")
	require.NoError(t, err)
	return session
}

func TestNewAuthServiceRequiresDependencies(t *testing.T) {
	_, err := authservice.NewAuthService(nil, nil, nil, nil, nil, zap.NewNop(), authservice.Options{})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session := f.register(t)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.Equal(t, domain.RoleUser, session.User.Role)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	claims, err := f.jwt.GetClaims(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)

	_, err = f.service.Register(ctx, "alice2", "ALICE@example.com", "password123", "")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = f.service.Register(ctx, "bob", "bob@example.com", "short", "")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	session, err := f.service.Login(ctx, "Alice@Example.com", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", session.User.Username)

	_, err = f.service.Login(ctx, "alice@example.com", "wrong-password", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "nobody@example.com", "password123", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t)

	second, err := f.service.Refresh(ctx, first.RefreshToken, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	firstClaims, err := f.jwt.GetRefreshClaims(first.RefreshToken)
	require.NoError(t, err)
	secondClaims, err := f.jwt.GetRefreshClaims(second.RefreshToken)
	require.NoError(t, err)

	oldRecord, err := f.tokens.GetByID(ctx, firstClaims.ID)
	require.NoError(t, err)
	newRecord, err := f.tokens.GetByID(ctx, secondClaims.ID)
	require.NoError(t, err)
	assert.True(t, oldRecord.Revoked)
	assert.False(t, newRecord.Revoked)
	assert.Equal(t, oldRecord.FamilyID, newRecord.FamilyID)

	third, err := f.service.Refresh(ctx, second.RefreshToken, "")
	require.NoError(t, err)
	assert.NotEmpty(t, third.AccessToken)
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t)

	second, err := f.service.Refresh(ctx, first.RefreshToken, "")
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, first.RefreshToken, "")
	assert.ErrorIs(t, err, domain.ErrTokenReused)

	// the legitimate successor is revoked as well
	_, err = f.service.Refresh(ctx, second.RefreshToken, "")
	assert.ErrorIs(t, err, domain.ErrTokenReused)

	// other logins are unaffected
	other, err := f.service.Login(ctx, "alice@example.com", "password123", "")
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, other.RefreshToken, "")
	assert.NoError(t, err)
}

func TestRefreshRejectsInvalidTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.register(t)

	_, err := f.service.Refresh(ctx, "garbage", "")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// an access token is not accepted as refresh token
	_, err = f.service.Refresh(ctx, session.AccessToken, "")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.register(t)

	claims, err := f.jwt.GetClaims(session.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, claims, session.RefreshToken))

	denied, err := f.denylist.Contains(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, denied)

	_, err = f.service.Refresh(ctx, session.RefreshToken, "")
	assert.Error(t, err)

	// idempotent
	assert.NoError(t, f.service.Logout(ctx, claims, session.RefreshToken))
	assert.NoError(t, f.service.Logout(ctx, claims, "garbage"))
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	session := f.register(t)

	user, err := f.service.Me(context.Background(), session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, session.User.Email, user.Email)

	_, err = f.service.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotExist)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.register(t)

	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))
	require.Len(t, f.mailer.Links, 1)
	assert.Contains(t, f.mailer.Links[0], "http://frontend.test/reset-password/")

	raw := f.mailer.LastToken(t)
	stored, err := f.users.GetByID(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HashToken(raw), stored.ResetPasswordToken)

	assert.ErrorIs(t, f.service.ResetPassword(ctx, raw, "short"), domain.ErrWeakPassword)
	require.NoError(t, f.service.ResetPassword(ctx, raw, "new-password"))

	_, err = f.service.Login(ctx, "alice@example.com", "password123", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.service.Login(ctx, "alice@example.com", "new-password", "")
	assert.NoError(t, err)

	// sessions issued before the reset are gone
	_, err = f.service.Refresh(ctx, session.RefreshToken, "")
	assert.Error(t, err)

	// the token is single use
	assert.ErrorIs(t, f.service.ResetPassword(ctx, raw, "another-password"), domain.ErrResetTokenInvalid)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.service.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.mailer.Links)
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.register(t)
	f.mailer.Err = errors.New("smtp down")

	err := f.service.ForgotPassword(ctx, "alice@example.com")
	require.Error(t, err)

	stored, err := f.users.GetByID(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpire)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.register(t)

	user, err := f.users.GetByID(ctx, session.User.ID)
	require.NoError(t, err)
	raw, err := user.IssueResetToken(-time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.users.Save(ctx, user))

	assert.ErrorIs(t, f.service.ResetPassword(ctx, raw, "new-password"), domain.ErrResetTokenInvalid)
	assert.ErrorIs(t, f.service.ResetPassword(ctx, "unknown", "new-password"), domain.ErrResetTokenInvalid)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.register(t)

	_, err := f.service.ChangePassword(ctx, session.User.ID, "wrong-password", "new-password", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	next, err := f.service.ChangePassword(ctx, session.User.ID, "password123", "new-password", "")
	require.NoError(t, err)
	assert.NotEmpty(t, next.RefreshToken)

	_, err = f.service.Refresh(ctx, session.RefreshToken, "")
	assert.Error(t, err)
	_, err = f.service.Refresh(ctx, next.RefreshToken, "")
	assert.NoError(t, err)
}

func TestPurgeExpiredTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.register(t)

	expired := domain.NewRefreshToken(session.User.ID, "", "", -time.Hour)
	expired.TokenHash = "hash"
	require.NoError(t, f.tokens.Create(ctx, expired))

	n, err := f.service.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.tokens.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
