package authservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
	"go.uber.org/zap"
)

// Session is returned whenever a user obtains a fresh token pair.
type Session struct {
	User             *domain.User `json:"user"`
	AccessToken      string       `json:"accessToken"`
	AccessExpiresAt  time.Time    `json:"accessExpiresAt"`
	RefreshToken     string       `json:"refreshToken"`
	RefreshExpiresAt time.Time    `json:"refreshExpiresAt"`
}

type Options struct {
	RefreshTokenExp time.Duration
	ResetTokenExp   time.Duration
	FrontendURL     string
}

type AuthService struct {
	users    ports.UserStorage
	tokens   ports.TokenStorage
	jwt      ports.JWT
	denylist ports.Denylist
	mailer   ports.Mailer
	logger   *zap.Logger
	opts     Options
}

func NewAuthService(
	users ports.UserStorage,
	tokens ports.TokenStorage,
	jwt ports.JWT,
	denylist ports.Denylist,
	mailer ports.Mailer,
	logger *zap.Logger,
	opts Options,
) (*AuthService, error) {
	if users == nil {
		return nil, fmt.Errorf("users[ports.UserStorage] is a mandatory dependency")
	}
	if tokens == nil {
		return nil, fmt.Errorf("tokens[ports.TokenStorage] is a mandatory dependency")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt[ports.JWT] is a mandatory dependency")
	}
	if denylist == nil {
		return nil, fmt.Errorf("denylist[ports.Denylist] is a mandatory dependency")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer[ports.Mailer] is a mandatory dependency")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger[zap.Logger] is a mandatory dependency")
	}
	if opts.RefreshTokenExp <= 0 || opts.ResetTokenExp <= 0 {
		return nil, fmt.Errorf("token lifetimes must be greater than zero")
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		jwt:      jwt,
		denylist: denylist,
		mailer:   mailer,
		logger:   logger,
		opts:     opts,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, username, email, password, userAgent string) (*Session, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotExist) {
		return nil, err
	}

	user, err := domain.NewUser(username, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.newSession(ctx, user, "", userAgent, "")
}

func (s *AuthService) Login(ctx context.Context, email, password, userAgent string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotExist) {
		return nil, domain.ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if !user.ValidatePassword(password) {
		s.logger.Info("wrong password", zap.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}
	return s.newSession(ctx, user, "", userAgent, "")
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated revokes every token descended from the same login.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, userAgent string) (*Session, error) {
	claims, err := s.jwt.GetRefreshClaims(refreshToken)
	if err != nil {
		return nil, err
	}
	stored, err := s.tokens.GetByID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if stored.TokenHash != domain.HashToken(refreshToken) || stored.UserID != claims.UserID {
		return nil, domain.ErrTokenInvalid
	}
	if stored.Revoked {
		s.logger.Warn("refresh token reuse detected",
			zap.String("user_id", stored.UserID), zap.String("family_id", stored.FamilyID))
		if err := s.tokens.RevokeFamily(ctx, stored.FamilyID); err != nil {
			return nil, err
		}
		return nil, domain.ErrTokenReused
	}
	if stored.Expired(time.Now()) {
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if errors.Is(err, domain.ErrUserNotExist) {
		return nil, errors.Join(domain.ErrTokenInvalid, err)
	} else if err != nil {
		return nil, err
	}

	session, err := s.newSession(ctx, user, stored.FamilyID, userAgent, stored.ID)
	if errors.Is(err, domain.ErrTokenReused) {
		s.logger.Warn("concurrent refresh token reuse", zap.String("family_id", stored.FamilyID))
		if revokeErr := s.tokens.RevokeFamily(ctx, stored.FamilyID); revokeErr != nil {
			return nil, errors.Join(err, revokeErr)
		}
	}
	return session, err
}

// Logout deny-lists the access token and revokes the refresh token family.
// Unknown or already revoked refresh tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, access *ports.Claims, refreshToken string) error {
	if access != nil && access.ExpiresAt != nil {
		if err := s.denylist.Add(ctx, access.ID, time.Until(access.ExpiresAt.Time)); err != nil {
			return err
		}
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.jwt.GetRefreshClaims(refreshToken)
	if err != nil {
		return nil
	}
	if access != nil && claims.UserID != access.UserID {
		s.logger.Warn("logout with refresh token of another user", zap.String("user_id", access.UserID))
		return nil
	}
	stored, err := s.tokens.GetByID(ctx, claims.ID)
	if errors.Is(err, domain.ErrTokenInvalid) {
		return nil
	} else if err != nil {
		return err
	}
	return s.tokens.RevokeFamily(ctx, stored.FamilyID)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ForgotPassword mails a reset link. Unknown emails succeed silently so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotExist) {
		s.logger.Info("password reset for unknown email")
		return nil
	} else if err != nil {
		return err
	}

	raw, err := user.IssueResetToken(s.opts.ResetTokenExp)
	if err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}

	resetURL := strings.TrimRight(s.opts.FrontendURL, "/") + "/reset-password/" + raw
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, resetURL); err != nil {
		s.logger.Error("failed to send reset email", zap.String("user_id", user.ID), zap.Error(err))
		user.ClearResetToken()
		if saveErr := s.users.Save(ctx, user); saveErr != nil {
			s.logger.Error("failed to clear reset token", zap.Error(saveErr))
		}
		return fmt.Errorf("email could not be sent: %w", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	user, err := s.users.GetByResetToken(ctx, domain.HashToken(rawToken))
	if errors.Is(err, domain.ErrUserNotExist) {
		return domain.ErrResetTokenInvalid
	} else if err != nil {
		return err
	}
	if !user.ResetTokenValid(time.Now()) {
		return domain.ErrResetTokenInvalid
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	user.ClearResetToken()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return s.tokens.RevokeAllForUser(ctx, user.ID)
}

// ChangePassword revokes every existing session and returns a new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, userAgent string) (*Session, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.ValidatePassword(oldPassword) {
		return nil, domain.ErrInvalidCredentials
	}
	if err := user.SetPassword(newPassword); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	return s.newSession(ctx, user, "", userAgent, "")
}

// PurgeExpiredTokens is run periodically by the app janitor.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}

func (s *AuthService) newSession(ctx context.Context, user *domain.User, familyID, userAgent, rotateFrom string) (*Session, error) {
	accessToken, accessExp, err := s.jwt.BuildAccessToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	record := domain.NewRefreshToken(user.ID, familyID, userAgent, s.opts.RefreshTokenExp)
	refreshToken, err := s.jwt.BuildRefreshToken(user.ID, record.ID, record.ExpiresAt)
	if err != nil {
		return nil, err
	}
	record.TokenHash = domain.HashToken(refreshToken)

	if rotateFrom == "" {
		err = s.tokens.Create(ctx, record)
	} else {
		err = s.tokens.Rotate(ctx, rotateFrom, record)
	}
	if err != nil {
		return nil, err
	}

	return &Session{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}
