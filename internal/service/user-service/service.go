package userservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
	"go.uber.org/zap"
)

type UserService struct {
	users  ports.UserStorage
	tokens ports.TokenStorage
	posts  ports.PostStorage
	logger *zap.Logger
}

func NewUserService(users ports.UserStorage, tokens ports.TokenStorage, posts ports.PostStorage, logger *zap.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, posts: posts, logger: logger}
}

func (s *UserService) List(ctx context.Context, page domain.Page) (domain.ListResult[*domain.User], error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return domain.ListResult[*domain.User]{}, err
	}
	return domain.NewListResult(users, total, page), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) SetRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	// existing access tokens carry the old role until they expire; refresh
	// tokens are revoked so the next session picks the new one up
	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	s.logger.Info("user role changed", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Delete removes the account together with its posts and sessions.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
		return err
	}
	if err := s.posts.DeleteByAuthor(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// EnsureAdmin creates the bootstrap admin account or promotes an existing
// account registered with the same email.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsAdmin() {
			return nil
		}
		user.Role = domain.RoleAdmin
		if err := s.users.Save(ctx, user); err != nil {
			return err
		}
		s.logger.Info("existing user promoted to admin", zap.String("user_id", user.ID))
		return nil
	case errors.Is(err, domain.ErrUserNotExist):
		user, err = domain.NewUser("admin", email, password)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		user.Role = domain.RoleAdmin
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		s.logger.Info("admin user created", zap.String("user_id", user.ID))
		return nil
	default:
		return err
	}
}
