package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/announa/blogpost/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type UserStorageMongo struct {
	users  *mongo.Collection
	logger *zap.Logger
}

func NewUserStorageMongo(db *mongo.Database, logger *zap.Logger) *UserStorageMongo {
	return &UserStorageMongo{users: db.Collection(usersCollection), logger: logger}
}

func (s *UserStorageMongo) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(domain.ErrUserExists, err)
		}
		s.logger.Error("failed to create user", zap.Error(err))
		return err
	}
	s.logger.Info("user created successfully", zap.String("id", user.ID))
	return nil
}

func (s *UserStorageMongo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStorageMongo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (s *UserStorageMongo) GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	if tokenHash == "" {
		return nil, domain.ErrUserNotExist
	}
	return s.findOne(ctx, bson.M{"resetPasswordToken": tokenHash})
}

func (s *UserStorageMongo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Join(domain.ErrUserNotExist, err)
	} else if err != nil {
		s.logger.Error("failed to get user", zap.Any("filter", filter), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (s *UserStorageMongo) Save(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(domain.ErrUserExists, err)
		}
		s.logger.Error("failed to save user", zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotExist
	}
	return nil
}

func (s *UserStorageMongo) List(ctx context.Context, page domain.Page) ([]*domain.User, int64, error) {
	page = page.Normalize()
	total, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	opts := pageOptions(page.Offset(), page.Limit).SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, 0, err
	}
	var users []*domain.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (s *UserStorageMongo) Delete(ctx context.Context, id string) error {
	result, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		s.logger.Error("failed to delete user", zap.String("id", id), zap.Error(err))
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrUserNotExist
	}
	return nil
}

type TokenStorageMongo struct {
	tokens *mongo.Collection
	logger *zap.Logger
}

func NewTokenStorageMongo(db *mongo.Database, logger *zap.Logger) *TokenStorageMongo {
	return &TokenStorageMongo{tokens: db.Collection(refreshTokensCollection), logger: logger}
}

func (s *TokenStorageMongo) Create(ctx context.Context, token *domain.RefreshToken) error {
	token.CreatedAt = time.Now().UTC()
	if _, err := s.tokens.InsertOne(ctx, token); err != nil {
		s.logger.Error("failed to store refresh token", zap.String("user_id", token.UserID), zap.Error(err))
		return fmt.Errorf("creating refresh token: %w", err)
	}
	return nil
}

func (s *TokenStorageMongo) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := s.tokens.FindOne(ctx, bson.M{"_id": id}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Join(domain.ErrTokenInvalid, err)
	} else if err != nil {
		return nil, fmt.Errorf("getting refresh token: %w", err)
	}
	return &token, nil
}

// Rotate is a conditional update followed by an insert; standalone servers
// have no multi-document transactions.
func (s *TokenStorageMongo) Rotate(ctx context.Context, oldID string, next *domain.RefreshToken) error {
	result, err := s.tokens.UpdateOne(ctx,
		bson.M{"_id": oldID, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		return fmt.Errorf("revoking old token: %w", err)
	}
	if result.ModifiedCount == 0 {
		return domain.ErrTokenReused
	}
	return s.Create(ctx, next)
}

func (s *TokenStorageMongo) RevokeFamily(ctx context.Context, familyID string) error {
	_, err := s.tokens.UpdateMany(ctx, bson.M{"familyId": familyID}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return fmt.Errorf("revoking token family: %w", err)
	}
	return nil
}

func (s *TokenStorageMongo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := s.tokens.UpdateMany(ctx, bson.M{"userId": userID}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return fmt.Errorf("revoking all tokens for user: %w", err)
	}
	return nil
}

// DeleteExpired complements the TTL index, which mongod only applies about
// once a minute.
func (s *TokenStorageMongo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.tokens.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	return result.DeletedCount, nil
}
