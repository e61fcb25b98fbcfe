package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/testutil"
)

func TestUserStorage(t *testing.T) {
	storage := NewUserStorage(testutil.OpenTestDB(t), zaptest.NewLogger(t))
	ctx := context.Background()

	user, err := domain.NewUser("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, storage.Create(ctx, user))

	duplicate, err := domain.NewUser("alice2", "alice@example.com", "password123")
	require.NoError(t, err)
	assert.ErrorIs(t, storage.Create(ctx, duplicate), domain.ErrUserExists)

	got, err := storage.GetByEmail(ctx, " ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.ValidatePassword("password123"))

	raw, err := got.IssueResetToken(time.Minute)
	require.NoError(t, err)
	require.NoError(t, storage.Save(ctx, got))

	byToken, err := storage.GetByResetToken(ctx, domain.HashToken(raw))
	require.NoError(t, err)
	assert.Equal(t, user.ID, byToken.ID)
	assert.True(t, byToken.ResetTokenValid(time.Now()))

	_, err = storage.GetByResetToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUserNotExist)

	require.NoError(t, storage.Delete(ctx, user.ID))
	_, err = storage.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotExist)
	assert.ErrorIs(t, storage.Delete(ctx, user.ID), domain.ErrUserNotExist)
}

func TestTokenStorageRotate(t *testing.T) {
	storage := NewTokenStorage(testutil.OpenTestDB(t), zaptest.NewLogger(t))
	ctx := context.Background()

	first := domain.NewRefreshToken("user-1", "", "agent", time.Hour)
	first.TokenHash = "first"
	require.NoError(t, storage.Create(ctx, first))

	second := domain.NewRefreshToken("user-1", first.FamilyID, "agent", time.Hour)
	second.TokenHash = "second"
	require.NoError(t, storage.Rotate(ctx, first.ID, second))

	third := domain.NewRefreshToken("user-1", first.FamilyID, "agent", time.Hour)
	third.TokenHash = "third"
	assert.ErrorIs(t, storage.Rotate(ctx, first.ID, third), domain.ErrTokenReused)

	_, err := storage.GetByID(ctx, third.ID)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "losing rotation must not insert")

	other := domain.NewRefreshToken("user-1", "", "agent", time.Hour)
	other.TokenHash = "other"
	require.NoError(t, storage.Create(ctx, other))

	require.NoError(t, storage.RevokeFamily(ctx, first.FamilyID))
	got, err := storage.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	got, err = storage.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	require.NoError(t, storage.RevokeAllForUser(ctx, "user-1"))
	got, err = storage.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestPostStorageFilters(t *testing.T) {
	storage := NewPostStorage(testutil.OpenTestDB(t), zaptest.NewLogger(t))
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, in := range []struct {
		author string
		tags   []string
	}{
		{"a", []string{"go", "golang"}},
		{"a", []string{"golang"}},
		{"b", []string{"go"}},
	} {
		post, err := domain.NewPost(in.author, "post", "content", in.tags, "")
		require.NoError(t, err)
		post.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, storage.Create(ctx, post))
	}

	posts, total, err := storage.List(ctx, domain.PostFilter{Tag: "go"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "tag match must be exact")
	require.Len(t, posts, 2)
	assert.Equal(t, "b", posts[0].AuthorID, "newest first")

	_, total, err = storage.List(ctx, domain.PostFilter{AuthorID: "a", Tag: "golang"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	require.NoError(t, storage.DeleteByAuthor(ctx, "a"))
	_, total, err = storage.List(ctx, domain.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPostStorageTagsWithSpecialCharacters(t *testing.T) {
	storage := NewPostStorage(testutil.OpenTestDB(t), zaptest.NewLogger(t))
	ctx := context.Background()

	tags := []string{"r&d", "c<b>", "café", "a_b", "axb", "100%"}
	for _, tag := range tags {
		post, err := domain.NewPost("a", "post", "content", []string{tag}, "")
		require.NoError(t, err)
		require.NoError(t, storage.Create(ctx, post))
	}

	for _, tag := range tags {
		posts, total, err := storage.List(ctx, domain.PostFilter{Tag: tag})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total, tag)
		require.Len(t, posts, 1, tag)
		assert.Equal(t, []string{tag}, posts[0].Tags)
	}

	_, total, err := storage.List(ctx, domain.PostFilter{Tag: "%"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProductStorageQueryIsLiteral(t *testing.T) {
	storage := NewProductStorage(testutil.OpenTestDB(t), zaptest.NewLogger(t))
	ctx := context.Background()

	for _, name := range []string{"Keyboard", "Mouse", "100% Cotton"} {
		product, err := domain.NewProduct(domain.ProductInput{Name: name, Price: 10})
		require.NoError(t, err)
		require.NoError(t, storage.Create(ctx, product))
	}

	tests := []struct {
		query string
		want  int64
	}{
		{"%", 1},
		{"_", 0},
		{`\`, 0},
		{"KEY", 1},
		{"o", 3},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, total, err := storage.List(ctx, domain.ProductFilter{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}
}

func TestGormPinger(t *testing.T) {
	assert.NoError(t, NewGormPinger(testutil.OpenTestDB(t)).Ping(context.Background()))
}
