package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "alice", "alice@example.com", "secret-password", nil},
		{"short username", "al", "alice@example.com", "secret-password", ErrInvalidInput},
		{"bad email", "alice", "not-an-email", "secret-password", ErrInvalidInput},
		{"short password", "alice", "alice@example.com", "short", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUser(tt.username, tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, user.ID)
			assert.Equal(t, RoleUser, user.Role)
			assert.NotEqual(t, tt.password, user.Password)
		})
	}
}

func TestNewUserNormalizesEmail(t *testing.T) {
	user, err := NewUser("alice", "  Alice@Example.COM ", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestValidatePassword(t *testing.T) {
	user, err := NewUser("alice", "alice@example.com", "secret-password")
	require.NoError(t, err)

	assert.True(t, user.ValidatePassword("secret-password"))
	assert.False(t, user.ValidatePassword("wrong-password"))

	require.NoError(t, user.SetPassword("another-password"))
	assert.False(t, user.ValidatePassword("secret-password"))
	assert.True(t, user.ValidatePassword("another-password"))
}

func TestResetToken(t *testing.T) {
	user, err := NewUser("alice", "alice@example.com", "secret-password")
	require.NoError(t, err)
	assert.False(t, user.ResetTokenValid(time.Now()))

	raw, err := user.IssueResetToken(10 * time.Minute)
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Equal(t, HashToken(raw), user.ResetPasswordToken)
	assert.NotEqual(t, raw, user.ResetPasswordToken)
	assert.True(t, user.ResetTokenValid(time.Now()))
	assert.False(t, user.ResetTokenValid(time.Now().Add(11*time.Minute)))

	user.ClearResetToken()
	assert.Empty(t, user.ResetPasswordToken)
	assert.Nil(t, user.ResetPasswordExpire)
	assert.False(t, user.ResetTokenValid(time.Now()))
}

func TestRefreshTokenFamily(t *testing.T) {
	first := NewRefreshToken("user-1", "", "curl", time.Hour)
	assert.NotEmpty(t, first.FamilyID)
	assert.NotEqual(t, first.ID, first.FamilyID)

	next := NewRefreshToken("user-1", first.FamilyID, "curl", time.Hour)
	assert.Equal(t, first.FamilyID, next.FamilyID)
	assert.NotEqual(t, first.ID, next.ID)

	assert.False(t, first.Expired(time.Now()))
	assert.True(t, first.Expired(time.Now().Add(2*time.Hour)))
}
