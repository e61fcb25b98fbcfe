package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	MinPasswordLength = 8
	minUsernameLength = 3
	maxUsernameLength = 50
	resetTokenBytes   = 32
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID                  string     `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Username            string     `gorm:"not null" bson:"username" json:"username"`
	Email               string     `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	Password            string     `gorm:"not null" bson:"password" json:"-"`
	Role                Role       `gorm:"size:16;default:user" bson:"role" json:"role"`
	ResetPasswordToken  string     `gorm:"index" bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire *time.Time `bson:"resetPasswordExpire,omitempty" json:"-"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}

func NewUser(username, email, passwordPlain string) (*User, error) {
	username = strings.TrimSpace(username)
	if l := len(username); l < minUsernameLength || l > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be %d-%d characters",
			ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	user := &User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Role:     RoleUser,
	}
	if err := user.SetPassword(passwordPlain); err != nil {
		return nil, err
	}
	return user, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) SetPassword(passwordPlain string) error {
	if len(passwordPlain) < MinPasswordLength {
		return ErrWeakPassword
	}
	password, err := bcrypt.GenerateFromPassword([]byte(passwordPlain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.Password = string(password)
	return nil
}

func (u *User) ValidatePassword(passwordPlain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(passwordPlain))
	return err == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IssueResetToken returns the raw token to be mailed to the user. Only its
// hash is kept on the user.
func (u *User) IssueResetToken(ttl time.Duration) (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	raw := hex.EncodeToString(b)
	expire := time.Now().Add(ttl)
	u.ResetPasswordToken = HashToken(raw)
	u.ResetPasswordExpire = &expire
	return raw, nil
}

func (u *User) ResetTokenValid(now time.Time) bool {
	return u.ResetPasswordToken != "" &&
		u.ResetPasswordExpire != nil &&
		now.Before(*u.ResetPasswordExpire)
}

func (u *User) ClearResetToken() {
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
}

// HashToken is used for every secret persisted server-side: reset tokens and
// refresh tokens.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
