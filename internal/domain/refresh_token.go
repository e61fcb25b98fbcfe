package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the server-side record of an issued refresh JWT. ID doubles
// as the token's jti; tokens produced by rotating one another share FamilyID.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36" bson:"_id"`
	UserID    string    `gorm:"index;not null;size:36" bson:"userId"`
	FamilyID  string    `gorm:"index;not null;size:36" bson:"familyId"`
	TokenHash string    `gorm:"not null" bson:"tokenHash"`
	UserAgent string    `bson:"userAgent,omitempty"`
	Revoked   bool      `gorm:"default:false" bson:"revoked"`
	ExpiresAt time.Time `gorm:"index" bson:"expiresAt"`
	CreatedAt time.Time `gorm:"autoCreateTime" bson:"createdAt"`
}

func NewRefreshToken(userID, familyID, userAgent string, ttl time.Duration) *RefreshToken {
	if familyID == "" {
		familyID = uuid.NewString()
	}
	return &RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		FamilyID:  familyID,
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(ttl),
	}
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
