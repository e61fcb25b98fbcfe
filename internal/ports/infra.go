package ports

import (
	"context"
	"time"
)

// Denylist holds access-token ids revoked before their natural expiry.
type Denylist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error
}
