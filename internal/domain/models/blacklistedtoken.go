// internal/domain/models/blacklistedtoken.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlacklistedToken is a revoked token that must be rejected even while it is
// still cryptographically valid. Rows self-expire via a TTL index on
// expires_at, which is set to the token's own natural expiry so the block
// outlives every copy of the token.
type BlacklistedToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user_id"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}
