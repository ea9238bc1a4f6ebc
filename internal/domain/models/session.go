// internal/domain/models/session.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session tracks one authenticated login, bound to one issued token.
// Sessions live in their own collection keyed by user so that logins,
// logouts, and the expiration sweeper never contend on the user document.
type Session struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"-"`

	// The signed token issued for this login. Unique across the system.
	Token string `bson:"token" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`

	// Context captured at login
	Device    string `bson:"device,omitempty" json:"device,omitempty"` // free-text user agent
	IPAddress string `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
}

// Expired reports whether the session's expiry has passed at the given instant.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// DaysActive returns whole days elapsed since the session was created.
func (s Session) DaysActive(now time.Time) int {
	d := int(now.Sub(s.CreatedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
