// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User represents a marketplace account: regular users and admins.
//
// NOTE:
//   - Active sessions are not embedded on User.
//     Use the sessions collection to discover a user's live sessions.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // admin | user
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`

	// Profile
	Bio       string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Skills    []string `bson:"skills,omitempty" json:"skills,omitempty"`
	ImagePath string   `bson:"image_path,omitempty" json:"image_path,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == "admin" }

// Disabled reports whether the account has been disabled by an admin.
func (u *User) Disabled() bool { return u.Status == StatusDisabled }
