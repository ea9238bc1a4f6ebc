// internal/app/store/users/store.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskforge/taskforge/internal/app/system/normalize"
	"github.com/taskforge/taskforge/internal/domain/models"
)

var (
	// ErrNotFound is returned when no user matches the query.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate is returned when a unique email or username collides.
	ErrDuplicate = errors.New("a user with this email or username already exists")

	errBadRole   = errors.New(`role must be "admin"|"user"`)
	errBadStatus = errors.New(`status must be "active"|"disabled"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// EnsureIndexes creates uniqueness and lookup indexes for users.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_email"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_username"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_users_role_status"),
		},
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("idx_users_name_ci"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new user after normalizing and validating fields.
// The password hash must already be set by the caller.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Username = normalize.Username(u.Username)
	if u.Role == "" {
		u.Role = "user"
	}
	if u.Status == "" {
		u.Status = models.StatusActive
	}

	switch u.Role {
	case "admin", "user":
	default:
		return models.User{}, errBadRole
	}
	switch u.Status {
	case models.StatusActive, models.StatusDisabled:
	default:
		return models.User{}, errBadStatus
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername looks up a user by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"username": normalize.Username(username)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailExists reports whether any user already has the email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email": normalize.Email(email)})
	return n > 0, err
}

// UsernameExists reports whether any user already has the username.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"username": normalize.Username(username)})
	return n > 0, err
}

// ProfileUpdate holds the self-service editable fields. Nil pointers are
// left untouched.
type ProfileUpdate struct {
	FullName *string
	Bio      *string
	Skills   *[]string
}

// UpdateProfile applies a partial profile update.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Skills != nil {
		set["skills"] = *upd.Skills
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateImagePath records the stored profile image path.
func (s *Store) UpdateImagePath(ctx context.Context, id primitive.ObjectID, path string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"image_path": path,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdminUpdate holds the fields an admin may change on any account.
type AdminUpdate struct {
	FullName *string
	Email    *string
	Role     *string
	Status   *string
}

// UpdateByAdmin applies an admin-side partial update.
func (s *Store) UpdateByAdmin(ctx context.Context, id primitive.ObjectID, upd AdminUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.Role != nil {
		role := normalize.Role(*upd.Role)
		if role != "admin" && role != "user" {
			return errBadRole
		}
		set["role"] = role
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if st != models.StatusActive && st != models.StatusDisabled {
			return errBadStatus
		}
		set["status"] = st
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user document. Session cascade and token blacklisting
// are the caller's responsibility.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter narrows admin user listings.
type ListFilter struct {
	Role   string
	Status string
	Search string // matches folded full name prefix or exact username/email
}

// List returns a page of users sorted by creation time, newest first,
// along with the total count for the filter.
func (s *Store) List(ctx context.Context, f ListFilter, page, limit int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = normalize.Role(f.Role)
	}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if f.Search != "" {
		folded := text.Fold(f.Search)
		filter["$or"] = bson.A{
			bson.M{"full_name_ci": bson.M{"$regex": "^" + regexEscape(folded)}},
			bson.M{"username": normalize.Username(f.Search)},
			bson.M{"email": normalize.Email(f.Search)},
		}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CountByRole returns user counts keyed by role.
func (s *Store) CountByRole(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Role string `bson:"_id"`
			N    int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Role] = row.N
	}
	return out, cur.Err()
}

// regexEscape escapes regex metacharacters so user search input is treated
// literally.
func regexEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '.', '+', '*', '?', '(', ')', '|', '[', ']', '{', '}', '^', '$':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
