// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/domain/models"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("tasks", tasksSchema())
	ensure("task_applications", applicationsSchema())
	ensure("sessions", sessionsSchema())

	// TTL and archival collections get by without validators; we still make
	// sure they exist so index creation never implicitly creates them.
	ensure("blacklisted_tokens", nil)
	ensure("completed_tasks", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "username", "email", "password_hash", "role"},
			"properties": bson.M{
				"full_name":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci":  bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"username":      bson.M{"bsonType": "string", "minLength": 1},
				"email":         bson.M{"bsonType": "string", "minLength": 3},
				"password_hash": bson.M{"bsonType": "string", "minLength": 1},
				"role":          bson.M{"enum": bson.A{"admin", "user"}},
				"status":        bson.M{"enum": bson.A{"active", "disabled"}},
			},
		},
	}
}

func tasksSchema() bson.M {
	// Build the enums from the canonical lists in the domain models.
	catEnum := bson.A{}
	for _, c := range models.TaskCategories {
		catEnum = append(catEnum, c)
	}
	diffEnum := bson.A{}
	for _, d := range models.TaskDifficulties {
		diffEnum = append(diffEnum, d)
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "title_ci", "category", "difficulty", "payout", "status"},
			"properties": bson.M{
				"title":      bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"title_ci":   bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"category":   bson.M{"enum": catEnum},
				"difficulty": bson.M{"enum": diffEnum},
				"payout":     bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": models.MinPayout, "maximum": models.MaxPayout},
				"duration":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"status":     bson.M{"enum": bson.A{"open", "in_progress", "completed", "cancelled"}},
				"client_id":  bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func applicationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "task_id", "status", "applied_at"},
			"properties": bson.M{
				"user_id": bson.M{"bsonType": "objectId"},
				"task_id": bson.M{"bsonType": "objectId"},
				"status": bson.M{"enum": bson.A{
					"pending", "accepted", "rejected", "submitted",
					"needs_revision", "completed", "cancelled",
				}},
				"progress":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0, "maximum": 100},
				"applied_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func sessionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "token", "created_at", "expires_at"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"token":      bson.M{"bsonType": "string", "minLength": 1},
				"created_at": bson.M{"bsonType": "date"},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
