// internal/app/bootstrap/connectdb.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	completedstore "github.com/taskforge/taskforge/internal/app/store/completed"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/app/system/token"
	"github.com/taskforge/taskforge/internal/app/system/uploads"
	"github.com/taskforge/taskforge/internal/app/system/workers"
)

// ConnectDB establishes the MongoDB connection and builds the stores and
// long-lived services the rest of the app depends on.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	db := client.Database(appCfg.MongoDatabase)

	tokens, err := token.New(appCfg.JWTSecret, appCfg.JWTExpiresIn)
	if err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("token service: %w", err)
	}

	sessions := sessionstore.New(db, appCfg.MaxActiveSessions)
	bl := blacklist.New(db)

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,

		Users:     userstore.New(db),
		Tasks:     taskstore.New(db),
		Apps:      appstore.New(db),
		Sessions:  sessions,
		Blacklist: bl,
		Completed: completedstore.New(db),

		Tokens:  tokens,
		Uploads: &uploads.Saver{BaseDir: appCfg.UploadDir},
		Janitor: workers.NewSessionJanitor(sessions, bl, logger),
	}
	return deps, nil
}
