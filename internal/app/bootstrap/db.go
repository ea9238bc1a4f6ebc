// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/system/indexes"
	"github.com/taskforge/taskforge/internal/app/system/validators"
)

// EnsureSchema creates collections, JSON-Schema validators, and indexes.
// Runs once at startup, after ConnectDB and before Startup.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		return err
	}
	return indexes.EnsureAll(ctx, deps.MongoDatabase)
}
