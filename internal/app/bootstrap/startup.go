// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"os"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/system/timeouts"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// TaskForge makes sure the upload directory exists, applies any timeout
// overrides from the environment, and launches the session janitor.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := os.MkdirAll(appCfg.UploadDir, 0o755); err != nil {
		return err
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied from environment", zap.Int("count", n))
	}

	deps.Janitor.Start()
	logger.Info("session janitor started",
		zap.Int("max_active_sessions", deps.Sessions.MaxActive()))
	return nil
}
