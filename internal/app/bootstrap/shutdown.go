// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the background workers and tears down the MongoDB
// connection. Session rows persist across restarts; tokens stay valid
// until the gate or the janitor says otherwise.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Janitor != nil {
		deps.Janitor.Stop()
		logger.Info("session janitor stopped")
	}

	if deps.Sessions != nil {
		if n, err := deps.Sessions.CountActive(ctx, time.Now()); err == nil {
			logger.Info("live sessions at shutdown", zap.Int64("count", n))
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
