// internal/app/system/workers/sessionjanitor.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
)

// Default janitor schedules. The fine tick keeps dead sessions from
// lingering between logins; the coarse tick plus the blacklist sweep back
// up the Mongo TTL monitor on deployments where it lags or is absent.
const (
	DefaultFineInterval   = time.Minute
	DefaultCoarseInterval = time.Hour
	DefaultSweepInterval  = time.Hour
)

// SessionJanitor deletes expired sessions on two overlapping schedules and
// sweeps expired blacklist rows hourly. All three jobs are idempotent, so
// overlap between the fine and coarse tick is harmless.
type SessionJanitor struct {
	sessions  *sessionstore.Store
	blacklist *blacklist.Store
	log       *zap.Logger

	fineInterval   time.Duration
	coarseInterval time.Duration
	sweepInterval  time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSessionJanitor creates the janitor with its default schedules.
func NewSessionJanitor(sessions *sessionstore.Store, bl *blacklist.Store, logger *zap.Logger) *SessionJanitor {
	return &SessionJanitor{
		sessions:       sessions,
		blacklist:      bl,
		log:            logger,
		fineInterval:   DefaultFineInterval,
		coarseInterval: DefaultCoarseInterval,
		sweepInterval:  DefaultSweepInterval,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the background loops.
func (w *SessionJanitor) Start() {
	w.wg.Add(3)
	go w.loop(w.fineInterval, w.reapSessions)
	go w.loop(w.coarseInterval, w.reapSessions)
	go w.loop(w.sweepInterval, w.sweepBlacklist)
	w.log.Info("session janitor started",
		zap.Duration("fine_interval", w.fineInterval),
		zap.Duration("coarse_interval", w.coarseInterval),
		zap.Duration("blacklist_sweep_interval", w.sweepInterval))
}

// Stop signals all loops to stop and waits for them to finish.
func (w *SessionJanitor) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("session janitor stopped")
}

func (w *SessionJanitor) loop(interval time.Duration, job func()) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			job()
		}
	}
}

func (w *SessionJanitor) reapSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	count, err := w.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		w.log.Error("failed to delete expired sessions", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("deleted expired sessions", zap.Int64("count", count))
	}
}

func (w *SessionJanitor) sweepBlacklist() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	count, err := w.blacklist.CleanupExpired(ctx)
	if err != nil {
		w.log.Error("failed to sweep blacklist", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("swept expired blacklist rows", zap.Int64("count", count))
	}
}
