package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pcbuilder/internal/services"
	"pcbuilder/internal/store"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// CleanupJobName is the scheduler name of the sweeper.
const CleanupJobName = "cleanup-sweeper"

const cleanupLockKey = "pcbuilder:lock:cleanup"

// Locker is a cross-instance mutex.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey, lockValue string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, lockValue string) (bool, error)
}

// SweepResult counts the records removed by one sweep.
type SweepResult struct {
	SessionsDeleted int64 `json:"sessionsDeleted"`
	QueriesDeleted  int64 `json:"queriesDeleted"`
}

// CleanupSweeper removes sessions whose builds have all expired and cached
// queries older than the retention window. Both deletions are idempotent and
// run on every sweep even if the other fails.
type CleanupSweeper struct {
	sessions  store.SessionBuildStore
	queries   store.CachedQueryStore
	retention time.Duration
	clock     clockwork.Clock
	locker    Locker
	lockTTL   time.Duration
	owner     string
}

// NewCleanupSweeper creates the sweeper. locker may be nil for single-instance
// deployments.
func NewCleanupSweeper(sessions store.SessionBuildStore, queries store.CachedQueryStore, retention time.Duration, clock clockwork.Clock, locker Locker) *CleanupSweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CleanupSweeper{
		sessions:  sessions,
		queries:   queries,
		retention: retention,
		clock:     clock,
		locker:    locker,
		lockTTL:   5 * time.Minute,
		owner:     uuid.NewString(),
	}
}

// Sweep runs both deletions against the clock's current time.
func (c *CleanupSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := c.clock.Now()

	sessions, sessErr := c.sessions.DeleteExpired(ctx, now)
	if sessErr != nil {
		sessErr = fmt.Errorf("expired sessions: %w", sessErr)
	}
	result.SessionsDeleted = sessions

	queries, queryErr := c.queries.DeleteOlderThan(ctx, now.Add(-c.retention))
	if queryErr != nil {
		queryErr = fmt.Errorf("stale cached queries: %w", queryErr)
	}
	result.QueriesDeleted = queries

	err := errors.Join(sessErr, queryErr)
	services.GetMetrics().RecordSweep(result.SessionsDeleted, result.QueriesDeleted, err)
	return result, err
}

// Run implements Job. With a locker configured only the instance holding the
// lock sweeps; the others skip the tick.
func (c *CleanupSweeper) Run(ctx context.Context) error {
	if c.locker != nil {
		acquired, err := c.locker.AcquireLock(ctx, cleanupLockKey, c.owner, c.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire cleanup lock: %w", err)
		}
		if !acquired {
			log.Println("⏭️  [CLEANUP] Another instance holds the cleanup lock, skipping")
			return nil
		}
		defer func() {
			if _, err := c.locker.ReleaseLock(context.Background(), cleanupLockKey, c.owner); err != nil {
				log.Printf("⚠️  [CLEANUP] Failed to release lock: %v", err)
			}
		}()
	}

	log.Println("🧹 [CLEANUP] Starting sweep...")
	startTime := time.Now()

	result, err := c.Sweep(ctx)
	log.Printf("[CLEANUP] Removed %d expired sessions and %d stale cached queries in %v",
		result.SessionsDeleted, result.QueriesDeleted, time.Since(startTime))
	return err
}
