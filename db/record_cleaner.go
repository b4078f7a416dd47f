package db

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RecordCleaner periodically prunes old cycle records so the bookkeeping
// database does not grow unbounded. Push records are the audit trail and
// are left alone.
type RecordCleaner struct {
	db              *DB
	ticker          *time.Ticker
	logger          zerolog.Logger
	stopCh          chan struct{}
	cleanupInterval time.Duration
	retentionPeriod time.Duration
}

// NewRecordCleaner creates a cleaner for the given database.
func NewRecordCleaner(
	database *DB,
	cleanupInterval time.Duration,
	retentionPeriod time.Duration,
	logger zerolog.Logger,
) *RecordCleaner {
	return &RecordCleaner{
		db:              database,
		cleanupInterval: cleanupInterval,
		retentionPeriod: retentionPeriod,
		logger:          logger.With().Str("component", "record_cleaner").Logger(),
		stopCh:          make(chan struct{}),
	}
}

// Start begins the periodic cleanup process.
func (rc *RecordCleaner) Start(ctx context.Context) error {
	rc.logger.Info().
		Dur("cleanup_interval", rc.cleanupInterval).
		Dur("retention_period", rc.retentionPeriod).
		Msg("starting record cleaner")

	// Initial sweep; a failure here is logged, never fatal.
	if err := rc.performCleanup(); err != nil {
		rc.logger.Error().Err(err).Msg("failed to perform initial cleanup")
	}

	rc.ticker = time.NewTicker(rc.cleanupInterval)

	go func() {
		defer rc.ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				rc.logger.Info().Msg("context cancelled, stopping record cleaner")
				return
			case <-rc.stopCh:
				rc.logger.Info().Msg("stop signal received, stopping record cleaner")
				return
			case <-rc.ticker.C:
				if err := rc.performCleanup(); err != nil {
					rc.logger.Error().Err(err).Msg("failed to perform scheduled cleanup")
				}
			}
		}
	}()

	return nil
}

// Stop gracefully stops the record cleaner.
func (rc *RecordCleaner) Stop() {
	rc.logger.Info().Msg("stopping record cleaner")
	close(rc.stopCh)
	if rc.ticker != nil {
		rc.ticker.Stop()
	}
}

// performCleanup deletes cycle records older than the retention window and
// checkpoints the WAL when anything was removed.
func (rc *RecordCleaner) performCleanup() error {
	start := time.Now()

	deleted, err := rc.db.DeleteOldCycleRecords(rc.retentionPeriod)
	if err != nil {
		return err
	}

	if deleted > 0 {
		rc.checkpointWAL()
		rc.logger.Info().
			Int64("deleted_count", deleted).
			Dur("duration", time.Since(start)).
			Msg("record cleanup completed")
	} else {
		rc.logger.Debug().
			Dur("duration", time.Since(start)).
			Msg("record cleanup completed - nothing to delete")
	}

	return nil
}

// checkpointWAL truncates the write-ahead log so deletions reclaim disk space.
func (rc *RecordCleaner) checkpointWAL() {
	if err := rc.db.Client().Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		rc.logger.Warn().Err(err).Msg("failed to checkpoint WAL")
	}
}
