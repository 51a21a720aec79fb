package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inboxguard/inboxguard/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the VerdictCache interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS score_cache (
			content_digest TEXT PRIMARY KEY,
			prediction INTEGER,
			confidence REAL,
			scored_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expires_at ON score_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached score by content digest
func (c *SQLiteCache) Get(ctx context.Context, digest string) (*core.CacheEntry, error) {
	var prediction int
	var confidence float64
	var scoredAt, expiresAt string

	// Timestamps are stored as RFC3339 UTC, so lexical comparison is chronological
	err := c.db.QueryRowContext(ctx, `
		SELECT prediction, confidence, scored_at, expires_at
		FROM score_cache
		WHERE content_digest = ? AND expires_at > ?
	`, digest, time.Now().UTC().Format(time.RFC3339)).Scan(&prediction, &confidence, &scoredAt, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	scoredTime, err := time.Parse(time.RFC3339, scoredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scored_at timestamp: %w", err)
	}
	expiresTime, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expires_at timestamp: %w", err)
	}

	return &core.CacheEntry{
		Digest:     digest,
		Prediction: prediction,
		Confidence: confidence,
		ScoredAt:   scoredTime,
		ExpiresAt:  expiresTime,
	}, nil
}

// Set stores a cache entry
func (c *SQLiteCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO score_cache (content_digest, prediction, confidence, scored_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Digest, entry.Prediction, entry.Confidence,
		entry.ScoredAt.UTC().Format(time.RFC3339), entry.ExpiresAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (c *SQLiteCache) Delete(ctx context.Context, digest string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM score_cache
		WHERE content_digest = ?
	`, digest)

	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM score_cache
		WHERE expires_at <= ?
	`, time.Now().UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
