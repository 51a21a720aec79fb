package core

import (
	"context"
)

// ScoringOracle defines the interface to the external text classification model.
// Score returns the predicted class (0 legitimate, 1 phishing) and the class
// probability vector for the given text.
type ScoringOracle interface {
	Score(ctx context.Context, text string) (predicted int, probs []float64, err error)
}

// VerdictCache defines the interface for caching oracle scores
type VerdictCache interface {
	// Get retrieves a cached score by content digest
	Get(ctx context.Context, digest string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, digest string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// MailStore defines the interface to the external mailbox client.
// One store instance wraps one connection; calls are sequential per connection.
type MailStore interface {
	// SelectFolder makes the named folder the context for subsequent calls
	SelectFolder(ctx context.Context, folder string) error

	// ListRecentUIDs returns the identifiers of at most max of the newest
	// messages in the folder, oldest first
	ListRecentUIDs(ctx context.Context, folder string, max int) ([]string, error)

	// Fetch retrieves and decodes one message by identifier
	Fetch(ctx context.Context, uid string) (*EmailRecord, error)

	// Apply performs one mailbox mutation. Conflicts with existing state
	// (label already present, message already gone) are not errors.
	Apply(ctx context.Context, m Mutation) error

	// EnsureLabel creates a label or folder if it does not already exist
	EnsureLabel(ctx context.Context, name string) error

	// Close terminates the connection
	Close() error
}

// VerdictStore defines the interface for persisting and reloading verdict batches
type VerdictStore interface {
	// Save writes one batch and returns the path of the file written
	Save(verdicts []Verdict) (string, error)

	// LoadLatest reads back the most recently written batch as a uid keyed
	// mapping. No stored batch yields an empty mapping, not an error.
	LoadLatest() (map[string]Verdict, error)
}

// Notifier defines the interface for delivering run reports
type Notifier interface {
	Notify(ctx context.Context, subject string, body string) error
}
