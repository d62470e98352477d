package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists analysis runs and their estimator results. All writes are
// atomic; a run and its results survive process restarts so that repeated
// analyses of the same log and parameter set become lookups.
type Store interface {
	// CreateRun records a new analysis pass over one decoded log and
	// returns its identifier.
	CreateRun(ctx context.Context, run *Run) (runID int64, err error)

	// Run retrieves one run by ID. Returns nil without error when the run
	// does not exist.
	Run(ctx context.Context, id int64) (*Run, error)

	// FindRun returns the most recent run matching the log contents
	// identified by hash and size, or nil when the log has never been
	// analyzed.
	FindRun(ctx context.Context, logHash string, logSize int64) (*Run, error)

	// Runs returns all recorded runs ordered by creation time.
	Runs(ctx context.Context) ([]*Run, error)

	// StoreResults saves a batch of estimator results for one run in a
	// single transaction, replacing earlier results with the same cache
	// key.
	StoreResults(ctx context.Context, runID int64, results []Result) error

	// Result looks up one cached estimator output. Returns nil without
	// error on a cache miss.
	Result(ctx context.Context, runID int64, kind, axis, channel, params string) (*Result, error)

	// Results returns all results stored for one run.
	Results(ctx context.Context, runID int64) ([]*Result, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}
