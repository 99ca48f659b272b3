// Package core implements the operations of the road dataset: submitting
// edit batches, reconstructing the merged view, checkpointing the baseline,
// and per-user activity queries.
//
// The dataset is split into a rarely-changing baseline snapshot (one large
// object) and an append-only change log of deltas. Reads fold the log over
// the baseline on demand; nothing merged is ever persisted outside of a
// checkpoint.
package core

import (
	"github.com/roadlog/roadlog/pkg/changelog"
	"github.com/roadlog/roadlog/pkg/dlogger"
	"github.com/roadlog/roadlog/pkg/storage"

	"go.uber.org/zap"
)

// Stores gathers the backend stores of the dataset. Baseline, change log and
// user records may live on a single bucket or on separate ones: they only
// share a Store interface, not a key namespace owner.
type Stores struct {
	Baseline storage.Store
	Log      storage.Store
	Users    storage.Store
}

// Ledger exposes the dataset operations over a set of stores
type Ledger struct {
	stores Stores
	log    *changelog.Log
	l      *zap.Logger

	maxLogEntries int
}

// Option is a functor to build a ledger with some options
type Option func(*Ledger)

// Logger sets a logger for this ledger
func Logger(logger *zap.Logger) Option {
	return func(ledger *Ledger) {
		if logger != nil {
			ledger.l = logger
		}
	}
}

// MaxLogEntries caps how much history a read folds over the baseline.
// Entries beyond the cap are silently ignored until the next checkpoint:
// an acknowledged scalability limit, not a failure.
func MaxLogEntries(max int) Option {
	return func(ledger *Ledger) {
		if max > 0 {
			ledger.maxLogEntries = max
		}
	}
}

const defaultMaxLogEntries = 1000

// New builds a ledger over the given stores
func New(stores Stores, options ...Option) *Ledger {
	ledger := &Ledger{
		stores:        stores,
		l:             dlogger.MustGetLogger(dlogger.LogLevelInfo),
		maxLogEntries: defaultMaxLogEntries,
	}
	for _, option := range options {
		option(ledger)
	}
	ledger.log = changelog.New(stores.Log, changelog.Logger(ledger.l))
	return ledger
}

// ChangeLog yields the underlying change log
func (ledger *Ledger) ChangeLog() *changelog.Log {
	return ledger.log
}
