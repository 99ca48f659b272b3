// Package changelog provides the append-only change log of the road dataset.
//
// The log keeps track of every edit batch: which author changed what and
// when. Entries are immutable, independently keyed objects on a backend
// store, so concurrent uncoordinated appends never overwrite one another.
// Keys embed a K-sortable ksuid token: listing the key range yields entries
// in rough time order, and the token doubles as the deterministic tie-break
// for entries sharing a timestamp.
package changelog

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/roadlog/roadlog/pkg/changelog/status"
	"github.com/roadlog/roadlog/pkg/dlogger"
	"github.com/roadlog/roadlog/pkg/errors"
	"github.com/roadlog/roadlog/pkg/model"
	"github.com/roadlog/roadlog/pkg/storage"
	storagestatus "github.com/roadlog/roadlog/pkg/storage/status"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

const (
	// maxEntriesPerList caps how many entries a single listing returns.
	// History beyond the cap is silently truncated: an acknowledged
	// scalability limit of the log, bounded in practice by checkpoints
	// folding the log back into the baseline.
	maxEntriesPerList = 1000

	maxConcurrency = 128
)

// Log is an append-only change log over a backend store
type Log struct {
	store          storage.Store
	maxConcurrency int
	seq            uint64
	l              *zap.Logger
}

// Option to the change log
type Option func(*Log)

// MaxConcurrency bounds parallel entry fetches during listing
func MaxConcurrency(c int) Option {
	return func(lg *Log) {
		if c > 0 {
			lg.maxConcurrency = c
		}
	}
}

// Logger sets a logger for this log
func Logger(logger *zap.Logger) Option {
	return func(lg *Log) {
		if logger != nil {
			lg.l = logger
		}
	}
}

// New builds a change log writing its entries to the given store
func New(store storage.Store, options ...Option) *Log {
	lg := &Log{
		store:          store,
		maxConcurrency: maxConcurrency,
		l:              dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, option := range options {
		option(lg)
	}
	return lg
}

// Append writes a new immutable entry and returns its token.
//
// The token is a fresh ksuid, the append sequence is process-local and
// monotonic; both are persisted on the entry before it is stored. Appends
// take no locks across entries: two concurrent writers land on distinct
// keys.
func (lg *Log) Append(ctx context.Context, entry *model.ChangeEntry) (string, error) {
	if entry == nil {
		return "", status.ErrNilEntry
	}
	token, err := ksuid.NewRandom()
	if err != nil {
		return "", status.ErrToken.WrapWithLog(lg.l, err)
	}
	entry.Token = token.String()
	entry.Seq = atomic.AddUint64(&lg.seq, 1)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = model.GetEntryTimeStamp()
	}

	b, err := model.MarshalChangeEntry(entry)
	if err != nil {
		return "", status.ErrMarshal.WrapWithLog(lg.l, err, zap.String("token", entry.Token))
	}
	err = lg.store.Put(ctx, model.GetArchivePathToChange(entry.Token), bytes.NewReader(b), storage.NoOverWrite)
	if err != nil {
		return "", status.ErrAppend.WrapWithLog(lg.l, err, zap.String("token", entry.Token))
	}
	lg.l.Debug("appended change entry",
		zap.String("token", entry.Token),
		zap.String("author", entry.Author))
	return entry.Token, nil
}

// Tokens lists up to max entry tokens at or after fromToken (empty means from
// the beginning). The next token to resume from is returned; empty means the
// listing is exhausted. Listings are capped at maxEntriesPerList.
func (lg *Log) Tokens(ctx context.Context, fromToken string, max int) ([]string, string, error) {
	if max <= 0 {
		return nil, "", status.ErrMaxCount
	}
	if max > maxEntriesPerList {
		max = maxEntriesPerList
	}
	pageToken := ""
	if fromToken != "" {
		pageToken = model.GetArchivePathToChange(fromToken)
	}
	keys, next, err := lg.store.KeysPrefix(ctx, pageToken, model.GetArchivePathPrefixToChanges(), "", max)
	if err != nil {
		return nil, "", status.ErrList.WrapWithLog(lg.l, err, zap.String("fromToken", fromToken))
	}
	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		tokens = append(tokens, model.GetTokenFromArchivePath(k))
	}
	return tokens, model.GetTokenFromArchivePath(next), nil
}

// Fetch retrieves one entry by token. An absent entry yields (nil, nil):
// entries race with listing and a missing key means "skip", never an error.
func (lg *Log) Fetch(ctx context.Context, token string) (*model.ChangeEntry, error) {
	b, err := storage.ReadObject(ctx, lg.store, model.GetArchivePathToChange(token))
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotFound) {
			return nil, nil
		}
		return nil, status.ErrFetch.Wrap(err)
	}
	entry, err := model.UnmarshalChangeEntry(b)
	if err != nil {
		return nil, status.ErrCorrupt.Wrap(err)
	}
	return entry, nil
}

// ListEntries fetches up to max entries starting at fromToken, with bounded
// concurrency.
//
// Absent entries are skipped; corrupt entries are skipped and logged, so one
// bad record never takes down a whole listing. Returned entries are sorted
// in merge order (timestamp, then sequence, then token). Storage failures
// other than absence fail the listing.
func (lg *Log) ListEntries(ctx context.Context, fromToken string, max int) ([]model.ChangeEntry, string, error) {
	tokens, next, err := lg.Tokens(ctx, fromToken, max)
	if err != nil {
		return nil, "", err
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := make(chan struct{}, lg.maxConcurrency)
	entries := make([]model.ChangeEntry, 0, len(tokens))

	for _, token := range tokens {
		wg.Add(1)
		sem <- struct{}{}
		go func(token string) {
			defer wg.Done()
			defer func() { <-sem }()
			entry, err := lg.fetchForList(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if entry != nil {
				entries = append(entries, *entry)
			}
		}(token)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, "", firstErr
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Before(&entries[j])
	})
	return entries, next, nil
}

func (lg *Log) fetchForList(ctx context.Context, token string) (*model.ChangeEntry, error) {
	entry, err := lg.Fetch(ctx, token)
	if err != nil {
		if errors.Is(err, status.ErrCorrupt) {
			lg.l.Warn("skipping corrupt change entry",
				zap.String("token", token),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// Clear deletes every entry and reports how many were removed.
// Checkpoint-only: not safe to run concurrently with in-flight appends,
// an append racing a clear may survive or vanish.
func (lg *Log) Clear(ctx context.Context) (int, error) {
	var cleared int
	for {
		tokens, _, err := lg.Tokens(ctx, "", maxEntriesPerList)
		if err != nil {
			return cleared, status.ErrClear.Wrap(err)
		}
		if len(tokens) == 0 {
			return cleared, nil
		}
		for _, token := range tokens {
			if err := lg.store.Delete(ctx, model.GetArchivePathToChange(token)); err != nil {
				return cleared, status.ErrClear.WrapWithLog(lg.l, err, zap.String("token", token))
			}
			cleared++
		}
	}
}
