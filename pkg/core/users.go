package core

import (
	"bytes"
	"context"

	"github.com/roadlog/roadlog/pkg/core/status"
	"github.com/roadlog/roadlog/pkg/errors"
	"github.com/roadlog/roadlog/pkg/model"
	"github.com/roadlog/roadlog/pkg/storage"
	storagestatus "github.com/roadlog/roadlog/pkg/storage/status"
)

// Activity is the per-user view over the dataset: the stored save counter
// plus that user's entries from the current change log, most recent first.
//
// The counter survives checkpoints only as a reset to zero, so it reflects
// saves since the last checkpoint, like the changes themselves.
type Activity struct {
	Username  string              `json:"username"`
	SaveCount int                 `json:"saveCount"`
	Changes   []model.ChangeEntry `json:"changes"`
	_         struct{}
}

// UserActivity reports the save counter and recent log entries of one user.
// A user with no stored record and no entries yields a zero activity, not an
// error: every authenticated identity has an (empty) history.
func (ledger *Ledger) UserActivity(ctx context.Context, username string, limit int) (*Activity, error) {
	if username == "" {
		return nil, status.ErrUsername
	}
	if limit <= 0 {
		return nil, status.ErrLimit
	}

	record, err := ledger.userRecord(ctx, username)
	if err != nil {
		return nil, err
	}

	entries, _, err := ledger.log.ListEntries(ctx, "", ledger.maxLogEntries)
	if err != nil {
		return nil, err
	}

	activity := &Activity{
		Username:  username,
		SaveCount: record.SaveCount,
		Changes:   make([]model.ChangeEntry, 0, limit),
	}
	// ListEntries yields merge order (oldest first): walk backwards
	for i := len(entries) - 1; i >= 0 && len(activity.Changes) < limit; i-- {
		if entries[i].Author != username {
			continue
		}
		entry := entries[i]
		entry.Features = nil // activity lists metadata, not payloads
		activity.Changes = append(activity.Changes, entry)
	}
	return activity, nil
}

// RecentChanges lists the newest change log entries across all users, most
// recent first, with payloads stripped down to metadata.
func (ledger *Ledger) RecentChanges(ctx context.Context, limit int) ([]model.ChangeEntry, error) {
	if limit <= 0 {
		return nil, status.ErrLimit
	}

	entries, _, err := ledger.log.ListEntries(ctx, "", ledger.maxLogEntries)
	if err != nil {
		return nil, err
	}

	recent := make([]model.ChangeEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(recent) < limit; i-- {
		entry := entries[i]
		entry.Features = nil
		recent = append(recent, entry)
	}
	return recent, nil
}

func (ledger *Ledger) userRecord(ctx context.Context, username string) (*model.UserRecord, error) {
	b, err := storage.ReadObject(ctx, ledger.stores.Users, model.GetArchivePathToUser(username))
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotFound) {
			return &model.UserRecord{Username: username}, nil
		}
		return nil, status.ErrUserStore.Wrap(err)
	}
	record, err := model.UnmarshalUserRecord(b)
	if err != nil {
		return nil, status.ErrUserStore.Wrap(err)
	}
	return record, nil
}

func (ledger *Ledger) putUserRecord(ctx context.Context, record *model.UserRecord) error {
	b, err := model.MarshalUserRecord(record)
	if err != nil {
		return status.ErrUserStore.Wrap(err)
	}
	err = ledger.stores.Users.Put(ctx,
		model.GetArchivePathToUser(record.Username), bytes.NewReader(b), storage.OverWrite)
	if err != nil {
		return status.ErrUserStore.Wrap(err)
	}
	return nil
}

func (ledger *Ledger) incrementSaveCount(ctx context.Context, username string) error {
	record, err := ledger.userRecord(ctx, username)
	if err != nil {
		return err
	}
	record.SaveCount++
	return ledger.putUserRecord(ctx, record)
}

// resetSaveCounts zeroes every stored user record. Walks pages of the users
// prefix and rewrites each record in place.
func (ledger *Ledger) resetSaveCounts(ctx context.Context) (int, error) {
	var reset int
	pageToken := ""
	for {
		keys, next, err := ledger.stores.Users.KeysPrefix(ctx,
			pageToken, model.GetArchivePathPrefixToUsers(), "", resetPageSize)
		if err != nil {
			return reset, status.ErrUserStore.Wrap(err)
		}
		for _, key := range keys {
			username := model.GetUsernameFromArchivePath(key)
			if username == "" {
				continue
			}
			if err := ledger.putUserRecord(ctx, &model.UserRecord{Username: username}); err != nil {
				return reset, err
			}
			reset++
		}
		if next == "" {
			break
		}
		pageToken = next
	}
	return reset, nil
}

const resetPageSize = 100
