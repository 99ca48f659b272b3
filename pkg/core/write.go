package core

import (
	"context"
	"fmt"

	"github.com/roadlog/roadlog/pkg/core/status"
	"github.com/roadlog/roadlog/pkg/metrics"
	"github.com/roadlog/roadlog/pkg/model"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// Submit appends one batch of feature replacements and deletions to the
// change log on behalf of author. The batch is persisted as a single
// immutable entry; existing entries and the baseline are never touched.
//
// The returned token identifies the appended entry. Bumping the author's
// save counter is best-effort: a failing user store is logged and counted,
// never surfaced, since the entry is already durable by then.
func (ledger *Ledger) Submit(ctx context.Context, author string, features *geojson.FeatureCollection) (string, error) {
	if author == "" {
		return "", status.ErrNoAuthor
	}
	if features == nil || len(features.Features) == 0 {
		return "", status.ErrEmptyDelta
	}

	entry := &model.ChangeEntry{
		Author:      author,
		Timestamp:   model.GetEntryTimeStamp(),
		Summary:     summarize(features.Features),
		BoundingBox: model.BoundingBox(features.Features),
		Features:    features,
	}

	token, err := ledger.log.Append(ctx, entry)
	if err != nil {
		return "", err
	}
	metrics.SavesTotal.Inc()

	if uerr := ledger.incrementSaveCount(ctx, author); uerr != nil {
		metrics.CounterUpdateFailures.Inc()
		ledger.l.Warn("change entry appended but save counter not updated",
			zap.String("author", author),
			zap.String("token", token),
			zap.Error(uerr),
		)
	}

	ledger.l.Info("change entry appended",
		zap.String("author", author),
		zap.String("token", token),
		zap.Int("features", len(features.Features)),
	)
	return token, nil
}

// summarize renders a human-readable digest of a delta, e.g. "3 saved, 1 deleted"
func summarize(features []*geojson.Feature) string {
	var saved, deleted int
	for _, f := range features {
		if model.IsTombstone(f) {
			deleted++
			continue
		}
		saved++
	}
	switch {
	case deleted == 0:
		return fmt.Sprintf("%d saved", saved)
	case saved == 0:
		return fmt.Sprintf("%d deleted", deleted)
	default:
		return fmt.Sprintf("%d saved, %d deleted", saved, deleted)
	}
}
