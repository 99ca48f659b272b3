package core

import (
	"bytes"
	"context"

	"github.com/roadlog/roadlog/pkg/core/status"
	"github.com/roadlog/roadlog/pkg/metrics"
	"github.com/roadlog/roadlog/pkg/model"
	"github.com/roadlog/roadlog/pkg/storage"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// CheckpointResult reports what a checkpoint did
type CheckpointResult struct {
	FeatureCount   int `json:"featureCount"`
	ChangesCleared int `json:"changesCleared"`
	CountersReset  int `json:"countersReset"`
	_              struct{}
}

// RoadSource produces a replacement road dataset, typically from an
// external map provider.
type RoadSource interface {
	Roads(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Checkpoint replaces the baseline snapshot with the given dataset, then
// clears the change log and zeroes all user save counters. This is the only
// operation that compacts history: after it, reads start from the new
// baseline with an empty log.
//
// The dataset is validated before anything is touched: it must be non-nil
// and all of its identified features must carry unique identifiers. The
// baseline write happens before the log is cleared, so a failure partway
// leaves at worst a new baseline with stale log entries still folding over
// it, never a cleared log without its replacement snapshot.
func (ledger *Ledger) Checkpoint(ctx context.Context, dataset *geojson.FeatureCollection) (*CheckpointResult, error) {
	if dataset == nil {
		return nil, status.ErrNilBaseline
	}
	if err := checkUniqueIDs(dataset.Features); err != nil {
		return nil, err
	}

	b, err := dataset.MarshalJSON()
	if err != nil {
		return nil, status.ErrBaselineStore.Wrap(err)
	}
	err = ledger.stores.Baseline.Put(ctx,
		model.GetArchivePathToBaseline(), bytes.NewReader(b), storage.OverWrite)
	if err != nil {
		return nil, status.ErrBaselineStore.WrapWithLog(ledger.l, err,
			zap.String("store", ledger.stores.Baseline.String()))
	}

	cleared, err := ledger.log.Clear(ctx)
	if err != nil {
		return nil, err
	}

	reset, err := ledger.resetSaveCounts(ctx)
	if err != nil {
		return nil, err
	}

	metrics.CheckpointsTotal.Inc()
	ledger.l.Info("checkpoint complete",
		zap.Int("features", len(dataset.Features)),
		zap.Int("changesCleared", cleared),
		zap.Int("countersReset", reset),
	)
	return &CheckpointResult{
		FeatureCount:   len(dataset.Features),
		ChangesCleared: cleared,
		CountersReset:  reset,
	}, nil
}

// CheckpointFrom fetches a replacement dataset from src and checkpoints it.
// A failing fetch aborts before anything is modified.
func (ledger *Ledger) CheckpointFrom(ctx context.Context, src RoadSource) (*CheckpointResult, error) {
	dataset, err := src.Roads(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Checkpoint(ctx, dataset)
}

func checkUniqueIDs(features []*geojson.Feature) error {
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		id := model.FeatureID(f)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			return status.ErrDuplicateID.WrapMessage(id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
