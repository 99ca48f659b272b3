package core

import (
	"context"
	"time"

	"github.com/roadlog/roadlog/pkg/core/status"
	"github.com/roadlog/roadlog/pkg/errors"
	"github.com/roadlog/roadlog/pkg/merge"
	"github.com/roadlog/roadlog/pkg/metrics"
	"github.com/roadlog/roadlog/pkg/model"
	"github.com/roadlog/roadlog/pkg/storage"
	storagestatus "github.com/roadlog/roadlog/pkg/storage/status"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// ExportFilename is the suggested filename for downloaded snapshots
const ExportFilename = "roads.geojson"

// Snapshot reconstructs the current merged view of the dataset: the baseline
// with every change log entry folded over it in order.
//
// A missing baseline means a fresh dataset and yields an empty collection.
// A baseline that fails to parse is logged and likewise treated as empty:
// the change log remains readable when the snapshot object is damaged.
func (ledger *Ledger) Snapshot(ctx context.Context) (*geojson.FeatureCollection, error) {
	baseline, err := ledger.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}

	entries, _, err := ledger.log.ListEntries(ctx, "", ledger.maxLogEntries)
	if err != nil {
		return nil, err
	}

	defer func(t0 time.Time) {
		metrics.MergeDuration.Observe(time.Since(t0).Seconds())
	}(time.Now())

	merged := merge.Merge(baseline, entries)
	metrics.MergedFeatures.Set(float64(len(merged.Features)))

	ledger.l.Debug("reconstructed snapshot",
		zap.Int("entries", len(entries)),
		zap.Int("features", len(merged.Features)),
	)
	return merged, nil
}

// Export is Snapshot packaged for download: merged features plus the filename
// a client should save them under.
func (ledger *Ledger) Export(ctx context.Context) (*geojson.FeatureCollection, string, error) {
	merged, err := ledger.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	return merged, ExportFilename, nil
}

func (ledger *Ledger) loadBaseline(ctx context.Context) (*geojson.FeatureCollection, error) {
	b, err := storage.ReadObject(ctx, ledger.stores.Baseline, model.GetArchivePathToBaseline())
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotFound) {
			return geojson.NewFeatureCollection(), nil
		}
		return nil, status.ErrBaselineStore.WrapWithLog(ledger.l, err,
			zap.String("store", ledger.stores.Baseline.String()))
	}

	baseline, err := model.UnmarshalFeatureCollection(b)
	if err != nil {
		ledger.l.Warn("baseline does not parse, treating dataset as empty",
			zap.String("store", ledger.stores.Baseline.String()),
			zap.Error(err),
		)
		return geojson.NewFeatureCollection(), nil
	}
	return baseline, nil
}
