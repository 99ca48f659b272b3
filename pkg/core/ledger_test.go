package core

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/roadlog/roadlog/pkg/core/status"
	"github.com/roadlog/roadlog/pkg/dlogger"
	"github.com/roadlog/roadlog/pkg/model"
	"github.com/roadlog/roadlog/pkg/storage"
	"github.com/roadlog/roadlog/pkg/storage/localfs"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedger(t testing.TB) *Ledger {
	t.Helper()
	return New(Stores{
		Baseline: localfs.New(afero.NewMemMapFs()),
		Log:      localfs.New(afero.NewMemMapFs()),
		Users:    localfs.New(afero.NewMemMapFs()),
	}, Logger(dlogger.MustGetLogger(dlogger.LogLevelNone)))
}

func road(id string, name string, coords ...orb.Point) *geojson.Feature {
	f := geojson.NewFeature(orb.LineString(coords))
	f.ID = id
	f.Properties["name"] = name
	f.Properties["highway"] = "residential"
	return f
}

func tombstone(id string) *geojson.Feature {
	f := geojson.NewFeature(nil)
	f.ID = id
	f.Properties["deleted"] = true
	return f
}

func collection(features ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	return fc
}

func featureByID(t testing.TB, fc *geojson.FeatureCollection, id string) *geojson.Feature {
	t.Helper()
	for _, f := range fc.Features {
		if model.FeatureID(f) == id {
			return f
		}
	}
	t.Fatalf("feature %q not found", id)
	return nil
}

func TestSnapshotEmptyDataset(t *testing.T) {
	ledger := setupLedger(t)

	merged, err := ledger.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Empty(t, merged.Features)
}

func TestSubmitAndSnapshot(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	token, err := ledger.Submit(ctx, "alice",
		collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	merged, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, merged.Features, 1)
	assert.Equal(t, "main st", featureByID(t, merged, "w1").Properties.MustString("name"))
}

func TestSubmitValidation(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, "", collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.ErrorIs(t, err, status.ErrNoAuthor)

	_, err = ledger.Submit(ctx, "alice", nil)
	require.ErrorIs(t, err, status.ErrEmptyDelta)

	_, err = ledger.Submit(ctx, "alice", collection())
	require.ErrorIs(t, err, status.ErrEmptyDelta)
}

func TestSubmitBumpsSaveCount(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ledger.Submit(ctx, "alice",
			collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
		require.NoError(t, err)
	}

	activity, err := ledger.UserActivity(ctx, "alice", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, activity.SaveCount)
	assert.Len(t, activity.Changes, 3)
}

func TestSubmitSurvivesCounterFailure(t *testing.T) {
	ledger := New(Stores{
		Baseline: localfs.New(afero.NewMemMapFs()),
		Log:      localfs.New(afero.NewMemMapFs()),
		Users:    localfs.New(afero.NewReadOnlyFs(afero.NewMemMapFs())),
	}, Logger(dlogger.MustGetLogger(dlogger.LogLevelNone)))
	ctx := context.Background()

	token, err := ledger.Submit(ctx, "alice",
		collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	merged, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, merged.Features, 1)
}

func TestSnapshotAppliesTombstone(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, "alice",
		collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, "bob", collection(tombstone("w1")))
	require.NoError(t, err)

	merged, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, merged.Features)
}

func TestSnapshotMissingBaseline(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	// a log entry with no baseline at all still merges
	_, err := ledger.Submit(ctx, "alice",
		collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.NoError(t, err)

	merged, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, merged.Features, 1)
}

func TestSnapshotCorruptBaseline(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	err := ledger.stores.Baseline.Put(ctx, model.GetArchivePathToBaseline(),
		bytes.NewBufferString("{ not geojson"), storage.OverWrite)
	require.NoError(t, err)

	_, err = ledger.Submit(ctx, "alice",
		collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.NoError(t, err)

	merged, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, merged.Features, 1)
}

func TestExport(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, "alice",
		collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.NoError(t, err)

	merged, filename, err := ledger.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExportFilename, filename)
	assert.Len(t, merged.Features, 1)
}

func TestCheckpoint(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, "alice",
		collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})))
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, "bob",
		collection(road("w2", "side st", orb.Point{5.1, 52.1}, orb.Point{5.2, 52.2})))
	require.NoError(t, err)

	result, err := ledger.Checkpoint(ctx, collection(
		road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53}),
		road("w3", "new rd", orb.Point{7, 54}, orb.Point{8, 55}),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, result.FeatureCount)
	assert.Equal(t, 2, result.ChangesCleared)
	assert.Equal(t, 2, result.CountersReset)

	// reads now come from the new baseline with an empty log
	merged, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, merged.Features, 2)
	featureByID(t, merged, "w3")

	activity, err := ledger.UserActivity(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Zero(t, activity.SaveCount)
	assert.Empty(t, activity.Changes)
}

func TestCheckpointValidation(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.Checkpoint(ctx, nil)
	require.ErrorIs(t, err, status.ErrNilBaseline)

	_, err = ledger.Checkpoint(ctx, collection(
		road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53}),
		road("w1", "main st again", orb.Point{5, 52}, orb.Point{6, 53}),
	))
	require.ErrorIs(t, err, status.ErrDuplicateID)
}

type stubSource struct {
	fc  *geojson.FeatureCollection
	err error
}

func (s *stubSource) Roads(_ context.Context) (*geojson.FeatureCollection, error) {
	return s.fc, s.err
}

func TestCheckpointFrom(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	result, err := ledger.CheckpointFrom(ctx, &stubSource{
		fc: collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FeatureCount)

	_, err = ledger.CheckpointFrom(ctx, &stubSource{err: io.ErrUnexpectedEOF})
	require.Error(t, err)
}

func TestUserActivityOrderAndLimit(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		entry := &model.ChangeEntry{
			Author:    "alice",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Features:  collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})),
		}
		_, err := ledger.log.Append(ctx, entry)
		require.NoError(t, err)
	}
	_, err := ledger.log.Append(ctx, &model.ChangeEntry{
		Author:    "bob",
		Timestamp: base.Add(10 * time.Minute),
		Features:  collection(tombstone("w1")),
	})
	require.NoError(t, err)

	activity, err := ledger.UserActivity(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, activity.Changes, 2)
	// most recent first, bob's entry filtered out, payloads stripped
	assert.True(t, activity.Changes[1].Timestamp.Before(activity.Changes[0].Timestamp))
	for _, c := range activity.Changes {
		assert.Equal(t, "alice", c.Author)
		assert.Nil(t, c.Features)
	}
}

func TestUserActivityUnknownUser(t *testing.T) {
	ledger := setupLedger(t)

	activity, err := ledger.UserActivity(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Zero(t, activity.SaveCount)
	assert.Empty(t, activity.Changes)
}

func TestUserActivityValidation(t *testing.T) {
	ledger := setupLedger(t)

	_, err := ledger.UserActivity(context.Background(), "", 5)
	require.ErrorIs(t, err, status.ErrUsername)

	_, err = ledger.UserActivity(context.Background(), "alice", 0)
	require.ErrorIs(t, err, status.ErrLimit)
}

func TestRecentChanges(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	base := time.Now().UTC()
	authors := []string{"alice", "bob", "carol"}
	for i, author := range authors {
		_, err := ledger.log.Append(ctx, &model.ChangeEntry{
			Author:    author,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Features:  collection(road("w1", "main st", orb.Point{5, 52}, orb.Point{6, 53})),
		})
		require.NoError(t, err)
	}

	recent, err := ledger.RecentChanges(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "carol", recent[0].Author)
	assert.Equal(t, "bob", recent[1].Author)
	assert.Nil(t, recent[0].Features)

	_, err = ledger.RecentChanges(ctx, 0)
	require.ErrorIs(t, err, status.ErrLimit)
}
