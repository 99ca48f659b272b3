package changelog

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/roadlog/roadlog/pkg/changelog/status"
	"github.com/roadlog/roadlog/pkg/model"
	"github.com/roadlog/roadlog/pkg/storage"
	"github.com/roadlog/roadlog/pkg/storage/localfs"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEntry(author string, ts time.Time) *model.ChangeEntry {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.LineString{{5, 52}, {6, 53}})
	f.ID = "w1"
	f.Properties = geojson.Properties{"highway": "primary"}
	fc.Append(f)
	return &model.ChangeEntry{
		Author:    author,
		Timestamp: ts,
		Summary:   "map updated",
		Features:  fc,
	}
}

func setupLog(t testing.TB) (*Log, storage.Store) {
	store := localfs.New(afero.NewMemMapFs())
	return New(store, Logger(zap.NewNop())), store
}

func TestAppend(t *testing.T) {
	lg, store := setupLog(t)
	ctx := context.Background()

	token, err := lg.Append(ctx, testEntry("alice", time.Now().UTC()))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = ksuid.Parse(token)
	require.NoError(t, err, "tokens must be valid ksuids: %s", token)

	has, err := store.Has(ctx, model.GetArchivePathToChange(token))
	require.NoError(t, err)
	assert.True(t, has)

	entry, err := lg.Fetch(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "alice", entry.Author)
	assert.Equal(t, token, entry.Token)
	assert.NotZero(t, entry.Seq)
	require.NotNil(t, entry.Features)
	assert.Len(t, entry.Features.Features, 1)
}

func TestAppendNil(t *testing.T) {
	lg, _ := setupLog(t)
	_, err := lg.Append(context.Background(), nil)
	require.ErrorIs(t, err, status.ErrNilEntry)
}

func TestAppendAssignsTimestamp(t *testing.T) {
	lg, _ := setupLog(t)
	entry := testEntry("alice", time.Time{})
	_, err := lg.Append(context.Background(), entry)
	require.NoError(t, err)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestAppendSequenceMonotonic(t *testing.T) {
	lg, _ := setupLog(t)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		entry := testEntry("alice", time.Now().UTC())
		_, err := lg.Append(ctx, entry)
		require.NoError(t, err)
		require.Greater(t, entry.Seq, last)
		last = entry.Seq
	}
}

func TestFetchAbsent(t *testing.T) {
	lg, _ := setupLog(t)

	entry, err := lg.Fetch(context.Background(), ksuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, entry, "absent entries are a skip, not an error")
}

func TestListEntries(t *testing.T) {
	lg, _ := setupLog(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		_, err := lg.Append(ctx, testEntry("alice", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	entries, next, err := lg.ListEntries(ctx, "", 100)
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, entries, 10)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Before(&entries[i]), "entries must come back in merge order")
	}
}

func TestListEntriesBounded(t *testing.T) {
	lg, _ := setupLog(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := lg.Append(ctx, testEntry("bob", time.Now().UTC()))
		require.NoError(t, err)
	}

	entries, next, err := lg.ListEntries(ctx, "", 5)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	require.NotEmpty(t, next)

	rest, last, err := lg.ListEntries(ctx, next, 5)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	assert.Empty(t, last)
}

func TestListEntriesMaxCount(t *testing.T) {
	lg, _ := setupLog(t)
	_, _, err := lg.ListEntries(context.Background(), "", 0)
	require.ErrorIs(t, err, status.ErrMaxCount)
}

func TestListEntriesSkipsCorrupt(t *testing.T) {
	lg, store := setupLog(t)
	ctx := context.Background()

	_, err := lg.Append(ctx, testEntry("alice", time.Now().UTC()))
	require.NoError(t, err)

	// a record that does not parse must not take down the listing
	bad := ksuid.New().String()
	err = store.Put(ctx, model.GetArchivePathToChange(bad), strings.NewReader("{nope"), storage.NoOverWrite)
	require.NoError(t, err)

	entries, _, err := lg.ListEntries(ctx, "", 100)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClear(t *testing.T) {
	lg, _ := setupLog(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := lg.Append(ctx, testEntry("carol", time.Now().UTC()))
		require.NoError(t, err)
	}
	cleared, err := lg.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, cleared)

	entries, next, err := lg.ListEntries(ctx, "", 100)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, next)
}

type failingStore struct {
	storage.Store
	failPut  bool
	failList bool
}

func (f *failingStore) Put(ctx context.Context, key string, rdr io.Reader, newKey storage.NewKey) error {
	if f.failPut {
		return io.ErrClosedPipe
	}
	return f.Store.Put(ctx, key, rdr, newKey)
}

func (f *failingStore) KeysPrefix(ctx context.Context, pageToken, prefix, delimiter string, count int) ([]string, string, error) {
	if f.failList {
		return nil, "", io.ErrClosedPipe
	}
	return f.Store.KeysPrefix(ctx, pageToken, prefix, delimiter, count)
}

func TestAppendStorageError(t *testing.T) {
	store := &failingStore{Store: localfs.New(afero.NewMemMapFs()), failPut: true}
	lg := New(store, Logger(zap.NewNop()))

	_, err := lg.Append(context.Background(), testEntry("alice", time.Now().UTC()))
	require.ErrorIs(t, err, status.ErrAppend)
}

func TestListStorageError(t *testing.T) {
	store := &failingStore{Store: localfs.New(afero.NewMemMapFs()), failList: true}
	lg := New(store, Logger(zap.NewNop()))

	_, _, err := lg.ListEntries(context.Background(), "", 10)
	require.ErrorIs(t, err, status.ErrList)
}

func TestEntryRoundTrip(t *testing.T) {
	entry := testEntry("alice", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	entry.BoundingBox = []float64{52, 5, 53, 6}
	entry.Token = ksuid.New().String()
	entry.Seq = 7

	b, err := model.MarshalChangeEntry(entry)
	require.NoError(t, err)
	require.True(t, bytes.Contains(b, []byte(`"boundingBox":[52,5,53,6]`)))

	got, err := model.UnmarshalChangeEntry(b)
	require.NoError(t, err)
	assert.Equal(t, entry.Author, got.Author)
	assert.Equal(t, entry.Seq, got.Seq)
	assert.True(t, entry.Timestamp.Equal(got.Timestamp))
	require.NotNil(t, got.Features)
	assert.Equal(t, "w1", model.FeatureID(got.Features.Features[0]))
}
