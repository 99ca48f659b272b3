package model

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureID(t *testing.T) {
	f := geojson.NewFeature(orb.Point{5, 52})
	f.ID = "w42"
	assert.Equal(t, "w42", FeatureID(f))

	f.ID = float64(42)
	assert.Equal(t, "42", FeatureID(f))

	f.ID = nil
	f.Properties = geojson.Properties{osmTypeProperty: "way", osmIDProperty: float64(42)}
	assert.Equal(t, "way:42", FeatureID(f))

	f.Properties = nil
	assert.Equal(t, "", FeatureID(f))

	assert.Equal(t, "", FeatureID(nil))
}

func TestIsTombstone(t *testing.T) {
	mk := func(props geojson.Properties) *geojson.Feature {
		f := geojson.NewFeature(orb.Point{5, 52})
		f.Properties = props
		return f
	}

	assert.False(t, IsTombstone(mk(geojson.Properties{"highway": "primary"})))
	assert.True(t, IsTombstone(mk(geojson.Properties{"deleted": true})))
	assert.True(t, IsTombstone(mk(geojson.Properties{"_deleted": true})))
	assert.True(t, IsTombstone(mk(geojson.Properties{"_action": "delete"})))
	assert.False(t, IsTombstone(mk(geojson.Properties{"deleted": false})))
	assert.False(t, IsTombstone(mk(geojson.Properties{"_action": "update"})))
	assert.False(t, IsTombstone(mk(geojson.Properties{"deleted": "true"})))
	assert.False(t, IsTombstone(nil))
}

func TestUnmarshalFeatureCollectionTopLevelDeleted(t *testing.T) {
	payload := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "id": "w1", "deleted": true,
			 "properties": {}, "geometry": null},
			{"type": "Feature", "id": "w2",
			 "properties": {"highway": "primary"},
			 "geometry": {"type": "LineString", "coordinates": [[5,52],[6,53]]}}
		]
	}`)
	fc, err := UnmarshalFeatureCollection(payload)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	assert.True(t, IsTombstone(fc.Features[0]))
	assert.False(t, IsTombstone(fc.Features[1]))
	assert.Equal(t, "w2", FeatureID(fc.Features[1]))
}

func TestUnmarshalFeatureCollectionInvalid(t *testing.T) {
	_, err := UnmarshalFeatureCollection([]byte(`{"type": "FeatureCollection", "features": [{"geometry": 12}]}`))
	require.Error(t, err)
}

func TestBoundingBoxLineString(t *testing.T) {
	f := geojson.NewFeature(orb.LineString{{5, 52}, {6, 53}})
	box := BoundingBox([]*geojson.Feature{f})
	require.NotNil(t, box)
	assert.Equal(t, []float64{52, 5, 53, 6}, box)
}

func TestBoundingBoxMixedGeometries(t *testing.T) {
	line := geojson.NewFeature(orb.LineString{{5, 52}, {6, 53}})
	point := geojson.NewFeature(orb.Point{4, 51})
	poly := geojson.NewFeature(orb.Polygon{orb.Ring{{5.5, 52.5}, {7, 54}, {5.5, 54}, {5.5, 52.5}}})

	box := BoundingBox([]*geojson.Feature{line, point, poly})
	require.NotNil(t, box)
	assert.Equal(t, []float64{51, 4, 54, 7}, box)
}

func TestBoundingBoxAbsent(t *testing.T) {
	// no features at all
	assert.Nil(t, BoundingBox(nil))

	// features with no usable coordinates contribute nothing
	empty := geojson.NewFeature(orb.LineString{})
	assert.Nil(t, BoundingBox([]*geojson.Feature{empty, nil}))
}
