package model

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Properties marking a feature as a tombstone. Several client conventions
// are accepted; all mean "remove this identifier from the merged view".
const (
	deletedProperty       = "deleted"
	legacyDeletedProperty = "_deleted"
	actionProperty        = "_action"
	actionDelete          = "delete"
)

// FeatureID normalizes the identifier of a feature. Identifiers are expected
// to be stable across edits ("w<osm-way-id>" for imported roads). Features
// lacking a top-level id fall back to their OSM origin properties; features
// with no usable identity return the empty string.
func FeatureID(f *geojson.Feature) string {
	if f == nil {
		return ""
	}
	switch id := f.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case nil:
	default:
		// numeric ids arrive as float64 from JSON
		return fmt.Sprint(id)
	}
	if f.Properties == nil {
		return ""
	}
	osmType, hasType := f.Properties[osmTypeProperty]
	osmID, hasID := f.Properties[osmIDProperty]
	if !hasType && !hasID {
		return ""
	}
	return fmt.Sprintf("%v:%v", osmType, osmID)
}

// IsTombstone reports whether a feature is a deletion marker
func IsTombstone(f *geojson.Feature) bool {
	if f == nil || f.Properties == nil {
		return false
	}
	if v, ok := f.Properties[deletedProperty].(bool); ok && v {
		return true
	}
	if v, ok := f.Properties[legacyDeletedProperty].(bool); ok && v {
		return true
	}
	if v, ok := f.Properties[actionProperty].(string); ok && v == actionDelete {
		return true
	}
	return false
}

// UnmarshalFeatureCollection parses a GeoJSON feature collection.
//
// Some clients send the tombstone as a top-level "deleted" flag on the
// feature object rather than as a property. GeoJSON parsing drops unknown
// top-level members, so that flag is normalized into a property here before
// any entry is built from the payload.
func UnmarshalFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var envelope struct {
		Type     string                `json:"type"`
		Features []jsoniter.RawMessage `json:"features"`
	}
	if err := codec.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, raw := range envelope.Features {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, err
		}
		if jsoniter.Get(raw, deletedProperty).ToBool() {
			if f.Properties == nil {
				f.Properties = geojson.Properties{}
			}
			f.Properties[legacyDeletedProperty] = true
		}
		fc.Append(f)
	}
	return fc, nil
}

// BoundingBox computes the summary box [minLat, minLon, maxLat, maxLon] over
// every coordinate carried by the given features. Features without
// coordinates contribute nothing; when no feature contributes, the box is
// absent (nil), never a degenerate value.
func BoundingBox(features []*geojson.Feature) []float64 {
	acc := boundsAccumulator{}
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		acc.addGeometry(f.Geometry)
	}
	if !acc.seen {
		return nil
	}
	return []float64{acc.minLat, acc.minLon, acc.maxLat, acc.maxLon}
}

type boundsAccumulator struct {
	seen                           bool
	minLat, minLon, maxLat, maxLon float64
}

func (b *boundsAccumulator) addPoint(p orb.Point) {
	lon, lat := p.Lon(), p.Lat()
	if !b.seen {
		b.seen = true
		b.minLat, b.maxLat = lat, lat
		b.minLon, b.maxLon = lon, lon
		return
	}
	if lat < b.minLat {
		b.minLat = lat
	}
	if lat > b.maxLat {
		b.maxLat = lat
	}
	if lon < b.minLon {
		b.minLon = lon
	}
	if lon > b.maxLon {
		b.maxLon = lon
	}
}

func (b *boundsAccumulator) addGeometry(g orb.Geometry) {
	switch geom := g.(type) {
	case orb.Point:
		b.addPoint(geom)
	case orb.MultiPoint:
		for _, p := range geom {
			b.addPoint(p)
		}
	case orb.LineString:
		for _, p := range geom {
			b.addPoint(p)
		}
	case orb.MultiLineString:
		for _, ls := range geom {
			b.addGeometry(ls)
		}
	case orb.Ring:
		for _, p := range geom {
			b.addPoint(p)
		}
	case orb.Polygon:
		for _, r := range geom {
			b.addGeometry(r)
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			b.addGeometry(poly)
		}
	case orb.Collection:
		for _, member := range geom {
			b.addGeometry(member)
		}
	case orb.Bound:
		b.addPoint(geom.Min)
		b.addPoint(geom.Max)
	}
}
