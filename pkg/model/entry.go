package model

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb/geojson"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// OSM origin properties preserved on imported road features
const (
	osmTypeProperty = "_osm_type"
	osmIDProperty   = "_osm_id"
)

// ChangeEntry is one immutable batch of feature replacements and deletions
// appended to the change log.
//
// Token and Seq are assigned at append time. Token is the K-sortable storage
// key suffix; Seq increases monotonically within a writer process. Both are
// persisted with the entry, so the merge ordering of entries sharing a
// timestamp is a deterministic function of stored data.
type ChangeEntry struct {
	Token       string                     `json:"token,omitempty" yaml:"token,omitempty"`
	Seq         uint64                     `json:"seq,omitempty" yaml:"seq,omitempty"`
	Author      string                     `json:"author" yaml:"author"`
	Timestamp   time.Time                  `json:"timestamp" yaml:"timestamp"`
	Summary     string                     `json:"summary,omitempty" yaml:"summary,omitempty"`
	BoundingBox []float64                  `json:"boundingBox,omitempty" yaml:"boundingBox,flow,omitempty"`
	Features    *geojson.FeatureCollection `json:"features,omitempty" yaml:"-"`
	_           struct{}
}

// FeatureList is the delta set of an entry, empty when the entry carries none
func (e *ChangeEntry) FeatureList() []*geojson.Feature {
	if e == nil || e.Features == nil {
		return nil
	}
	return e.Features.Features
}

// Before orders entries for merge purposes: timestamp ascending, ties broken
// by the append sequence, then by token.
func (e *ChangeEntry) Before(other *ChangeEntry) bool {
	if !e.Timestamp.Equal(other.Timestamp) {
		return e.Timestamp.Before(other.Timestamp)
	}
	if e.Seq != other.Seq {
		return e.Seq < other.Seq
	}
	return e.Token < other.Token
}

// MarshalChangeEntry serializes an entry for storage
func MarshalChangeEntry(e *ChangeEntry) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("received nil entry to marshal")
	}
	return codec.Marshal(e)
}

// UnmarshalChangeEntry deserializes a stored entry
func UnmarshalChangeEntry(b []byte) (*ChangeEntry, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("received empty entry to unmarshal")
	}
	var e ChangeEntry
	if err := codec.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEntryTimeStamp returns the timestamp assigned to new entries
func GetEntryTimeStamp() time.Time {
	return time.Now().UTC()
}
