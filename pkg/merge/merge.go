// Package merge reconstructs the current road dataset from a baseline
// snapshot and the ordered change log.
//
// The merge is a pure function of its inputs: no caching, no stored output.
// It is re-run on every read, trading read latency for the absence of any
// cache invalidation machinery.
package merge

import (
	"sort"

	"github.com/roadlog/roadlog/pkg/model"

	"github.com/paulmach/orb/geojson"
)

// Merge folds change entries (oldest to newest) over the baseline and
// returns the canonical feature collection.
//
// Each delta feature is keyed by its identifier: a tombstone removes the
// identifier from the view, anything else replaces the feature wholesale.
// There is no field-level merging. Replaying an entry twice yields the same
// result as once, so duplicated log reads are harmless.
//
// Entries are stable-sorted by timestamp, with ties broken by the append
// sequence and token persisted on each entry: the result is deterministic
// for a given set of entries, no matter the order they were listed in.
func Merge(baseline *geojson.FeatureCollection, entries []model.ChangeEntry) *geojson.FeatureCollection {
	current := make(map[string]*geojson.Feature)
	order := make([]string, 0, len(baselineFeatures(baseline)))

	upsert := func(id string, f *geojson.Feature) {
		if _, known := current[id]; !known {
			order = append(order, id)
		}
		current[id] = f
	}

	for _, f := range baselineFeatures(baseline) {
		id := model.FeatureID(f)
		if id == "" {
			continue
		}
		upsert(id, f)
	}

	sorted := make([]model.ChangeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Before(&sorted[j])
	})

	for i := range sorted {
		for _, f := range sorted[i].FeatureList() {
			id := model.FeatureID(f)
			if id == "" {
				continue
			}
			if model.IsTombstone(f) {
				delete(current, id)
				continue
			}
			upsert(id, f)
		}
	}

	merged := geojson.NewFeatureCollection()
	emitted := make(map[string]bool, len(current))
	for _, id := range order {
		if emitted[id] {
			continue
		}
		emitted[id] = true
		if f, live := current[id]; live {
			merged.Append(f)
		}
	}
	return merged
}

func baselineFeatures(fc *geojson.FeatureCollection) []*geojson.Feature {
	if fc == nil {
		return nil
	}
	return fc.Features
}
