// Package model describes the serializable entities of the road dataset:
// GeoJSON road features, immutable change entries appended to the log,
// per-user activity records, and the archive key layout tying them to
// backend storage.
package model
