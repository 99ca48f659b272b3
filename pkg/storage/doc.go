// Package storage provides an interface to handle backend storage objects.
//
// A Store addresses immutable-ish objects by key: the road baseline is one
// large object, change log entries are small independently keyed objects,
// user records are small mutable objects.
//
// This package supports the following backends:
//   - GCS (Google)
//   - local file system
package storage
