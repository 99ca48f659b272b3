// Package status declares error constants returned by
// the storage backends.
package status

import (
	"github.com/roadlog/roadlog/pkg/errors"
)

var (
	// ErrNotFound indicates the requested key does not exist on the store
	ErrNotFound = errors.New("not found")

	// ErrExists indicates a NoOverWrite Put hit an already existing key
	ErrExists = errors.New("exists already")

	// ErrNotSupported indicates the backend does not implement the operation
	ErrNotSupported = errors.New("not supported")

	// ErrObjectTooBig indicates an object too big to be read into memory
	ErrObjectTooBig = errors.New("object too big to be read into memory")

	// ErrInvalidKey indicates a key the backend cannot address
	ErrInvalidKey = errors.New("invalid key")
)
