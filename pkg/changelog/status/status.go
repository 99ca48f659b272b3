// Package status declares error constants returned by
// the changelog package.
package status

import (
	"github.com/roadlog/roadlog/pkg/errors"
)

var (
	// ErrNilEntry indicates an attempt to append a nil entry
	ErrNilEntry = errors.New("received nil change entry")

	// ErrToken indicates that we failed to generate a new ksuid token.
	// An error here is telling of an issue with the random generator.
	ErrToken = errors.New("failed to generate token")

	// ErrMarshal indicates a failure serializing an entry before append
	ErrMarshal = errors.New("failed to marshal change entry")

	// ErrAppend indicates a failure writing the entry to the log store
	ErrAppend = errors.New("failed to append change entry")

	// ErrMaxCount indicates a wrong max count parameter (should be strictly positive)
	ErrMaxCount = errors.New("max count needs to be greater than 0")

	// ErrList indicates a failure when listing entry tokens
	ErrList = errors.New("failed to list change entries")

	// ErrFetch indicates a failure when retrieving an entry
	ErrFetch = errors.New("failed to fetch change entry")

	// ErrCorrupt indicates a stored entry that does not parse
	ErrCorrupt = errors.New("corrupt change entry")

	// ErrClear indicates a failure while deleting log entries
	ErrClear = errors.New("failed to clear change log")
)
