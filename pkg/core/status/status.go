// Package status declares error constants returned by
// the core package.
package status

import (
	"github.com/roadlog/roadlog/pkg/errors"
)

var (
	// ErrNoAuthor indicates a write submitted without an authenticated identity
	ErrNoAuthor = errors.New("a change entry requires an author")

	// ErrEmptyDelta indicates a write carrying no features at all
	ErrEmptyDelta = errors.New("refusing to append an empty delta")

	// ErrNilBaseline indicates a checkpoint without a replacement dataset
	ErrNilBaseline = errors.New("checkpoint requires a baseline dataset")

	// ErrDuplicateID indicates a checkpoint dataset with colliding feature identifiers
	ErrDuplicateID = errors.New("baseline features must carry unique identifiers")

	// ErrBaselineStore indicates a failure reading or writing the baseline object
	ErrBaselineStore = errors.New("baseline store failure")

	// ErrUserStore indicates a failure reading or writing user records
	ErrUserStore = errors.New("user store failure")

	// ErrLimit indicates a wrong limit parameter (should be strictly positive)
	ErrLimit = errors.New("limit needs to be greater than 0")

	// ErrUsername indicates a user query without a username
	ErrUsername = errors.New("a username is required")
)
