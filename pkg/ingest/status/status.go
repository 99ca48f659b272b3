// Package status declares error constants returned by
// the ingest package.
package status

import (
	"github.com/roadlog/roadlog/pkg/errors"
)

var (
	// ErrBBox indicates an invalid bounding box parameter
	ErrBBox = errors.New("bbox must be four numbers: south,west,north,east")

	// ErrMirrors indicates that no configured Overpass mirror produced a result
	ErrMirrors = errors.New("all overpass mirrors failed")

	// ErrDecode indicates an unparseable Overpass response
	ErrDecode = errors.New("cannot decode overpass response")
)
