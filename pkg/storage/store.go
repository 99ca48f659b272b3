package storage

import (
	"context"
	"io"
	"io/ioutil"

	"github.com/roadlog/roadlog/pkg/storage/status"
)

// NewKey tells Put whether overwriting an existing key is acceptable
type NewKey bool

const (
	// OverWrite an existing key on Put
	OverWrite NewKey = true

	// NoOverWrite requires the key to be new: Put fails on an existing key
	NoOverWrite NewKey = false
)

// MaxObjectSizeInMemory bounds objects read in full into memory
const MaxObjectSizeInMemory = 2 * 1024 * 1024 * 1024 // 2 gigs

// Store implementations know how to write entries to a K/V store.
//
// Typically this is something file system-like. Examples are GCS, local FS, NFS, ...
// Implementations of this interface are assumed to be fairly simple.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, NewKey) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)

	// KeysPrefix returns up to count keys lexically at or after pageToken,
	// restricted to prefix, along with the token to resume from.
	// An empty next token means the listing is exhausted.
	KeysPrefix(ctx context.Context, pageToken, prefix, delimiter string, count int) ([]string, string, error)

	Clear(context.Context) error
}

// PipeIO copies a reader to a writer with a fixed size buffer
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	buf := make([]byte, 32*1024)
	return io.CopyBuffer(writer, reader, buf)
}

// ReadObject reads a whole keyed object into memory
func ReadObject(ctx context.Context, store Store, key string) ([]byte, error) {
	rdr, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	b, err := ioutil.ReadAll(io.LimitReader(rdr, MaxObjectSizeInMemory+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxObjectSizeInMemory {
		return nil, status.ErrObjectTooBig
	}
	return b, nil
}
