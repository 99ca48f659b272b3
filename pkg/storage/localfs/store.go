// Package localfs implements storage.Store on a local file system,
// with keys mapped to file paths.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roadlog/roadlog/pkg/storage"
	"github.com/roadlog/roadlog/pkg/storage/status"

	"github.com/spf13/afero"
)

// New creates a new local file system backed storage model
func New(fs afero.Fs) storage.Store {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(".roadlog", "objects"))
	}
	return &localFS{
		fs: fs,
	}
}

type localFS struct {
	fs afero.Fs
}

func (l *localFS) Has(ctx context.Context, key string) (bool, error) {
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !fi.IsDir(), nil
}

type localReader struct {
	objectReader io.ReadCloser
}

func (r localReader) WriteTo(writer io.Writer) (n int64, err error) {
	return storage.PipeIO(writer, r.objectReader)
}

func (r localReader) Close() error {
	return r.objectReader.Close()
}

func (r localReader) Read(p []byte) (n int, err error) {
	return r.objectReader.Read(p)
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotFound
	}
	t, err := l.fs.Open(key)
	if err != nil {
		return nil, err
	}
	return localReader{
		objectReader: t,
	}, nil
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader, overwrite storage.NewKey) error {
	dir := filepath.Dir(key)
	if dir != "" {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC | os.O_SYNC
	if overwrite == storage.NoOverWrite {
		flag |= os.O_EXCL
	}
	target, err := l.fs.OpenFile(key, flag, 0600)
	if err != nil {
		if os.IsExist(err) {
			return status.ErrExists.Wrap(err)
		}
		return fmt.Errorf("create record for %q: %v", key, err)
	}
	if _, err = storage.PipeIO(target, source); err != nil {
		return fmt.Errorf("write record for %q: %v", key, err)
	}
	return target.Close()
}

func (l *localFS) Delete(ctx context.Context, key string) error {
	if err := l.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %v", key, err)
	}
	return nil
}

func (l *localFS) Keys(ctx context.Context) ([]string, error) {
	const root = "."
	var res []string
	e := afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root || info.IsDir() {
			return nil
		}
		res = append(res, filepath.ToSlash(path))
		return nil
	})
	if e != nil {
		return nil, e
	}
	sort.Strings(res)
	return res, nil
}

// KeysPrefix pages over the sorted key set. The local backend has no native
// listing API, so the full key set is walked on every call: acceptable for
// the object counts this store is used with.
func (l *localFS) KeysPrefix(ctx context.Context, pageToken, prefix, delimiter string, count int) ([]string, string, error) {
	if delimiter != "" {
		return nil, "", status.ErrNotSupported.WrapMessage("localfs listing has no delimiter support")
	}
	if count <= 0 {
		return nil, "", nil
	}
	all, err := l.Keys(ctx)
	if err != nil {
		return nil, "", err
	}
	keys := make([]string, 0, count)
	next := ""
	for _, k := range all {
		if !strings.HasPrefix(k, prefix) || k < pageToken {
			continue
		}
		if len(keys) == count {
			next = k
			break
		}
		keys = append(keys, k)
	}
	return keys, next, nil
}

func (l *localFS) Clear(ctx context.Context) error {
	return l.fs.RemoveAll("/")
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	default:
		return localfs
	}
}
