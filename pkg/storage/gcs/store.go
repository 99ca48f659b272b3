// Package gcs implements storage.Store on Google Cloud Storage buckets.
package gcs

import (
	"context"
	"io"

	gcsStorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/roadlog/roadlog/pkg/storage"
	"github.com/roadlog/roadlog/pkg/storage/status"
)

type gcs struct {
	client         *gcsStorage.Client
	readOnlyClient *gcsStorage.Client
	bucket         string
}

// New builds a store backed by a GCS bucket. An empty credentialFile relies on
// the GOOGLE_APPLICATION_CREDENTIALS environment variable.
func New(ctx context.Context, bucket string, credentialFile string) (storage.Store, error) {
	googleStore := new(gcs)
	googleStore.bucket = bucket

	readOpts := []option.ClientOption{option.WithScopes(gcsStorage.ScopeReadOnly)}
	writeOpts := []option.ClientOption{option.WithScopes(gcsStorage.ScopeFullControl)}
	if credentialFile != "" {
		readOpts = append(readOpts, option.WithCredentialsFile(credentialFile))
		writeOpts = append(writeOpts, option.WithCredentialsFile(credentialFile))
	}

	var err error
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx, readOpts...)
	if err != nil {
		return nil, err
	}
	googleStore.client, err = gcsStorage.NewClient(ctx, writeOpts...)
	if err != nil {
		return nil, err
	}
	return googleStore, nil
}

func (g *gcs) String() string {
	return "gcs://" + g.bucket
}

func (g *gcs) Has(ctx context.Context, objectName string) (bool, error) {
	_, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).Attrs(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type gcsReader struct {
	objectReader io.ReadCloser
}

func (r gcsReader) WriteTo(writer io.Writer) (n int64, err error) {
	return storage.PipeIO(writer, r.objectReader)
}

func (r gcsReader) Close() error {
	return r.objectReader.Close()
}

func (r gcsReader) Read(p []byte) (n int, err error) {
	return r.objectReader.Read(p)
}

func (g *gcs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	objectReader, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return nil, status.ErrNotFound.Wrap(err)
		}
		return nil, err
	}
	return gcsReader{objectReader: objectReader}, nil
}

func (g *gcs) Put(ctx context.Context, objectName string, reader io.Reader, newObject storage.NewKey) error {
	b := g.client.Bucket(g.bucket).Object(objectName)
	var writer *gcsStorage.Writer
	if newObject == storage.NoOverWrite {
		writer = b.If(gcsStorage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	} else {
		writer = b.NewWriter(ctx)
	}
	_, err := storage.PipeIO(writer, reader)
	if err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func (g *gcs) Delete(ctx context.Context, objectName string) error {
	err := g.client.Bucket(g.bucket).Object(objectName).Delete(ctx)
	if err == gcsStorage.ErrObjectNotExist {
		return nil
	}
	return err
}

func (g *gcs) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	pageToken := ""
	for {
		ks, next, err := g.KeysPrefix(ctx, pageToken, "", "", 1000)
		if err != nil {
			return nil, err
		}
		keys = append(keys, ks...)
		if next == "" {
			break
		}
		pageToken = next
	}
	return keys, nil
}

func (g *gcs) KeysPrefix(ctx context.Context, pageToken, prefix, delimiter string, count int) ([]string, string, error) {
	if count <= 0 {
		return nil, "", nil
	}
	it := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, &gcsStorage.Query{
		Prefix:      prefix,
		Delimiter:   delimiter,
		StartOffset: pageToken,
	})
	keys := make([]string, 0, count)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return keys, "", nil
		}
		if err != nil {
			return nil, "", err
		}
		if len(keys) == count {
			return keys, attrs.Name, nil
		}
		keys = append(keys, attrs.Name)
	}
}

func (g *gcs) Clear(ctx context.Context) error {
	keys, err := g.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := g.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
