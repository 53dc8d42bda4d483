package pipeline

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/pixelfan/pixelfan/internal/storage"
)

// ObjectStoreFetcher resolves batch references as object keys in the shared
// bucket.
type ObjectStoreFetcher struct {
	Storage *storage.Client
}

func (f ObjectStoreFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if f.Storage == nil {
		return nil, errors.New("storage client is required")
	}
	return f.Storage.ReadObject(ctx, ref)
}

// ObjectStoreEmitter writes outputs under OutputPrefix in the shared bucket.
type ObjectStoreEmitter struct {
	Storage      *storage.Client
	OutputPrefix string
}

func (e ObjectStoreEmitter) Emit(ctx context.Context, name string, data []byte) error {
	if e.Storage == nil {
		return errors.New("storage client is required")
	}

	prefix := strings.TrimSpace(e.OutputPrefix)
	if prefix == "" {
		prefix = "outputs"
	}
	return e.Storage.WriteObject(ctx, path.Join(prefix, name), data, "image/png")
}
