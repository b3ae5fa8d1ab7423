package document

import (
	"context"
	"fmt"

	"github.com/viant/afs"
)

// Loader reads document content from local paths or URLs.
type Loader struct {
	fs afs.Service
}

// NewLoader builds a loader over the default afs service.
func NewLoader() *Loader {
	return &Loader{fs: afs.New()}
}

// Load fetches the content at location.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, error) {
	content, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", location, err)
	}
	return content, nil
}

// Ensure opens uri in the store, loading its content first when the store
// does not already hold it.
func (l *Loader) Ensure(ctx context.Context, store *Store, uri string) error {
	if _, ok := store.Source(uri); ok {
		return nil
	}
	content, err := l.Load(ctx, uri)
	if err != nil {
		return err
	}
	return store.Open(uri, content)
}
