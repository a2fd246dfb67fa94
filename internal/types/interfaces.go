package types

import (
	"context"
	"time"
)

// Classifier defines the interface for the text-classification collaborator.
// The pipeline consults it only for table disambiguation; the returned free
// text is scanned for a table id, never parsed as structured output.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// Cache defines the get/put contract of the external key-value store.
// Implementations must tolerate concurrent callers; errors are advisory and
// never block the fetch path.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte, ttl time.Duration) error
}

// CatalogStore defines the read capabilities the pipeline needs from the
// table catalog.
type CatalogStore interface {
	All() ([]Table, error)
	Search(substring string) ([]Table, error)
}
