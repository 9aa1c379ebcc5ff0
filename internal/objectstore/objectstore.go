// Package objectstore defines the capability the signal registry needs from
// blob storage: check, fetch and delete an object by key.
//
// Implementations live in sub-packages:
//   - s3store    → Amazon S3 (or any S3-compatible endpoint such as MinIO)
//   - localstore → a directory on local disk, for development
//
// Each Store is bound to a single bucket when it is constructed.
package objectstore

import (
	"context"
	"errors"
)

// DefaultBucket is the bucket signal CSV files are stored in.
const DefaultBucket = "user-signal-data"

// ErrNotFound is wrapped by Get when the key does not exist in the bucket.
var ErrNotFound = errors.New("object not found")

// Store is a key-addressed blob store bound to one bucket.
type Store interface {
	// Head checks the object exists without reading it. An absent key yields
	// an error wrapping ErrNotFound.
	Head(ctx context.Context, key string) error
	// Get returns the full content of the object. It fails if the object is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
