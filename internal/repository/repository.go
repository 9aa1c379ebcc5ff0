package repository

import (
	"context"

	"github.com/sakif/signal-registry/internal/model"
)

// SignalRepository is the backing store for signal records.
// Signals are addressed by the (userID, signalID) pair.
type SignalRepository interface {
	// ListSignalIDs returns every allocated signal ID. An empty userID means
	// all users; otherwise only that user's IDs are returned.
	ListSignalIDs(ctx context.Context, userID string) ([]int, error)
	Exists(ctx context.Context, userID string, signalID int) (bool, error)
	// Insert returns an apperror.ErrConflict error if the pair is taken.
	Insert(ctx context.Context, signal *model.Signal) error
	// Update sets the description and, when objectKey is non-nil, the object key.
	Update(ctx context.Context, userID string, signalID int, description string, objectKey *string) error
	Get(ctx context.Context, userID string, signalID int) (*model.Signal, error)
	GetObjectKey(ctx context.Context, userID string, signalID int) (string, error)
	Delete(ctx context.Context, userID string, signalID int) error
	// CountReferences returns how many signals point at objectKey.
	CountReferences(ctx context.Context, objectKey string) (int, error)
	Ping(ctx context.Context) error
}
