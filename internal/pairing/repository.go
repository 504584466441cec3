package pairing

import (
	"context"
	"errors"
)

// ErrNotFound is returned when deleting a key that is not in the store.
var ErrNotFound = errors.New("not found")

// Repository persists the two paired collections. Upserts are idempotent by
// key (last write wins); deletes are pure removals with no effect on the
// other collection.
type Repository interface {
	UpsertServer(ctx context.Context, s *PairedServer) error
	Servers(ctx context.Context) (map[string]*PairedServer, error)
	DeleteServer(ctx context.Context, id string) error

	UpsertEntity(ctx context.Context, e *PairedEntity) error
	Entities(ctx context.Context) (map[string]*PairedEntity, error)
	DeleteEntity(ctx context.Context, id string) error
}
