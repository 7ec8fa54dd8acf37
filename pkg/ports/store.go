package ports

import (
	"context"
	"time"

	"github.com/aretw0/transito/pkg/domain"
)

// Adapter is the storage contract a bound machine persists its actors through.
//
// Implementations must be safe for concurrent use and must return snapshots the caller
// may modify freely.
type Adapter interface {
	// Load returns the snapshot stored under id, or (nil, nil) when there is none.
	Load(ctx context.Context, id string) (*domain.Snapshot, error)

	// Create atomically stores a new snapshot with CreatedAt = UpdatedAt = now.
	// It returns an error matching domain.ErrDuplicateIdentity when id is taken.
	// The returned snapshot equals what Load returns next, values decoded the same way.
	Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error)

	// Save replaces the stored snapshot only if its UpdatedAt still equals prevUpdatedAt.
	// It returns domain.ErrConcurrencyConflict on mismatch and domain.ErrActorNotFound
	// when nothing is stored under snapshot.ID. On success it returns the stored snapshot
	// as Load would return it.
	Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error)
}

// Lister is implemented by adapters that can enumerate stored identities.
type Lister interface {
	// List returns every stored identity in lexical order.
	List(ctx context.Context) ([]string, error)
}

// Deleter is implemented by adapters that can remove a snapshot.
type Deleter interface {
	// Delete removes the snapshot stored under id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
}
