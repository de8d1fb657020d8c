package index

import (
	"context"

	id "lexgate/pkg/domain"
)

// Store holds projections. Upsert must be idempotent and last-write-wins:
// applying the same projection twice, or an older one after a newer one for
// a Version it has already seen, must not corrupt the stored state.
type Store interface {
	// Upsert writes the projection, keeping the newer Version when the
	// stored one is already ahead.
	Upsert(ctx context.Context, p Projection) error

	// Get returns one projection, or sentinel.ErrNotFound.
	Get(ctx context.Context, firmID id.FirmID, convID id.ConversationID) (Projection, error)

	// Recent returns a firm's projections ordered by last activity,
	// most recent first.
	Recent(ctx context.Context, firmID id.FirmID, limit int) ([]Projection, error)

	// Remove drops the projection. Removing an absent projection is not
	// an error.
	Remove(ctx context.Context, firmID id.FirmID, convID id.ConversationID) error
}
