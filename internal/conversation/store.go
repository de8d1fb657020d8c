package conversation

import (
	"context"

	id "lexgate/pkg/domain"
)

// Store persists conversation records. The runtime is the only writer, so
// implementations see at most one concurrent mutation per conversation;
// Update still checks Version to surface any violation of that contract as
// sentinel.ErrConflict rather than a silent lost update.
type Store interface {
	// Insert persists a new record, rejecting a duplicate conversation
	// ID with sentinel.ErrConflict.
	Insert(ctx context.Context, rec Record) error

	// Get returns one record, or sentinel.ErrNotFound.
	Get(ctx context.Context, firmID id.FirmID, convID id.ConversationID) (Record, error)

	// Update replaces the record if the stored Version matches
	// rec.Version-1, returning sentinel.ErrConflict otherwise.
	Update(ctx context.Context, rec Record) error

	// Delete removes the record, or returns sentinel.ErrNotFound.
	Delete(ctx context.Context, firmID id.FirmID, convID id.ConversationID) error

	// ListByFirm returns a firm's conversations, newest first.
	ListByFirm(ctx context.Context, firmID id.FirmID, limit int) ([]Record, error)
}
