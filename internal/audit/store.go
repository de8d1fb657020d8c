package audit

import (
	"context"
	"time"

	id "lexgate/pkg/domain"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Action Action
	UserID id.UserID
	From   time.Time
	To     time.Time
	Limit  int
}

// Store persists audit entries. Implementations must be append-only: no
// update or delete operations exist, and Append must reject a duplicate
// (firm_id, audit_id) pair with sentinel.ErrConflict.
type Store interface {
	// Append persists a fully hashed entry.
	Append(ctx context.Context, e Entry) error

	// Get returns one entry, or sentinel.ErrNotFound.
	Get(ctx context.Context, firmID id.FirmID, auditID id.AuditID) (Entry, error)

	// Tail returns the most recently appended entry for a firm, or
	// sentinel.ErrNotFound when the firm has no entries yet.
	Tail(ctx context.Context, firmID id.FirmID) (Entry, error)

	// Successor returns the entry appended immediately after the given
	// one, or sentinel.ErrNotFound when it is the chain tail.
	Successor(ctx context.Context, firmID id.FirmID, auditID id.AuditID) (Entry, error)

	// List returns entries for a firm in reverse append order, newest
	// first, applying the filter.
	List(ctx context.Context, firmID id.FirmID, f Filter) ([]Entry, error)

	// Chain returns the firm's complete chain in append order, oldest
	// first. Used by integrity verification.
	Chain(ctx context.Context, firmID id.FirmID) ([]Entry, error)
}
