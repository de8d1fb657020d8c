package alert

import (
	"context"
	"time"

	id "lexgate/pkg/domain"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Type   Type
	Status Status
	Limit  int
}

// Store persists alerts.
type Store interface {
	// Insert persists a new alert, rejecting a duplicate
	// (firm_id, alert_id) with sentinel.ErrConflict.
	Insert(ctx context.Context, a Alert) error

	// Get returns one alert, or sentinel.ErrNotFound.
	Get(ctx context.Context, firmID id.FirmID, alertID id.AlertID) (Alert, error)

	// List returns a firm's alerts newest first, applying the filter.
	List(ctx context.Context, firmID id.FirmID, f Filter) ([]Alert, error)

	// UpdateStatus moves an alert's status. The store only records the
	// change; transition legality is checked by the service.
	UpdateStatus(ctx context.Context, firmID id.FirmID, alertID id.AlertID, status Status, at time.Time) error
}

// FailureWindow counts recent authentication failures per user inside a
// sliding window. RecordFailure returns the number of failures currently in
// the window, including the one just recorded.
type FailureWindow interface {
	RecordFailure(ctx context.Context, firmID id.FirmID, userID id.UserID, at time.Time) (int, error)
}
