package alert

import (
	"context"
	"errors"
	"log/slog"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/sentinel"
	"lexgate/pkg/requestcontext"
)

// Service is the read and triage surface over raised alerts.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates an alert service.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// List returns a firm's alerts, newest first.
func (s *Service) List(ctx context.Context, firmID id.FirmID, f Filter) ([]Alert, error) {
	if firmID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "alert list requires a firm ID")
	}
	alerts, err := s.store.List(ctx, firmID, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list alerts")
	}
	return alerts, nil
}

// Get returns one alert.
func (s *Service) Get(ctx context.Context, firmID id.FirmID, alertID id.AlertID) (Alert, error) {
	a, err := s.store.Get(ctx, firmID, alertID)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return Alert{}, dErrors.New(dErrors.CodeNotFound, "alert not found")
	default:
		return Alert{}, dErrors.Wrap(err, dErrors.CodeInternal, "get alert")
	}
}

// Transition moves an alert through investigation. Illegal moves, such as
// reopening a resolved alert, are rejected with CodeConflict.
func (s *Service) Transition(ctx context.Context, firmID id.FirmID, alertID id.AlertID, next Status) (Alert, error) {
	a, err := s.Get(ctx, firmID, alertID)
	if err != nil {
		return Alert{}, err
	}
	if !a.Status.CanTransitionTo(next) {
		return Alert{}, dErrors.Newf(dErrors.CodeConflict,
			"alert cannot move from %s to %s", a.Status, next)
	}

	now := requestcontext.Now(ctx)
	if err := s.store.UpdateStatus(ctx, firmID, alertID, next, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Alert{}, dErrors.New(dErrors.CodeNotFound, "alert not found")
		}
		return Alert{}, dErrors.Wrap(err, dErrors.CodeInternal, "update alert status")
	}

	s.log.InfoContext(ctx, "alert status changed",
		slog.String("firm_id", firmID.String()),
		slog.String("alert_id", alertID.String()),
		slog.String("from", string(a.Status)),
		slog.String("to", string(next)))

	a.Status = next
	a.UpdatedAt = now
	return a, nil
}
