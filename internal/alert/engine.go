package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lexgate/internal/audit"
	id "lexgate/pkg/domain"
	"lexgate/pkg/requestcontext"
)

// EngineConfig holds the detection thresholds.
type EngineConfig struct {
	// AnomalousRiskScore is the risk score at or above which a single
	// entry raises an anomalous_access alert.
	AnomalousRiskScore int

	// FailedAuthThreshold failures within FailedAuthWindow raise a
	// failed_authentication alert for the user.
	FailedAuthThreshold int
	FailedAuthWindow    time.Duration

	// MassExportThreshold is the resource count above which an export
	// raises a mass_export alert.
	MassExportThreshold int
}

// DefaultEngineConfig returns the production thresholds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AnomalousRiskScore:  80,
		FailedAuthThreshold: 5,
		FailedAuthWindow:    15 * time.Minute,
		MassExportThreshold: 50,
	}
}

// Engine evaluates each appended audit entry against the detection rules
// and persists any resulting alerts. It implements audit.Observer.
//
// Durability contract: the audit entry is already committed when the engine
// sees it. A failed alert write is logged and counted, never propagated;
// the one retry below is the entire recovery story, because the stream can
// be re-derived from the audit chain if needed.
type Engine struct {
	cfg    EngineConfig
	store  Store
	window FailureWindow
	log    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger overrides the default logger.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an alert engine.
func NewEngine(cfg EngineConfig, store Store, window FailureWindow, opts ...EngineOption) *Engine {
	e := &Engine{cfg: cfg, store: store, window: window, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EntryAppended evaluates one durably appended entry. The incoming context
// may belong to a request that is about to end, so persistence runs on a
// cancellation-free copy.
func (eg *Engine) EntryAppended(ctx context.Context, e audit.Entry) {
	ctx = context.WithoutCancel(ctx)

	for _, a := range eg.evaluate(ctx, e) {
		eg.persist(ctx, a)
	}
}

func (eg *Engine) evaluate(ctx context.Context, e audit.Entry) []Alert {
	var out []Alert

	if e.Action == audit.ActionIntegrityViolation {
		// Tamper evidence is never suppressed or deduplicated.
		out = append(out, eg.newAlert(e, TypeIntegrityViolation, SeverityCritical,
			fmt.Sprintf("audit chain integrity violation on %s %s", e.ResourceType, e.ResourceID)))
	} else if e.RiskScore >= eg.cfg.AnomalousRiskScore {
		out = append(out, eg.newAlert(e, TypeAnomalousAccess, SeverityHigh,
			fmt.Sprintf("high risk %s (score %d) on %s %s", e.Action, e.RiskScore, e.ResourceType, e.ResourceID)))
	}

	if e.Action == audit.ActionUserAuthenticated && !e.Success && !e.UserID.IsNil() {
		if a, ok := eg.checkFailedAuth(ctx, e); ok {
			out = append(out, a)
		}
	}

	if e.Action == audit.ActionDataExported {
		if md, ok := e.Metadata.(audit.ExportMetadata); ok && md.ResourceCount > eg.cfg.MassExportThreshold {
			out = append(out, eg.newAlert(e, TypeMassExport, SeverityHigh,
				fmt.Sprintf("export of %d resources exceeds threshold of %d", md.ResourceCount, eg.cfg.MassExportThreshold)))
		}
	}

	return out
}

// checkFailedAuth records the failure and fires exactly when the count
// reaches the threshold. Counts past the threshold within the same window
// stay silent, so one burst produces one alert.
func (eg *Engine) checkFailedAuth(ctx context.Context, e audit.Entry) (Alert, bool) {
	count, err := eg.window.RecordFailure(ctx, e.FirmID, e.UserID, e.Timestamp)
	if err != nil {
		windowErrors.Inc()
		eg.log.ErrorContext(ctx, "record authentication failure",
			slog.String("firm_id", e.FirmID.String()),
			slog.String("user_id", e.UserID.String()),
			slog.Any("error", err))
		return Alert{}, false
	}
	if count != eg.cfg.FailedAuthThreshold {
		return Alert{}, false
	}
	return eg.newAlert(e, TypeFailedAuthentication, SeverityMedium,
		fmt.Sprintf("%d failed authentication attempts within %s", count, eg.cfg.FailedAuthWindow)), true
}

func (eg *Engine) newAlert(e audit.Entry, typ Type, sev Severity, desc string) Alert {
	now := e.Timestamp
	return Alert{
		AlertID:           id.NewAlertID(),
		FirmID:            e.FirmID,
		CreatedAt:         now,
		UpdatedAt:         now,
		Type:              typ,
		Severity:          sev,
		Status:            StatusOpen,
		AffectedResources: []string{e.ResourceType + "/" + e.ResourceID},
		RelatedAuditIDs:   []id.AuditID{e.AuditID},
		UserID:            e.UserID,
		Description:       desc,
	}
}

func (eg *Engine) persist(ctx context.Context, a Alert) {
	err := eg.store.Insert(ctx, a)
	if err != nil {
		err = eg.store.Insert(ctx, a)
	}
	if err != nil {
		persistFailures.Inc()
		relatedID := ""
		if len(a.RelatedAuditIDs) > 0 {
			relatedID = a.RelatedAuditIDs[0].String()
		}
		eg.log.ErrorContext(ctx, "persist security alert",
			slog.String("firm_id", a.FirmID.String()),
			slog.String("alert_type", string(a.Type)),
			slog.String("related_audit_id", relatedID),
			slog.Any("error", err))
		return
	}

	alertsRaised.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	eg.log.WarnContext(ctx, "security alert raised",
		slog.String("firm_id", a.FirmID.String()),
		slog.String("alert_id", a.AlertID.String()),
		slog.String("alert_type", string(a.Type)),
		slog.String("severity", string(a.Severity)),
		slog.String("request_id", requestcontext.RequestID(ctx)))
}
