// Package alert raises security alerts from the audit stream. The engine
// observes entries after they are durably appended; alerting is best effort
// and never fails or delays the audit write that triggered it.
package alert

import (
	"time"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

// Type enumerates the alert categories the engine can raise.
type Type string

const (
	TypeAnomalousAccess      Type = "anomalous_access"
	TypeFailedAuthentication Type = "failed_authentication"
	TypeMassExport           Type = "mass_export"
	TypeIntegrityViolation   Type = "integrity_violation"
)

// Severity orders alerts for triage.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status tracks an alert through investigation.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// statusTransitions is the closed set of allowed moves. Resolved and
// false_positive are terminal.
var statusTransitions = map[Status][]Status{
	StatusOpen:          {StatusInvestigating, StatusResolved, StatusFalsePositive},
	StatusInvestigating: {StatusResolved, StatusFalsePositive},
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a status string from an external caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusFalsePositive:
		return Status(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown alert status %q", s)
}

// ParseType validates an alert type string from an external caller. The
// empty string is allowed so list filters can omit it.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeAnomalousAccess, TypeFailedAuthentication, TypeMassExport, TypeIntegrityViolation:
		return Type(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown alert type %q", s)
}

// Alert is one raised security alert. AffectedResources names the
// resources the triggering activity touched; RelatedAuditIDs links back to
// the chain entries that tripped the threshold.
type Alert struct {
	AlertID           id.AlertID   `json:"alert_id"`
	FirmID            id.FirmID    `json:"firm_id"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	Type              Type         `json:"type"`
	Severity          Severity     `json:"severity"`
	Status            Status       `json:"status"`
	AffectedResources []string     `json:"affected_resources"`
	RelatedAuditIDs   []id.AuditID `json:"related_audit_ids"`
	UserID            id.UserID    `json:"user_id,omitzero"`
	Description       string       `json:"description"`
}
