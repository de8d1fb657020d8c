// Package audit maintains the per-firm tamper-evident log. Every sensitive
// operation appends exactly one entry; each entry's hash covers the previous
// entry's hash, so a firm's log forms one hash chain and retroactive edits
// are detectable. Entries are append-only and never edited or deleted.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"lexgate/internal/classify"
	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

// Action enumerates the auditable operations.
type Action string

const (
	ActionConversationCreated  Action = "conversation_created"
	ActionMessageAdded         Action = "message_added"
	ActionConversationAssigned Action = "conversation_assigned"
	ActionIdentityRecorded     Action = "identity_recorded"
	ActionStatusChanged        Action = "status_changed"
	ActionConversationDeleted  Action = "conversation_deleted"
	ActionDataExported         Action = "data_exported"
	ActionDataDecrypted        Action = "data_decrypted"
	ActionUserAuthenticated    Action = "user_authenticated"
	ActionAccessDenied         Action = "access_denied"
	ActionConfigurationChanged Action = "configuration_changed"
	ActionKeyRotated           Action = "key_rotated"
	ActionIntegrityViolation   Action = "integrity_violation"
)

// ParseAction validates an action string from an external caller. The
// empty string is allowed so list filters can omit it.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case "", ActionConversationCreated, ActionMessageAdded, ActionConversationAssigned,
		ActionIdentityRecorded, ActionStatusChanged, ActionConversationDeleted, ActionDataExported,
		ActionDataDecrypted, ActionUserAuthenticated, ActionAccessDenied,
		ActionConfigurationChanged, ActionKeyRotated, ActionIntegrityViolation:
		return Action(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown action %q", s)
}

// highImpactActions carry a flat risk premium regardless of payload
// sensitivity.
var highImpactActions = map[Action]bool{
	ActionDataExported:         true,
	ActionConversationDeleted:  true,
	ActionConfigurationChanged: true,
}

// Entry is one immutable audit chain record.
//
// Invariants:
//   - AuditHash = SHA-256 over the canonical form of the entry with
//     AuditHash itself excluded (PreviousHash is covered by the hash)
//   - PreviousHash equals the AuditHash of the immediately preceding entry
//     for the same firm; the firm's first entry has PreviousHash == ""
type Entry struct {
	AuditID      id.AuditID              `json:"audit_id"`
	Timestamp    time.Time               `json:"timestamp"`
	FirmID       id.FirmID               `json:"firm_id"`
	UserID       id.UserID               `json:"user_id,omitzero"`
	SessionID    id.SessionID            `json:"session_id,omitzero"`
	Action       Action                  `json:"action"`
	ResourceType string                  `json:"resource_type"`
	ResourceID   string                  `json:"resource_id"`
	Class        classify.Classification `json:"classification"`
	AccessMethod string                  `json:"access_method"`
	Success      bool                    `json:"success"`
	RiskScore    int                     `json:"risk_score"`
	Metadata     Metadata                `json:"-"`
	AuditHash    string                  `json:"audit_hash"`
	PreviousHash string                  `json:"previous_hash,omitempty"`
}

// Metadata is the closed set of per-action payloads. Modeling it as a tagged
// union keeps the alert engine's threshold checks exhaustive instead of
// probing optional untyped fields.
type Metadata interface {
	metadataKind() string
}

// ExportMetadata accompanies data_exported entries.
type ExportMetadata struct {
	ResourceCount int    `json:"resource_count"`
	Format        string `json:"format"`
}

// EncryptionMetadata accompanies entries for operations that touched an
// encrypted field.
type EncryptionMetadata struct {
	KeyID    id.KeyID `json:"key_id"`
	DataType string   `json:"data_type"`
}

// AuthMetadata accompanies user_authenticated and access_denied entries.
type AuthMetadata struct {
	Method string `json:"method"`
	Reason string `json:"reason,omitempty"`
}

// IntegrityMetadata accompanies integrity_violation entries.
type IntegrityMetadata struct {
	Detail          string     `json:"detail"`
	AffectedAuditID id.AuditID `json:"affected_audit_id,omitzero"`
}

func (ExportMetadata) metadataKind() string     { return "export" }
func (EncryptionMetadata) metadataKind() string { return "encryption" }
func (AuthMetadata) metadataKind() string       { return "auth" }
func (IntegrityMetadata) metadataKind() string  { return "integrity" }

// metadataEnvelope is the stored JSON form of a Metadata value.
type metadataEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeMetadata serializes a Metadata value for storage and hashing.
// A nil Metadata encodes as nil.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata payload: %w", err)
	}
	return json.Marshal(metadataEnvelope{Kind: m.metadataKind(), Payload: payload})
}

// DecodeMetadata parses a stored metadata envelope back into its concrete
// type. Unknown kinds are an error, not a silent skip: the union is closed.
func DecodeMetadata(data []byte) (Metadata, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal metadata envelope: %w", err)
	}

	switch env.Kind {
	case "export":
		var m ExportMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal export metadata: %w", err)
		}
		return m, nil
	case "encryption":
		var m EncryptionMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal encryption metadata: %w", err)
		}
		return m, nil
	case "auth":
		var m AuthMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal auth metadata: %w", err)
		}
		return m, nil
	case "integrity":
		var m IntegrityMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal integrity metadata: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", env.Kind)
	}
}

// Tail is the threaded chain-tail state for one firm. Call sites pass the
// current tail into Append and receive the new one back; there is no hidden
// process-wide tail pointer.
type Tail struct {
	AuditID id.AuditID
	Hash    string
}

// IsZero reports whether the tail represents an empty chain.
func (t Tail) IsZero() bool {
	return t.AuditID.IsNil() && t.Hash == ""
}
