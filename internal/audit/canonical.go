package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

const hashPrefix = "sha256:"

// canonicalForm builds the deterministic representation of an entry that the
// audit hash is computed over. Rules:
//
//   - keys are emitted in lexicographic order (Go's map marshaling sorts keys)
//   - timestamps are RFC 3339 with nanoseconds, normalized to UTC
//   - nil identifiers and empty optional fields are omitted entirely
//   - audit_hash is excluded; previous_hash is included so each hash
//     covers the link to its predecessor
func canonicalForm(e Entry) (map[string]any, error) {
	md, err := EncodeMetadata(e.Metadata)
	if err != nil {
		return nil, err
	}

	m := map[string]any{
		"audit_id":      e.AuditID.String(),
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"firm_id":       e.FirmID.String(),
		"action":        string(e.Action),
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"classification": map[string]any{
			"contains_pii":          e.Class.ContainsPII,
			"contains_phi":          e.Class.ContainsPHI,
			"contains_medical_info": e.Class.ContainsMedicalInfo,
			"level":                 string(e.Class.Level),
		},
		"access_method": e.AccessMethod,
		"success":       e.Success,
		"risk_score":    e.RiskScore,
	}
	if !e.UserID.IsNil() {
		m["user_id"] = e.UserID.String()
	}
	if !e.SessionID.IsNil() {
		m["session_id"] = e.SessionID.String()
	}
	if e.PreviousHash != "" {
		m["previous_hash"] = e.PreviousHash
	}
	if md != nil {
		m["metadata"] = json.RawMessage(md)
	}
	return m, nil
}

// ComputeHash returns the audit hash for an entry, ignoring any value
// already present in its AuditHash field.
func ComputeHash(e Entry) (string, error) {
	m, err := canonicalForm(e)
	if err != nil {
		return "", fmt.Errorf("canonicalize audit entry: %w", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal canonical form: %w", err)
	}
	sum := sha256.Sum256(data)
	return hashPrefix + hex.EncodeToString(sum[:]), nil
}
