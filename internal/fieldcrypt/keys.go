package fieldcrypt

import (
	"time"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

// KeyStatus is the lifecycle state of one firm key.
type KeyStatus string

const (
	// KeyStatusActive marks the single key used for new writes under a
	// (firm, purpose) pair.
	KeyStatusActive KeyStatus = "active"

	// KeyStatusRotating marks a key mid-rotation: a successor exists but
	// the switch has not been committed yet.
	KeyStatusRotating KeyStatus = "rotating"

	// KeyStatusDeprecated marks a key kept only to decrypt data written
	// before rotation. Deprecated keys remain valid indefinitely; ciphertext
	// under them may still be reachable.
	KeyStatusDeprecated KeyStatus = "deprecated"

	// KeyStatusRevoked marks a key destroyed by explicit administrative
	// action. Decryption under a revoked key always fails.
	KeyStatusRevoked KeyStatus = "revoked"
)

// Purpose scopes keys within a firm so message content and identity fields
// never share key material.
type Purpose string

const (
	PurposeMessageContent Purpose = "message_content"
	PurposeUserIdentity   Purpose = "user_identity"
)

// ParsePurpose validates a purpose string from an external caller.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeMessageContent, PurposeUserIdentity:
		return Purpose(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown key purpose %q", s)
}

// DefaultRotationInterval is how long a key stays active before rotation
// is due.
const DefaultRotationInterval = 90 * 24 * time.Hour

// KeyMetadata describes one key in a firm's keyring. The raw key material
// never travels with it; stores persist the wrapped key separately.
type KeyMetadata struct {
	KeyID       id.KeyID  `json:"key_id"`
	FirmID      id.FirmID `json:"firm_id"`
	Purpose     Purpose   `json:"purpose"`
	Algorithm   string    `json:"algorithm"`
	Status      KeyStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	RotationDue time.Time `json:"rotation_due"`
}

// NeedsRotation reports whether the key is past its rotation deadline.
func (m KeyMetadata) NeedsRotation(now time.Time) bool {
	return !now.Before(m.RotationDue)
}

// CanDecrypt reports whether ciphertext under this key may still be opened.
// Active, Rotating, and Deprecated keys all decrypt; only Revoked is dead.
func (m KeyMetadata) CanDecrypt() bool {
	return m.Status != KeyStatusRevoked
}

// canTransitionTo enforces the lifecycle ordering. Revoked is terminal.
func (s KeyStatus) canTransitionTo(next KeyStatus) bool {
	switch s {
	case KeyStatusActive:
		return next == KeyStatusRotating || next == KeyStatusDeprecated || next == KeyStatusRevoked
	case KeyStatusRotating:
		return next == KeyStatusActive || next == KeyStatusDeprecated || next == KeyStatusRevoked
	case KeyStatusDeprecated:
		return next == KeyStatusRevoked
	case KeyStatusRevoked:
		return false
	}
	return false
}

// Transition applies a status change, rejecting anything outside the
// lifecycle ordering.
func (m *KeyMetadata) Transition(next KeyStatus) error {
	if !m.Status.canTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"key %s cannot transition %s -> %s", m.KeyID, m.Status, next)
	}
	m.Status = next
	return nil
}
