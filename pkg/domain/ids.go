// Package domain holds typed identifiers shared across modules.
//
// Every ID is a distinct type over uuid.UUID so the compiler rejects
// cross-entity assignment (a FirmID can never be passed where a
// ConversationID is expected). Parse helpers enforce the invariant that
// IDs are valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "lexgate/pkg/domain-errors"
)

type (
	// FirmID identifies a tenant law firm. All isolation guarantees
	// (audit chains, encryption keys, alerts) are scoped by FirmID.
	FirmID uuid.UUID

	// ConversationID identifies one intake conversation and therefore
	// one actor instance.
	ConversationID uuid.UUID

	// UserID identifies an end user or staff member.
	UserID uuid.UUID

	// SessionID identifies an authenticated session.
	SessionID uuid.UUID

	// AuditID identifies one audit chain entry. Audit IDs are UUIDv7 so
	// they sort by creation time within a firm's chain.
	AuditID uuid.UUID

	// AlertID identifies a security alert.
	AlertID uuid.UUID

	// KeyID identifies an encryption key within a firm's keyring.
	KeyID uuid.UUID

	// MessageID identifies one message within a conversation.
	MessageID uuid.UUID
)

// NewFirmID returns a fresh random FirmID.
func NewFirmID() FirmID { return FirmID(uuid.New()) }

// NewConversationID returns a fresh random ConversationID.
func NewConversationID() ConversationID { return ConversationID(uuid.New()) }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewAuditID returns a time-sortable (UUIDv7) AuditID. Falls back to a
// random UUID only if the system clock is unusable.
func NewAuditID() AuditID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return AuditID(id)
}

// NewAlertID returns a fresh random AlertID.
func NewAlertID() AlertID { return AlertID(uuid.New()) }

// NewKeyID returns a fresh random KeyID.
func NewKeyID() KeyID { return KeyID(uuid.New()) }

// NewMessageID returns a time-sortable (UUIDv7) MessageID so messages sort
// by arrival within a conversation.
func NewMessageID() MessageID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return MessageID(id)
}

func (id FirmID) String() string         { return uuid.UUID(id).String() }
func (id ConversationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }
func (id AuditID) String() string        { return uuid.UUID(id).String() }
func (id AlertID) String() string        { return uuid.UUID(id).String() }
func (id KeyID) String() string          { return uuid.UUID(id).String() }
func (id MessageID) String() string      { return uuid.UUID(id).String() }

func (id FirmID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ConversationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AuditID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id KeyID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings so JSON payloads
// carry "8f14..." rather than a byte array.

func (id FirmID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id ConversationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id AuditID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id AlertID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id KeyID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id MessageID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *FirmID) UnmarshalText(b []byte) error {
	parsed, err := ParseFirmID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConversationID) UnmarshalText(b []byte) error {
	parsed, err := ParseConversationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AuditID) UnmarshalText(b []byte) error {
	parsed, err := ParseAuditID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AlertID) UnmarshalText(b []byte) error {
	parsed, err := ParseAlertID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *KeyID) UnmarshalText(b []byte) error {
	parsed, err := ParseKeyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MessageID) UnmarshalText(b []byte) error {
	parsed, err := ParseMessageID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// parseUUID enforces the shared invariant for all ID parsers.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return parsed, nil
}

// ParseFirmID parses and validates a firm ID from its string form.
func ParseFirmID(s string) (FirmID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return FirmID{}, err
	}
	return FirmID(parsed), nil
}

// ParseConversationID parses and validates a conversation ID from its string form.
func ParseConversationID(s string) (ConversationID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return ConversationID{}, err
	}
	return ConversationID(parsed), nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseSessionID parses and validates a session ID from its string form.
func ParseSessionID(s string) (SessionID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(parsed), nil
}

// ParseAuditID parses and validates an audit ID from its string form.
func ParseAuditID(s string) (AuditID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return AuditID{}, err
	}
	return AuditID(parsed), nil
}

// ParseAlertID parses and validates an alert ID from its string form.
func ParseAlertID(s string) (AlertID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return AlertID{}, err
	}
	return AlertID(parsed), nil
}

// ParseKeyID parses and validates a key ID from its string form.
func ParseKeyID(s string) (KeyID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return KeyID{}, err
	}
	return KeyID(parsed), nil
}

// ParseMessageID parses and validates a message ID from its string form.
func ParseMessageID(s string) (MessageID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return MessageID{}, err
	}
	return MessageID(parsed), nil
}
