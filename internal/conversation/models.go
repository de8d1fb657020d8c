// Package conversation holds the intake conversation records and the
// single-writer runtime that serializes all mutations per conversation.
package conversation

import (
	"time"

	"lexgate/internal/classify"
	"lexgate/internal/fieldcrypt"
	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

// Status is the conversation lifecycle state.
type Status string

const (
	StatusCreated    Status = "created"
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusTerminated Status = "terminated"
)

// statusTransitions is the closed set of allowed moves. Completed and
// terminated are terminal.
var statusTransitions = map[Status][]Status{
	StatusCreated: {StatusActive, StatusTerminated},
	StatusActive:  {StatusCompleted, StatusTerminated},
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

// Terminal reports whether no further mutation is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusTerminated
}

// Phase tracks where the intake dialogue stands. Phases only move forward.
type Phase string

const (
	PhaseGreeting             Phase = "greeting"
	PhaseInformationGathering Phase = "information_gathering"
	PhaseQualification        Phase = "qualification"
	PhaseScheduling           Phase = "scheduling"
	PhaseCompletion           Phase = "completion"
)

var phaseOrder = map[Phase]int{
	PhaseGreeting:             0,
	PhaseInformationGathering: 1,
	PhaseQualification:        2,
	PhaseScheduling:           3,
	PhaseCompletion:           4,
}

// CanAdvanceTo reports whether p may move to next without going backwards.
func (p Phase) CanAdvanceTo(next Phase) bool {
	cur, ok := phaseOrder[p]
	if !ok {
		return false
	}
	n, ok := phaseOrder[next]
	if !ok {
		return false
	}
	return n >= cur
}

// ParseStatus validates a status string from an external caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCreated, StatusActive, StatusCompleted, StatusTerminated:
		return Status(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", s)
}

// ParsePhase validates a phase string from an external caller.
func ParsePhase(s string) (Phase, error) {
	if _, ok := phaseOrder[Phase(s)]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown phase %q", s)
	}
	return Phase(s), nil
}

// Sender identifies who authored a message.
type Sender string

const (
	SenderClient    Sender = "client"
	SenderAssistant Sender = "assistant"
	SenderStaff     Sender = "staff"
)

// ParseSender validates a sender string from an external caller.
func ParseSender(s string) (Sender, error) {
	switch Sender(s) {
	case SenderClient, SenderAssistant, SenderStaff:
		return Sender(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown sender %q", s)
}

// Message is one stored conversation turn. Content is always the encrypted
// form; plaintext never reaches the store.
type Message struct {
	MessageID id.MessageID              `json:"message_id"`
	Sender    Sender                    `json:"sender"`
	Content   fieldcrypt.EncryptedField `json:"content"`
	Class     classify.Classification   `json:"classification"`
	CreatedAt time.Time                 `json:"created_at"`
}

// ClientIdentity is the identity the client asserted during intake,
// sealed like message content. A name is personal data regardless of
// what the pattern engine finds in it, so Class is always at least
// confidential PII.
type ClientIdentity struct {
	Content    fieldcrypt.EncryptedField `json:"content"`
	Class      classify.Classification   `json:"classification"`
	RecordedAt time.Time                 `json:"recorded_at"`
}

// Record is the authoritative conversation state. The runtime guarantees a
// single writer per conversation, so Version moves strictly by one per
// mutation and the store can reject lost updates.
type Record struct {
	ConversationID id.ConversationID `json:"conversation_id"`
	FirmID         id.FirmID         `json:"firm_id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Status         Status            `json:"status"`
	Phase          Phase             `json:"phase"`
	AssignedTo     id.UserID         `json:"assigned_to,omitzero"`
	ClientIdentity *ClientIdentity   `json:"client_identity,omitempty"`
	Messages       []Message         `json:"messages"`
	Version        int64             `json:"version"`
}
