// Package index maintains the derived conversation lookup projection.
//
// The projection is a cache over the authoritative conversation records:
// reads that miss or lag here are answered by the record store, never the
// other way around. Updates are last-write-wins and idempotent, so replays
// and retries are harmless.
package index

import (
	"time"

	"lexgate/internal/classify"
	"lexgate/internal/conversation"
	id "lexgate/pkg/domain"
)

// Projection is the denormalized, plaintext-free summary of one
// conversation. No message content, encrypted or otherwise, is projected.
type Projection struct {
	FirmID         id.FirmID           `json:"firm_id"`
	ConversationID id.ConversationID   `json:"conversation_id"`
	Status         conversation.Status `json:"status"`
	Phase          conversation.Phase  `json:"phase"`
	AssignedTo     id.UserID           `json:"assigned_to,omitzero"`
	MessageCount   int                 `json:"message_count"`
	HighestLevel   classify.Level      `json:"highest_level"`
	LastActivity   time.Time           `json:"last_activity"`
	Version        int64               `json:"version"`
}

// FromRecord derives the projection for a conversation record.
func FromRecord(rec conversation.Record) Projection {
	highest := classify.LevelPublic
	for _, msg := range rec.Messages {
		if levelRank(msg.Class.Level) > levelRank(highest) {
			highest = msg.Class.Level
		}
	}
	return Projection{
		FirmID:         rec.FirmID,
		ConversationID: rec.ConversationID,
		Status:         rec.Status,
		Phase:          rec.Phase,
		AssignedTo:     rec.AssignedTo,
		MessageCount:   len(rec.Messages),
		HighestLevel:   highest,
		LastActivity:   rec.UpdatedAt,
		Version:        rec.Version,
	}
}

func levelRank(l classify.Level) int {
	switch l {
	case classify.LevelRestricted:
		return 3
	case classify.LevelConfidential:
		return 2
	case classify.LevelInternal:
		return 1
	default:
		return 0
	}
}
