package httptransport

import (
	"encoding/json"
	"time"

	"lexgate/internal/audit"
	"lexgate/internal/classify"
	"lexgate/internal/conversation"
	"lexgate/internal/coordinator"
	id "lexgate/pkg/domain"
)

// ConversationResponse is the external view of a conversation. Message
// content never appears here; ciphertext stays in the store and plaintext
// only ever leaves through the audited export path.
type ConversationResponse struct {
	ConversationID id.ConversationID        `json:"conversation_id"`
	Status         conversation.Status      `json:"status"`
	Phase          conversation.Phase       `json:"phase"`
	AssignedTo     id.UserID                `json:"assigned_to,omitzero"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	IdentityClass  *classify.Classification `json:"identity_classification,omitempty"`
	Messages       []MessageSummary         `json:"messages"`
	Version        int64                    `json:"version"`
}

// MessageSummary describes a stored message without its content.
type MessageSummary struct {
	MessageID id.MessageID            `json:"message_id"`
	Sender    conversation.Sender     `json:"sender"`
	Class     classify.Classification `json:"classification"`
	CreatedAt time.Time               `json:"created_at"`
}

// FromRecord builds the external conversation view.
func FromRecord(rec conversation.Record) ConversationResponse {
	msgs := make([]MessageSummary, 0, len(rec.Messages))
	for _, m := range rec.Messages {
		msgs = append(msgs, MessageSummary{
			MessageID: m.MessageID,
			Sender:    m.Sender,
			Class:     m.Class,
			CreatedAt: m.CreatedAt,
		})
	}
	resp := ConversationResponse{
		ConversationID: rec.ConversationID,
		Status:         rec.Status,
		Phase:          rec.Phase,
		AssignedTo:     rec.AssignedTo,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		Messages:       msgs,
		Version:        rec.Version,
	}
	if rec.ClientIdentity != nil {
		class := rec.ClientIdentity.Class
		resp.IdentityClass = &class
	}
	return resp
}

// MessageResponse reports an accepted message write.
type MessageResponse struct {
	MessageID id.MessageID            `json:"message_id"`
	Class     classify.Classification `json:"classification"`
	Status    conversation.Status     `json:"status"`
	Phase     conversation.Phase      `json:"phase"`
	Version   int64                   `json:"version"`
}

// FromMessageResult builds the message write response.
func FromMessageResult(res coordinator.MessageResult) MessageResponse {
	return MessageResponse{
		MessageID: res.MessageID,
		Class:     res.Class,
		Status:    res.Record.Status,
		Phase:     res.Record.Phase,
		Version:   res.Record.Version,
	}
}

// AuditEntryResponse is one audit entry with its metadata envelope.
type AuditEntryResponse struct {
	audit.Entry
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// FromEntry builds the audit entry view, re-encoding the typed metadata.
func FromEntry(e audit.Entry) AuditEntryResponse {
	resp := AuditEntryResponse{Entry: e}
	if e.Metadata != nil {
		if raw, err := audit.EncodeMetadata(e.Metadata); err == nil {
			resp.Metadata = raw
		}
	}
	return resp
}

// VerifyResponse reports a chain verification run.
type VerifyResponse struct {
	Intact   bool              `json:"intact"`
	Findings []FindingResponse `json:"findings"`
}

// FindingResponse is one detected integrity violation.
type FindingResponse struct {
	Kind    audit.FindingKind `json:"kind"`
	AuditID id.AuditID        `json:"audit_id"`
	Detail  string            `json:"detail"`
}

// FromFindings builds the verification response.
func FromFindings(findings []audit.Finding) VerifyResponse {
	out := VerifyResponse{
		Intact:   len(findings) == 0,
		Findings: make([]FindingResponse, 0, len(findings)),
	}
	for _, f := range findings {
		out.Findings = append(out.Findings, FindingResponse{
			Kind:    f.Kind,
			AuditID: f.AuditID,
			Detail:  f.Detail,
		})
	}
	return out
}
