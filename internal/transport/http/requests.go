package httptransport

import (
	"strings"

	"lexgate/internal/alert"
	"lexgate/internal/conversation"
	"lexgate/internal/fieldcrypt"
	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

// maxMessageChars bounds a single intake message. Matches the length the
// conversation UI enforces client side.
const maxMessageChars = 32_000

// PostMessageRequest is the body for POST /v1/conversations/{id}/messages.
type PostMessageRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`

	parsedSender conversation.Sender
}

func (r *PostMessageRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "text is required")
	}
	if len(r.Text) > maxMessageChars {
		return dErrors.Newf(dErrors.CodeInvalidInput, "text must be at most %d characters", maxMessageChars)
	}
	sender, err := conversation.ParseSender(r.Sender)
	if err != nil {
		return err
	}
	r.parsedSender = sender
	return nil
}

// ParsedSender returns the validated sender.
func (r *PostMessageRequest) ParsedSender() conversation.Sender { return r.parsedSender }

// maxIdentityChars bounds the asserted identity field.
const maxIdentityChars = 500

// IdentityRequest is the body for POST /v1/conversations/{id}/identity.
type IdentityRequest struct {
	Identity string `json:"identity"`
}

func (r *IdentityRequest) Validate() error {
	r.Identity = strings.TrimSpace(r.Identity)
	if r.Identity == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if len(r.Identity) > maxIdentityChars {
		return dErrors.Newf(dErrors.CodeInvalidInput, "identity must be at most %d characters", maxIdentityChars)
	}
	return nil
}

// AssignRequest is the body for POST /v1/conversations/{id}/assignment.
type AssignRequest struct {
	UserID string `json:"user_id"`

	parsedUserID id.UserID
}

func (r *AssignRequest) Validate() error {
	userID, err := id.ParseUserID(r.UserID)
	if err != nil {
		return err
	}
	r.parsedUserID = userID
	return nil
}

// ParsedUserID returns the validated assignee.
func (r *AssignRequest) ParsedUserID() id.UserID { return r.parsedUserID }

// StatusRequest is the body for POST /v1/conversations/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`

	parsedStatus conversation.Status
}

func (r *StatusRequest) Validate() error {
	status, err := conversation.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// ParsedStatus returns the validated target status.
func (r *StatusRequest) ParsedStatus() conversation.Status { return r.parsedStatus }

// PhaseRequest is the body for POST /v1/conversations/{id}/phase.
type PhaseRequest struct {
	Phase string `json:"phase"`

	parsedPhase conversation.Phase
}

func (r *PhaseRequest) Validate() error {
	phase, err := conversation.ParsePhase(r.Phase)
	if err != nil {
		return err
	}
	r.parsedPhase = phase
	return nil
}

// ParsedPhase returns the validated target phase.
func (r *PhaseRequest) ParsedPhase() conversation.Phase { return r.parsedPhase }

// ExportRequest is the body for POST /v1/conversations/{id}/export.
type ExportRequest struct {
	Format string `json:"format"`
}

func (r *ExportRequest) Validate() error {
	switch r.Format {
	case "", "json":
		r.Format = "json"
		return nil
	}
	return dErrors.Newf(dErrors.CodeInvalidInput, "unsupported export format %q", r.Format)
}

// AlertStatusRequest is the body for POST /v1/alerts/{id}/status.
type AlertStatusRequest struct {
	Status string `json:"status"`

	parsedStatus alert.Status
}

func (r *AlertStatusRequest) Validate() error {
	status, err := alert.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// ParsedStatus returns the validated target status.
func (r *AlertStatusRequest) ParsedStatus() alert.Status { return r.parsedStatus }

// RotateKeyRequest is the body for POST /v1/keys/rotate.
type RotateKeyRequest struct {
	Purpose string `json:"purpose"`

	parsedPurpose fieldcrypt.Purpose
}

func (r *RotateKeyRequest) Validate() error {
	purpose, err := fieldcrypt.ParsePurpose(r.Purpose)
	if err != nil {
		return err
	}
	r.parsedPurpose = purpose
	return nil
}

// ParsedPurpose returns the validated key purpose.
func (r *RotateKeyRequest) ParsedPurpose() fieldcrypt.Purpose { return r.parsedPurpose }
