package conversation

import (
	"context"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/requestcontext"
)

// NewRecord builds the initial record for a conversation.
func NewRecord(ctx context.Context, firmID id.FirmID) Record {
	now := requestcontext.Now(ctx)
	return Record{
		ConversationID: id.NewConversationID(),
		FirmID:         firmID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         StatusCreated,
		Phase:          PhaseGreeting,
		Version:        1,
	}
}

// AppendMessage adds one encrypted message. The first message moves the
// conversation from created to active.
func AppendMessage(msg Message) Mutation {
	return func(ctx context.Context, rec *Record) error {
		if rec.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeConflict,
				"conversation is %s and no longer accepts messages", rec.Status)
		}
		if rec.Status == StatusCreated {
			rec.Status = StatusActive
		}
		rec.Messages = append(rec.Messages, msg)
		rec.UpdatedAt = requestcontext.Now(ctx)
		return nil
	}
}

// RecordIdentity attaches the client's sealed identity. Re-recording
// replaces the previous value; a terminal conversation is immutable.
func RecordIdentity(ident ClientIdentity) Mutation {
	return func(ctx context.Context, rec *Record) error {
		if rec.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeConflict,
				"conversation is %s and no longer accepts identity", rec.Status)
		}
		rec.ClientIdentity = &ident
		rec.UpdatedAt = requestcontext.Now(ctx)
		return nil
	}
}

// Assign hands the conversation to a staff member. Only active
// conversations can be assigned.
func Assign(userID id.UserID) Mutation {
	return func(ctx context.Context, rec *Record) error {
		if userID.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "assignment requires a user ID")
		}
		if rec.Status != StatusActive {
			return dErrors.Newf(dErrors.CodeConflict,
				"conversation is %s and cannot be assigned", rec.Status)
		}
		rec.AssignedTo = userID
		rec.UpdatedAt = requestcontext.Now(ctx)
		return nil
	}
}

// ChangeStatus moves the conversation lifecycle forward.
func ChangeStatus(next Status) Mutation {
	return func(ctx context.Context, rec *Record) error {
		if !rec.Status.CanTransitionTo(next) {
			return dErrors.Newf(dErrors.CodeConflict,
				"conversation cannot move from %s to %s", rec.Status, next)
		}
		rec.Status = next
		if next == StatusCompleted {
			rec.Phase = PhaseCompletion
		}
		rec.UpdatedAt = requestcontext.Now(ctx)
		return nil
	}
}

// AdvancePhase moves the intake dialogue to a later phase. Moving backwards
// is rejected.
func AdvancePhase(next Phase) Mutation {
	return func(ctx context.Context, rec *Record) error {
		if rec.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeConflict,
				"conversation is %s and its phase is fixed", rec.Status)
		}
		if !rec.Phase.CanAdvanceTo(next) {
			return dErrors.Newf(dErrors.CodeConflict,
				"phase cannot move from %s to %s", rec.Phase, next)
		}
		rec.Phase = next
		rec.UpdatedAt = requestcontext.Now(ctx)
		return nil
	}
}
