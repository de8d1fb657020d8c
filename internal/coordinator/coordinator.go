// Package coordinator sequences every sensitive write through the same
// pipeline: classify, encrypt, actor write, audit append, then a detached
// index projection. The ordering is the consistency contract of the
// platform; nothing else writes conversation state.
package coordinator

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lexgate/internal/audit"
	"lexgate/internal/classify"
	"lexgate/internal/conversation"
	"lexgate/internal/fieldcrypt"
	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/requestcontext"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks lexgate/internal/coordinator Classifier,Encryptor,Auditor,Projectionist

var tracer = otel.Tracer("lexgate/coordinator")

// Classifier labels message text. A non-nil error means the engine itself
// failed; the coordinator then assumes the most restrictive classification
// rather than refusing the write.
type Classifier interface {
	Classify(ctx context.Context, text string) (classify.Classification, error)
}

// Encryptor seals and opens message content with per-firm keys.
type Encryptor interface {
	EncryptField(ctx context.Context, firmID id.FirmID, purpose fieldcrypt.Purpose, plaintext []byte) (fieldcrypt.EncryptedField, error)
	DecryptField(ctx context.Context, firmID id.FirmID, field fieldcrypt.EncryptedField) ([]byte, error)
}

// Auditor appends to the durable per-firm audit chain.
type Auditor interface {
	Append(ctx context.Context, rec audit.Record) (audit.Entry, error)
}

// Projectionist receives detached index updates. Calls must not block.
type Projectionist interface {
	ProjectRecord(rec conversation.Record)
	ProjectRemoval(firmID id.FirmID, convID id.ConversationID)
}

// Coordinator is the single entry point for conversation mutations.
type Coordinator struct {
	classifier Classifier
	encryptor  Encryptor
	runtime    *conversation.Runtime
	auditor    Auditor
	projector  Projectionist
	log        *slog.Logger
}

// New creates a coordinator.
func New(
	classifier Classifier,
	encryptor Encryptor,
	runtime *conversation.Runtime,
	auditor Auditor,
	projector Projectionist,
	log *slog.Logger,
) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		classifier: classifier,
		encryptor:  encryptor,
		runtime:    runtime,
		auditor:    auditor,
		projector:  projector,
		log:        log,
	}
}

// MessageResult reports a completed message write.
type MessageResult struct {
	Record    conversation.Record
	MessageID id.MessageID
	Class     classify.Classification
}

// StartConversation creates an empty conversation and audits the creation.
func (c *Coordinator) StartConversation(ctx context.Context) (conversation.Record, error) {
	ctx, span := tracer.Start(ctx, "coordinator.StartConversation")
	defer span.End()

	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return conversation.Record{}, dErrors.New(dErrors.CodeUnauthorized, "no firm in request context")
	}

	rec, err := c.runtime.Create(ctx, conversation.NewRecord(ctx, firmID))
	if err != nil {
		return conversation.Record{}, err
	}
	span.SetAttributes(attribute.String("conversation_id", rec.ConversationID.String()))

	c.appendAudit(ctx, audit.Record{
		Action:       audit.ActionConversationCreated,
		ResourceType: "conversation",
		ResourceID:   rec.ConversationID.String(),
		Success:      true,
	})

	c.projector.ProjectRecord(rec)
	return rec, nil
}

// PostMessage runs the full pipeline for one inbound message.
//
// Classification failure is survivable: the text is treated as restricted
// PHI and the write proceeds. Encryption failure is fatal and happens
// before any state changes. After the actor write commits, the audit entry
// is appended even if the caller has given up on the request.
func (c *Coordinator) PostMessage(ctx context.Context, convID id.ConversationID, sender conversation.Sender, text string) (MessageResult, error) {
	ctx, span := tracer.Start(ctx, "coordinator.PostMessage",
		trace.WithAttributes(attribute.String("conversation_id", convID.String())))
	defer span.End()

	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return MessageResult{}, dErrors.New(dErrors.CodeUnauthorized, "no firm in request context")
	}
	if text == "" {
		return MessageResult{}, dErrors.New(dErrors.CodeInvalidInput, "message text cannot be empty")
	}

	class := c.classifyText(ctx, text)
	span.SetAttributes(attribute.String("classification", string(class.Level)))

	field, err := c.encryptor.EncryptField(ctx, firmID, fieldcrypt.PurposeMessageContent, []byte(text))
	if err != nil {
		return MessageResult{}, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "encrypt message content")
	}

	msg := conversation.Message{
		MessageID: id.NewMessageID(),
		Sender:    sender,
		Content:   field,
		Class:     class,
		CreatedAt: requestcontext.Now(ctx),
	}

	rec, err := c.runtime.Mutate(ctx, firmID, convID, conversation.AppendMessage(msg))
	if err != nil {
		c.auditFailure(ctx, audit.ActionMessageAdded, "conversation", convID.String(), class)
		return MessageResult{}, err
	}

	c.appendAudit(ctx, audit.Record{
		Action:       audit.ActionMessageAdded,
		ResourceType: "conversation",
		ResourceID:   convID.String(),
		Class:        class,
		Success:      true,
		Metadata:     audit.EncryptionMetadata{KeyID: field.KeyID, DataType: string(fieldcrypt.PurposeMessageContent)},
	})

	c.projector.ProjectRecord(rec)
	return MessageResult{Record: rec, MessageID: msg.MessageID, Class: class}, nil
}

// RecordClientIdentity seals the identity the client asserted and attaches
// it to the conversation. Asserted identity is personal data whatever the
// pattern engine says, so its classification is floored at confidential PII
// before the identity-scoped key seals it.
func (c *Coordinator) RecordClientIdentity(ctx context.Context, convID id.ConversationID, identity string) (conversation.Record, error) {
	ctx, span := tracer.Start(ctx, "coordinator.RecordClientIdentity",
		trace.WithAttributes(attribute.String("conversation_id", convID.String())))
	defer span.End()

	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return conversation.Record{}, dErrors.New(dErrors.CodeUnauthorized, "no firm in request context")
	}
	if identity == "" {
		return conversation.Record{}, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}

	class := identityClass(c.classifyText(ctx, identity))
	span.SetAttributes(attribute.String("classification", string(class.Level)))

	field, err := c.encryptor.EncryptField(ctx, firmID, fieldcrypt.PurposeUserIdentity, []byte(identity))
	if err != nil {
		return conversation.Record{}, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "encrypt client identity")
	}

	ident := conversation.ClientIdentity{
		Content:    field,
		Class:      class,
		RecordedAt: requestcontext.Now(ctx),
	}

	rec, err := c.runtime.Mutate(ctx, firmID, convID, conversation.RecordIdentity(ident))
	if err != nil {
		c.auditFailure(ctx, audit.ActionIdentityRecorded, "conversation", convID.String(), class)
		return conversation.Record{}, err
	}

	c.appendAudit(ctx, audit.Record{
		Action:       audit.ActionIdentityRecorded,
		ResourceType: "conversation",
		ResourceID:   convID.String(),
		Class:        class,
		Success:      true,
		Metadata:     audit.EncryptionMetadata{KeyID: field.KeyID, DataType: string(fieldcrypt.PurposeUserIdentity)},
	})

	c.projector.ProjectRecord(rec)
	return rec, nil
}

// AssignConversation hands the conversation to a staff member.
func (c *Coordinator) AssignConversation(ctx context.Context, convID id.ConversationID, staff id.UserID) (conversation.Record, error) {
	ctx, span := tracer.Start(ctx, "coordinator.AssignConversation")
	defer span.End()

	return c.mutateAndAudit(ctx, convID, conversation.Assign(staff), audit.Record{
		Action:       audit.ActionConversationAssigned,
		ResourceType: "conversation",
		ResourceID:   convID.String(),
		Success:      true,
	})
}

// ChangeStatus moves the conversation lifecycle forward.
func (c *Coordinator) ChangeStatus(ctx context.Context, convID id.ConversationID, next conversation.Status) (conversation.Record, error) {
	ctx, span := tracer.Start(ctx, "coordinator.ChangeStatus",
		trace.WithAttributes(attribute.String("next_status", string(next))))
	defer span.End()

	return c.mutateAndAudit(ctx, convID, conversation.ChangeStatus(next), audit.Record{
		Action:       audit.ActionStatusChanged,
		ResourceType: "conversation",
		ResourceID:   convID.String(),
		Success:      true,
	})
}

// AdvancePhase moves the intake dialogue to a later phase.
func (c *Coordinator) AdvancePhase(ctx context.Context, convID id.ConversationID, next conversation.Phase) (conversation.Record, error) {
	ctx, span := tracer.Start(ctx, "coordinator.AdvancePhase")
	defer span.End()

	return c.mutateAndAudit(ctx, convID, conversation.AdvancePhase(next), audit.Record{
		Action:       audit.ActionStatusChanged,
		ResourceType: "conversation",
		ResourceID:   convID.String(),
		Success:      true,
	})
}

// DeleteConversation removes the conversation, audits the deletion and
// detaches the projection removal.
func (c *Coordinator) DeleteConversation(ctx context.Context, convID id.ConversationID) error {
	ctx, span := tracer.Start(ctx, "coordinator.DeleteConversation")
	defer span.End()

	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "no firm in request context")
	}

	final, err := c.runtime.Delete(ctx, firmID, convID)
	if err != nil {
		return err
	}

	c.appendAudit(ctx, audit.Record{
		Action:       audit.ActionConversationDeleted,
		ResourceType: "conversation",
		ResourceID:   convID.String(),
		Class:        highestClass(final),
		Success:      true,
	})

	c.projector.ProjectRemoval(firmID, convID)
	return nil
}

// GetConversation returns the current record with content still sealed.
// Metadata reads are not audited; decryption and export are.
func (c *Coordinator) GetConversation(ctx context.Context, convID id.ConversationID) (conversation.Record, error) {
	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return conversation.Record{}, dErrors.New(dErrors.CodeUnauthorized, "no firm in request context")
	}
	return c.runtime.Get(ctx, firmID, convID)
}

// ExportedMessage is one decrypted turn in an export.
type ExportedMessage struct {
	MessageID id.MessageID            `json:"message_id"`
	Sender    conversation.Sender     `json:"sender"`
	Text      string                  `json:"text"`
	Class     classify.Classification `json:"classification"`
	CreatedAt string                  `json:"created_at"`
}

// Export is a decrypted conversation transcript.
type Export struct {
	ConversationID id.ConversationID `json:"conversation_id"`
	Format         string            `json:"format"`
	ClientIdentity string            `json:"client_identity,omitempty"`
	Messages       []ExportedMessage `json:"messages"`
}

// ExportConversation decrypts the full transcript and audits the export
// with its resource count, which is what the mass export alert keys on.
func (c *Coordinator) ExportConversation(ctx context.Context, convID id.ConversationID, format string) (Export, error) {
	ctx, span := tracer.Start(ctx, "coordinator.ExportConversation")
	defer span.End()

	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return Export{}, dErrors.New(dErrors.CodeUnauthorized, "no firm in request context")
	}

	rec, err := c.runtime.Get(ctx, firmID, convID)
	if err != nil {
		return Export{}, err
	}

	out := Export{ConversationID: convID, Format: format, Messages: make([]ExportedMessage, 0, len(rec.Messages))}
	if rec.ClientIdentity != nil {
		identity, err := c.encryptor.DecryptField(ctx, firmID, rec.ClientIdentity.Content)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeIntegrityViolation) {
				c.escalateIntegrity(ctx, "conversation", convID.String(),
					"auth tag verification failed for client identity")
			}
			c.auditFailure(ctx, audit.ActionDataExported, "conversation", convID.String(), highestClass(rec))
			return Export{}, dErrors.Wrap(err, dErrors.CodeOf(err), "decrypt client identity for export")
		}
		out.ClientIdentity = string(identity)
	}
	for _, msg := range rec.Messages {
		plaintext, err := c.encryptor.DecryptField(ctx, firmID, msg.Content)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeIntegrityViolation) {
				c.escalateIntegrity(ctx, "conversation", convID.String(),
					"auth tag verification failed for message "+msg.MessageID.String())
			}
			c.auditFailure(ctx, audit.ActionDataExported, "conversation", convID.String(), highestClass(rec))
			return Export{}, dErrors.Wrap(err, dErrors.CodeOf(err), "decrypt message for export")
		}
		out.Messages = append(out.Messages, ExportedMessage{
			MessageID: msg.MessageID,
			Sender:    msg.Sender,
			Text:      string(plaintext),
			Class:     msg.Class,
			CreatedAt: msg.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999Z07:00"),
		})
	}

	c.appendAudit(ctx, audit.Record{
		Action:       audit.ActionDataExported,
		ResourceType: "conversation",
		ResourceID:   convID.String(),
		Class:        highestClass(rec),
		Success:      true,
		Metadata:     audit.ExportMetadata{ResourceCount: len(out.Messages), Format: format},
	})
	return out, nil
}

// mutateAndAudit is the shared write path for mutations without payloads.
func (c *Coordinator) mutateAndAudit(ctx context.Context, convID id.ConversationID, fn conversation.Mutation, rec audit.Record) (conversation.Record, error) {
	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return conversation.Record{}, dErrors.New(dErrors.CodeUnauthorized, "no firm in request context")
	}

	updated, err := c.runtime.Mutate(ctx, firmID, convID, fn)
	if err != nil {
		c.auditFailure(ctx, rec.Action, rec.ResourceType, rec.ResourceID, classify.Classification{Level: classify.LevelInternal})
		return conversation.Record{}, err
	}

	c.appendAudit(ctx, rec)

	c.projector.ProjectRecord(updated)
	return updated, nil
}

// classifyText labels the message, falling back to the most restrictive
// classification if the engine fails. Failing open on sensitivity would
// leak; failing closed only over-protects.
func (c *Coordinator) classifyText(ctx context.Context, text string) classify.Classification {
	class, err := c.classifier.Classify(ctx, text)
	if err != nil {
		c.log.ErrorContext(ctx, "classification engine failed, assuming most restrictive",
			slog.Any("error", err))
		return classify.MostRestrictive()
	}
	return class
}

// appendAudit writes the chain entry for a committed state change. The
// caller may have been cancelled between the actor write and here; the
// entry is appended regardless, because the state change already happened.
// The outcome the caller sees is decided by the actor write alone, so an
// append failure is logged rather than returned.
func (c *Coordinator) appendAudit(ctx context.Context, rec audit.Record) {
	if _, err := c.auditor.Append(context.WithoutCancel(ctx), rec); err != nil {
		c.log.ErrorContext(ctx, "audit append failed after committed write",
			slog.String("action", string(rec.Action)),
			slog.String("resource_id", rec.ResourceID),
			slog.Any("error", err))
	}
}

// escalateIntegrity puts a tamper signal on the audit chain. The chain's
// observers raise the critical alert from it; suppression never applies.
func (c *Coordinator) escalateIntegrity(ctx context.Context, resourceType, resourceID, detail string) {
	c.appendAudit(ctx, audit.Record{
		Action:       audit.ActionIntegrityViolation,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Success:      false,
		Metadata:     audit.IntegrityMetadata{Detail: detail},
	})
}

// auditFailure records a failed operation. Best effort: the primary error
// is already on its way to the caller.
func (c *Coordinator) auditFailure(ctx context.Context, action audit.Action, resourceType, resourceID string, class classify.Classification) {
	_, err := c.auditor.Append(context.WithoutCancel(ctx), audit.Record{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Class:        class,
		Success:      false,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "audit failed operation",
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
}

// identityClass floors a classification at confidential PII. Asserted
// identity qualifies as personal data even when no identifier pattern
// matched the text.
func identityClass(class classify.Classification) classify.Classification {
	class.ContainsPII = true
	class.ContainsPHI = class.ContainsMedicalInfo
	if class.ContainsPHI {
		class.Level = classify.LevelRestricted
	} else if class.Level != classify.LevelRestricted {
		class.Level = classify.LevelConfidential
	}
	class.RequiresEncryption = true
	return class
}

func highestClass(rec conversation.Record) classify.Classification {
	out := classify.Classification{Level: classify.LevelPublic}
	if rec.ClientIdentity != nil {
		out.ContainsPII = rec.ClientIdentity.Class.ContainsPII
		out.ContainsPHI = rec.ClientIdentity.Class.ContainsPHI
		out.ContainsMedicalInfo = rec.ClientIdentity.Class.ContainsMedicalInfo
	}
	for _, msg := range rec.Messages {
		if msg.Class.ContainsPII {
			out.ContainsPII = true
		}
		if msg.Class.ContainsPHI {
			out.ContainsPHI = true
		}
		if msg.Class.ContainsMedicalInfo {
			out.ContainsMedicalInfo = true
		}
	}
	switch {
	case out.ContainsPHI:
		out.Level = classify.LevelRestricted
	case out.ContainsPII || out.ContainsMedicalInfo:
		out.Level = classify.LevelConfidential
	case len(rec.Messages) > 0 || rec.ClientIdentity != nil:
		out.Level = classify.LevelInternal
	}
	out.RequiresEncryption = out.ContainsPII || out.ContainsMedicalInfo
	return out
}
