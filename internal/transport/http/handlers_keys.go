package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lexgate/internal/audit"
	"lexgate/internal/fieldcrypt"
	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/httputil"
	"lexgate/pkg/requestcontext"
)

// HandleRotateKey handles POST /v1/keys/rotate. Rotation is an audited
// administrative action; the new key is live before the audit entry is
// appended, so an append failure is surfaced but does not undo rotation.
func (h *Handler) HandleRotateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	req, ok := httputil.DecodeAndPrepare[RotateKeyRequest](w, r, h.log)
	if !ok {
		return
	}

	meta, err := h.keyring.Rotate(ctx, firmID, req.ParsedPurpose())
	if err != nil {
		h.log.ErrorContext(ctx, "key rotation failed",
			"request_id", requestcontext.RequestID(ctx),
			"purpose", req.Purpose,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.ledger.Append(ctx, audit.Record{
		Action:       audit.ActionKeyRotated,
		ResourceType: "encryption_key",
		ResourceID:   meta.KeyID.String(),
		Success:      true,
		Metadata:     audit.EncryptionMetadata{KeyID: meta.KeyID, DataType: string(meta.Purpose)},
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meta)
}

// HandleRotationDue handles GET /v1/keys/rotation-due, listing active keys
// past their rotation deadline.
func (h *Handler) HandleRotationDue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	due, err := h.keyring.DueForRotation(ctx, firmID, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if due == nil {
		due = []fieldcrypt.KeyMetadata{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"keys": due})
}

// HandleRevokeKey handles POST /v1/keys/{keyID}/revoke. Revocation is the
// only way a key is ever destroyed; nothing revokes automatically.
func (h *Handler) HandleRevokeKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	keyID, err := id.ParseKeyID(chi.URLParam(r, "keyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.keyring.Revoke(ctx, firmID, keyID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.ledger.Append(ctx, audit.Record{
		Action:       audit.ActionConfigurationChanged,
		ResourceType: "encryption_key",
		ResourceID:   keyID.String(),
		Success:      true,
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
