package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lexgate/internal/audit"
	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/httputil"
	"lexgate/pkg/requestcontext"
)

// HandleListAuditEntries handles GET /v1/audit/entries. Filters: action,
// user_id, from, to (RFC 3339) and limit.
func (h *Handler) HandleListAuditEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	filter, err := auditFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.ledger.List(ctx, firmID, filter)
	if err != nil {
		h.log.ErrorContext(ctx, "list audit entries failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromEntry(e))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// HandleGetAuditEntry handles GET /v1/audit/entries/{auditID}.
func (h *Handler) HandleGetAuditEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	auditID, err := id.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entry, err := h.ledger.Get(ctx, firmID, auditID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntry(entry))
}

// HandleVerifyChain handles POST /v1/audit/verify. It walks the firm's
// whole chain and reports every break; a damaged chain is a 200 with
// findings, not an error, because the verification itself succeeded.
func (h *Handler) HandleVerifyChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	findings, err := h.ledger.VerifyChain(ctx, firmID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeIntegrityViolation) {
		h.log.ErrorContext(ctx, "chain verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if len(findings) > 0 {
		// Damage goes on the chain itself so the alert engine raises the
		// critical alert from it.
		if _, err := h.ledger.Append(context.WithoutCancel(ctx), audit.Record{
			Action:       audit.ActionIntegrityViolation,
			ResourceType: "audit_chain",
			ResourceID:   firmID.String(),
			Success:      false,
			Metadata: audit.IntegrityMetadata{
				Detail:          fmt.Sprintf("chain verification found %d violation(s)", len(findings)),
				AffectedAuditID: findings[0].AuditID,
			},
		}); err != nil {
			h.log.ErrorContext(ctx, "record integrity violation failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, FromFindings(findings))
}

func auditFilterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()

	action, err := audit.ParseAction(q.Get("action"))
	if err != nil {
		return audit.Filter{}, err
	}
	filter := audit.Filter{
		Action: action,
		Limit:  queryLimit(r, defaultListLimit),
	}

	if raw := q.Get("user_id"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return audit.Filter{}, err
		}
		filter.UserID = userID
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "from must be RFC 3339")
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "to must be RFC 3339")
		}
		filter.To = to
	}
	return filter, nil
}
