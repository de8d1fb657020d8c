package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lexgate/internal/index"
	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/httputil"
	"lexgate/pkg/requestcontext"
)

// defaultListLimit caps conversation and audit listings when the caller
// does not ask for a specific page size.
const defaultListLimit = 50

// HandleStartConversation handles POST /v1/conversations.
func (h *Handler) HandleStartConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.coord.StartConversation(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "start conversation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

// HandleListConversations handles GET /v1/conversations.
//
// The listing is served from the index projection, so it can trail the
// authoritative records; callers needing the committed state fetch the
// conversation itself.
func (h *Handler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	limit := queryLimit(r, defaultListLimit)
	projections, err := h.index.Recent(ctx, firmID, limit)
	if err != nil {
		h.log.ErrorContext(ctx, "list conversations failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list conversations"))
		return
	}
	if projections == nil {
		projections = []index.Projection{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"conversations": projections})
}

// HandleGetConversation handles GET /v1/conversations/{conversationID}.
func (h *Handler) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}

	rec, err := h.coord.GetConversation(ctx, convID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandlePostMessage handles POST /v1/conversations/{conversationID}/messages.
func (h *Handler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PostMessageRequest](w, r, h.log)
	if !ok {
		return
	}

	res, err := h.coord.PostMessage(ctx, convID, req.ParsedSender(), req.Text)
	if err != nil {
		h.log.ErrorContext(ctx, "post message failed",
			"request_id", requestcontext.RequestID(ctx),
			"conversation_id", convID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromMessageResult(res))
}

// HandleRecordIdentity handles POST /v1/conversations/{conversationID}/identity.
func (h *Handler) HandleRecordIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[IdentityRequest](w, r, h.log)
	if !ok {
		return
	}

	rec, err := h.coord.RecordClientIdentity(ctx, convID, req.Identity)
	if err != nil {
		h.log.ErrorContext(ctx, "record identity failed",
			"request_id", requestcontext.RequestID(ctx),
			"conversation_id", convID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleAssignConversation handles POST /v1/conversations/{conversationID}/assignment.
func (h *Handler) HandleAssignConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.log)
	if !ok {
		return
	}

	rec, err := h.coord.AssignConversation(ctx, convID, req.ParsedUserID())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleChangeStatus handles POST /v1/conversations/{conversationID}/status.
func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StatusRequest](w, r, h.log)
	if !ok {
		return
	}

	rec, err := h.coord.ChangeStatus(ctx, convID, req.ParsedStatus())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleAdvancePhase handles POST /v1/conversations/{conversationID}/phase.
func (h *Handler) HandleAdvancePhase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PhaseRequest](w, r, h.log)
	if !ok {
		return
	}

	rec, err := h.coord.AdvancePhase(ctx, convID, req.ParsedPhase())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleExportConversation handles POST /v1/conversations/{conversationID}/export.
func (h *Handler) HandleExportConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExportRequest](w, r, h.log)
	if !ok {
		return
	}

	export, err := h.coord.ExportConversation(ctx, convID, req.Format)
	if err != nil {
		h.log.ErrorContext(ctx, "export failed",
			"request_id", requestcontext.RequestID(ctx),
			"conversation_id", convID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, export)
}

// HandleDeleteConversation handles DELETE /v1/conversations/{conversationID}.
func (h *Handler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convID, ok := pathConversationID(w, r)
	if !ok {
		return
	}

	if err := h.coord.DeleteConversation(ctx, convID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathConversationID(w http.ResponseWriter, r *http.Request) (id.ConversationID, bool) {
	convID, err := id.ParseConversationID(chi.URLParam(r, "conversationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ConversationID{}, false
	}
	return convID, true
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return min(n, 500)
}
