package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lexgate/internal/alert"
	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/httputil"
	"lexgate/pkg/requestcontext"
)

// HandleListAlerts handles GET /v1/alerts. Filters: type, status, limit.
func (h *Handler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)
	q := r.URL.Query()

	alertType, err := alert.ParseType(q.Get("type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter := alert.Filter{
		Type:  alertType,
		Limit: queryLimit(r, defaultListLimit),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := alert.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}

	alerts, err := h.alerts.List(ctx, firmID, filter)
	if err != nil {
		h.log.ErrorContext(ctx, "list alerts failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// HandleGetAlert handles GET /v1/alerts/{alertID}.
func (h *Handler) HandleGetAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	alertID, ok := pathAlertID(w, r)
	if !ok {
		return
	}

	a, err := h.alerts.Get(ctx, firmID, alertID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleAlertStatus handles POST /v1/alerts/{alertID}/status, driving the
// investigation workflow.
func (h *Handler) HandleAlertStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	firmID := requestcontext.FirmID(ctx)

	alertID, ok := pathAlertID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AlertStatusRequest](w, r, h.log)
	if !ok {
		return
	}

	a, err := h.alerts.Transition(ctx, firmID, alertID, req.ParsedStatus())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func pathAlertID(w http.ResponseWriter, r *http.Request) (id.AlertID, bool) {
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AlertID{}, false
	}
	return alertID, true
}
