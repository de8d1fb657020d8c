// Package httptransport is the thin HTTP boundary. Handlers decode,
// validate and delegate to the coordinator and the compliance services;
// no business rule lives here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lexgate/internal/alert"
	"lexgate/internal/audit"
	"lexgate/internal/coordinator"
	"lexgate/internal/fieldcrypt"
	"lexgate/internal/index"
	"lexgate/internal/jwttoken"
)

// Handler carries the services the HTTP surface exposes.
type Handler struct {
	coord   *coordinator.Coordinator
	ledger  *audit.Ledger
	alerts  *alert.Service
	keyring *fieldcrypt.Keyring
	index   index.Store
	log     *slog.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(
	coord *coordinator.Coordinator,
	ledger *audit.Ledger,
	alerts *alert.Service,
	keyring *fieldcrypt.Keyring,
	indexStore index.Store,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		coord:   coord,
		ledger:  ledger,
		alerts:  alerts,
		keyring: keyring,
		index:   indexStore,
		log:     log,
	}
}

// NewRouter wires all endpoints. Everything under /v1 requires a valid
// bearer token; health and metrics stay open for probes and scrapers.
func NewRouter(h *Handler, tokens *jwttoken.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestTime)
	r.Use(ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(RequireAuth(tokens, h.ledger, h.log))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", h.HandleStartConversation)
			r.Get("/", h.HandleListConversations)
			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/", h.HandleGetConversation)
				r.Delete("/", h.HandleDeleteConversation)
				r.Post("/messages", h.HandlePostMessage)
				r.Post("/identity", h.HandleRecordIdentity)
				r.Post("/assignment", h.HandleAssignConversation)
				r.Post("/status", h.HandleChangeStatus)
				r.Post("/phase", h.HandleAdvancePhase)
				r.Post("/export", h.HandleExportConversation)
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/entries", h.HandleListAuditEntries)
			r.Get("/entries/{auditID}", h.HandleGetAuditEntry)
			r.Post("/verify", h.HandleVerifyChain)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.HandleListAlerts)
			r.Get("/{alertID}", h.HandleGetAlert)
			r.Post("/{alertID}/status", h.HandleAlertStatus)
		})

		r.Route("/keys", func(r chi.Router) {
			r.Post("/rotate", h.HandleRotateKey)
			r.Get("/rotation-due", h.HandleRotationDue)
			r.Post("/{keyID}/revoke", h.HandleRevokeKey)
		})
	})

	return r
}
