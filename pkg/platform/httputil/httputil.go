// Package httputil centralizes JSON response writing and request decoding
// for the HTTP layer. Handlers never hand-roll error envelopes; every
// domain error is translated here so status mapping stays in one place.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "lexgate/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies. Intake messages are short; anything
// larger is abuse or a client bug.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request types that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope. Server
// side failures (5xx) omit the description so internal detail never leaks
// to callers; client errors include it.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusOf(code)

	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) && domainErr.Message != "" {
			body["error_description"] = domainErr.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// StatusOf maps a domain error code to an HTTP status. Unknown codes map
// to 500 so a forgotten mapping fails closed.
func StatusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes the request body into T and runs its
// validation. On failure it writes the error response and returns ok=false
// so handlers can bail with a bare return.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, log *slog.Logger) (PT, bool) {
	req := PT(new(T))

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		log.WarnContext(r.Context(), "malformed request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed JSON body"))
		return nil, false
	}

	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
