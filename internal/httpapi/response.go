package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apartments "github.com/khaledahmed0918-sys/Apartments"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a result kind to an HTTP status.
func statusFor(kind apartments.ErrorKind) int {
	switch kind {
	case apartments.KindNone:
		return http.StatusOK
	case apartments.KindValidation:
		return http.StatusBadRequest
	case apartments.KindInvalidCredentials:
		return http.StatusUnauthorized
	case apartments.KindNotFound:
		return http.StatusNotFound
	case apartments.KindDuplicateEmail, apartments.KindFlowState:
		return http.StatusConflict
	case apartments.KindExpired:
		return http.StatusGone
	case apartments.KindMismatch:
		return http.StatusUnprocessableEntity
	case apartments.KindServerUnreachable:
		return http.StatusBadGateway
	case apartments.KindUnavailable, apartments.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeResult writes the engine outcome in the Result envelope. Internal
// failures are logged with the request; callers only see the kind.
func (s *server) writeResult(w http.ResponseWriter, r *http.Request, err error, data any) {
	res := apartments.ResultOf(err, data)
	status := statusFor(res.Kind)

	if res.Kind.Infrastructure() {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("kind", string(res.Kind)),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeJSON(w, status, res)
}

func (s *server) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apartments.ValidationError
	if !errors.As(err, &verr) {
		err = &apartments.ValidationError{Fields: map[string]string{"body": "invalid"}}
	}
	s.writeResult(w, r, err, nil)
}
