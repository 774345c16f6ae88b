package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownCatalogItem):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoDetection):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPoints), errors.Is(err, domain.ErrBelowMinimum):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeRejection writes {"status":"rejected","reason":...,"message":...}
// plus any extra fields.
func writeRejection(w http.ResponseWriter, status int, reason, msg string, extra map[string]interface{}) {
	body := map[string]interface{}{
		"status":  "rejected",
		"reason":  reason,
		"message": msg,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeFailure reports err as a rejection when expected, otherwise as an
// error without leaking internals.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	if domain.IsRejection(err) {
		var extra map[string]interface{}
		var cd *domain.CooldownError
		if errors.As(err, &cd) {
			secs := cd.RemainingSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			extra = map[string]interface{}{"remaining_seconds": secs}
		}
		writeRejection(w, statusFor(err), domain.RejectionReason(err), err.Error(), extra)
		return
	}

	status := statusFor(err)
	s.log.Error().Err(err).Int("status", status).Msg("request failed")
	if status == http.StatusServiceUnavailable {
		writeError(w, status, "ledger storage unavailable")
		return
	}
	writeError(w, status, "internal error")
}
