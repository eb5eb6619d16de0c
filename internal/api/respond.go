package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/bazaar/internal/apperr"
	"github.com/example/bazaar/internal/domain/cart"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondError maps a service error to its status code. Unclassified errors
// are logged and answered with a generic 500.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		respondJSONError(w, status, code, "internal server error")
		return
	}
	respondJSONError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	// The cart conflict asks the client to fix its request, so it is a 400.
	if errors.Is(err, cart.ErrMultiProviderConflict) {
		return http.StatusBadRequest, "provider_conflict"
	}

	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, kind.String()
	case apperr.KindNotFound:
		return http.StatusNotFound, kind.String()
	case apperr.KindConflict:
		return http.StatusConflict, kind.String()
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, kind.String()
	case apperr.KindForbidden:
		return http.StatusForbidden, kind.String()
	case apperr.KindPaymentDeclined:
		return http.StatusPaymentRequired, kind.String()
	case apperr.KindPaymentGateway:
		return http.StatusBadGateway, kind.String()
	default:
		return http.StatusInternalServerError, kind.String()
	}
}

// decodeJSON reads a bounded request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}
