package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjod/storefront/internal/remote"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondRemoteError maps a failure from the hosted backend to an HTTP answer.
func respondRemoteError(w http.ResponseWriter, err error) {
	var rerr *remote.Error
	switch {
	case remote.IsNoRows(err):
		respondError(w, http.StatusNotFound, "not_found", "no data found")
	case remote.IsPolicyDenied(err):
		respondError(w, http.StatusForbidden, "permission_denied", "permission denied to access this data")
	case errors.As(err, &rerr) && rerr.Status >= 400 && rerr.Status < 500:
		respondJSON(w, rerr.Status, ErrorResponse{Error: rerr.Message, Code: rerr.Code, Details: rerr.Details})
	case errors.As(err, &rerr):
		respondError(w, http.StatusBadGateway, "backend_error", rerr.Message)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
