package httpapi

import (
	"encoding/json"
	"net/http"

	"chimerad/internal/bus"
	"chimerad/internal/core"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, errorType, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{ErrorType: errorType, Message: msg})
}

// writeServiceError maps well-known core errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case bus.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "ValidationError", err.Error())
	case registry.IsModuleNotFound(err), core.IsNotConfigured(err):
		writeJSONError(w, http.StatusNotFound, "NotFoundError", err.Error())
	case bus.IsClosed(err):
		writeJSONError(w, http.StatusServiceUnavailable, "ServiceUnavailable", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "InternalError", err.Error())
	}
}
