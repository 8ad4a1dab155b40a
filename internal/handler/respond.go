package handler

import (
	"encoding/json"
	"net/http"

	"bracket-be/internal/middleware"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
)

// respondJSON writes a success envelope around data.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// respondError writes the error envelope. Unknown errors are masked as
// internal so store details never leak to clients.
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr := errors.AsAppError(err)
	if appErr == nil {
		appErr = errors.NewInternal("Internal server error", err)
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	} else {
		log.WithError(err).WithField("path", r.URL.Path).Debug("Request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"type":       appErr.Type,
			"code":       appErr.Code,
			"message":    appErr.Message,
			"request_id": middleware.GetRequestID(r.Context()),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
