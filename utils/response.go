package utils

import (
	"encoding/json"
	"net/http"

	"bookit/apperr"
)

// RespondWithError writes {"detail": msg} with the given status.
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"detail": msg})
}

// RespondWithAppError maps err onto its HTTP status.
func RespondWithAppError(w http.ResponseWriter, err error) {
	k := apperr.KindOf(err)
	RespondWithError(w, k.Status(), apperr.Message(err))
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type M map[string]interface{}
