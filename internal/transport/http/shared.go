package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "labtrail/pkg/domain-errors"
)

// writeJSON centralizes response encoding so every endpoint shares one
// envelope shape.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError translates domain errors into HTTP responses. The error code
// travels verbatim so callers can present the specific corrective message.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, dErrors.ToHTTPStatus(err), map[string]string{
		"error":             string(dErrors.CodeOf(err)),
		"error_description": err.Error(),
	})
}
