package holdings

import (
	"encoding/json"
	"net/http"
)

// In-package stand-ins for the responder functions main injects at
// startup, so handler tests run without the server wiring.

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, errs ...[]string) {
	respondJSON(w, status, errorEnvelope(status, message, errs))
}

func errorEnvelope(status int, message string, errs [][]string) map[string]interface{} {
	envelope := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(errs) > 0 && len(errs[0]) > 0 {
		envelope["errors"] = errs[0]
	}
	return envelope
}
