package holdings

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ValidateHoldingsPathParamsMiddleware rejects requests with missing or
// malformed path parameters before they reach a handler. Transaction ids
// must be UUIDs; a malformed id is reported as not found rather than
// leaking the format rule.
func (h *HoldingsHandler) ValidateHoldingsPathParamsMiddleware(next http.Handler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, param := range params {
			paramValue := r.PathValue(param)
			if paramValue == "" {
				h.respondError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", param))
				return
			}

			if param == "transactionID" {
				if _, err := uuid.Parse(paramValue); err != nil {
					h.respondError(w, http.StatusNotFound, "Transaction not found")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
