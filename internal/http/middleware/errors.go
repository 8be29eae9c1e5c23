package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError renders the API error envelope for requests rejected before
// they reach a handler.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"request_id"`
	}
	payload.Error.Code = code
	payload.Error.Message = message
	payload.RequestID = GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
