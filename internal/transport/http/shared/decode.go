package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"guardhr/internal/transport/http/api"
)

// DecodeJSON reads a JSON body into dst and writes the failure response itself. Unknown
// fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return false
	}
	return true
}
