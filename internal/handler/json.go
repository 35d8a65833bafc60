package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the response body shape shared by every API endpoint:
// {"success": bool, "message": string, ...data}.
type envelope map[string]any

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeSuccess sends a success envelope merged with data.
func writeSuccess(w http.ResponseWriter, status int, message string, data envelope) {
	body := envelope{"success": true, "message": message}
	for k, v := range data {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError sends a failure envelope with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// writeMissingFields rejects a request that lacks required fields.
func writeMissingFields(w http.ResponseWriter, message string, fields []string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		"success":       false,
		"message":       message,
		"missingFields": fields,
	})
}

// readJSON decodes the request body into dst. Numbers decode as json.Number
// so numeric keys and icon codes keep their exact form.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(dst)
}
