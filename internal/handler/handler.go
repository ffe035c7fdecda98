package handler

import (
	"encoding/json"
	"net/http"

	"loyalty-quote/internal/model"

	"github.com/rs/zerolog"
)

// internalErrorBody is written when a response cannot be encoded.
var internalErrorBody = []byte(`{"error":"internal error"}` + "\n")

// encodeJSON renders data completely before anything reaches the client.
func encodeJSON(data interface{}) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

// writeBody sends status and body in a single write. A failed write is logged only.
func writeBody(w http.ResponseWriter, status int, body []byte, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Warn().Err(err).Int("status", status).Msg("failed to write response")
	}
}

// writeJSON writes a JSON response with the given status code. If data cannot
// be encoded a 500 is written instead and false is returned.
func writeJSON(w http.ResponseWriter, status int, data interface{}, logger zerolog.Logger) bool {
	body, err := encodeJSON(data)
	if err != nil {
		logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
		writeBody(w, http.StatusInternalServerError, internalErrorBody, logger)
		return false
	}

	writeBody(w, status, body, logger)
	return true
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: message}, logger)
}
