package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/relaymesh/llmgate/internal/apierror"
)

// errorBody is the OpenAI-compatible error envelope.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Respond writes v as a JSON response with the given status.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes a status/code/message as the OpenAI-shaped error envelope.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Type = code
	body.Error.Code = code
	Respond(w, status, body)
}

// RespondErr writes err as a JSON error response, unwrapping *apierror.Error
// when present and falling back to a generic 500 otherwise.
func RespondErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		RespondError(w, apiErr.Status, apiErr.Code, apiErr.Message)
		return
	}
	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	RespondError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
}
