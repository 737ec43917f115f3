package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/luminon/agentd/types"
)

// Response is the uniform envelope for non-streaming endpoints.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo is the serialized form of a structured error.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess wraps data in the success envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// WriteError maps err onto its HTTP status and writes the error
// envelope.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	typed, ok := types.AsError(err)
	if !ok {
		typed = types.NewError(types.ErrInternal, "internal error").WithCause(err)
	}
	status := types.HTTPStatusFor(typed)

	if logger != nil {
		logger.Error("request failed",
			zap.String("code", string(typed.Code)),
			zap.String("message", typed.Message),
			zap.Int("status", status),
			zap.Error(typed.Cause),
		)
	}
	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(typed.Code),
			Message:   typed.Message,
			Retryable: typed.Retryable,
		},
		Timestamp: time.Now().UTC(),
	})
}

// errorInfoFor converts any error into its wire form.
func errorInfoFor(err error) *ErrorInfo {
	typed, ok := types.AsError(err)
	if !ok {
		typed = types.NewError(types.ErrInternal, "internal error").WithCause(err)
	}
	return &ErrorInfo{
		Code:      string(typed.Code),
		Message:   typed.Message,
		Retryable: typed.Retryable,
	}
}

// decodeJSON reads a request body into v, rejecting unparseable bodies
// with a validation error.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return types.NewError(types.ErrValidation, "invalid request body").WithCause(err)
	}
	return nil
}

// requireMethod writes 405 and reports false when the method mismatches.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		WriteJSON(w, http.StatusMethodNotAllowed, Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    string(types.ErrValidation),
				Message: "method not allowed",
			},
			Timestamp: time.Now().UTC(),
		})
		return false
	}
	return true
}
