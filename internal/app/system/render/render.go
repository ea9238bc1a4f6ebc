// Package render writes the JSON response envelope every endpoint uses.
//
// Envelope shape:
//
//	{"status": "success", "message": "...", "data": {...}}
//	{"status": "fail",    "message": "..."}            // 4xx
//	{"status": "error",   "message": "..."}            // 5xx
package render

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/system/apperrors"
)

// Envelope is the uniform response body.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes data wrapped in a success envelope with the given status code.
func JSON(w http.ResponseWriter, code int, data any) {
	write(w, code, Envelope{Status: "success", Data: data})
}

// Success writes a success envelope with a human-readable message and data.
func Success(w http.ResponseWriter, code int, message string, data any) {
	write(w, code, Envelope{Status: "success", Message: message, Data: data})
}

// Fail writes a client-fault envelope (4xx).
func Fail(w http.ResponseWriter, code int, message string) {
	write(w, code, Envelope{Status: "fail", Message: message})
}

// Error maps err onto the envelope. *apperrors.E values get their mapped
// status; anything else becomes an opaque 500 so internals never leak.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	if e, ok := apperrors.As(err); ok {
		code := statusFor(e.Kind)
		if code >= 500 {
			if log != nil {
				log.Error("request failed", zap.Error(err))
			}
			write(w, code, Envelope{Status: "error", Message: e.Message})
			return
		}
		write(w, code, Envelope{Status: "fail", Message: e.Message})
		return
	}
	if log != nil {
		log.Error("unexpected error", zap.Error(err))
	}
	write(w, http.StatusInternalServerError, Envelope{Status: "error", Message: "internal server error"})
}

func statusFor(k apperrors.Kind) int {
	switch k {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAuthentication:
		return http.StatusUnauthorized
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, code int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeBody decodes a JSON request body into dst, rejecting unknown fields
// and trailing garbage.
func DecodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if dec.More() {
		return apperrors.Validation("invalid request body")
	}
	return nil
}
