package middleware

import (
	"encoding/json"
	"net/http"

	"hirelane/internal/apperr"
	"hirelane/pkg/api"
)

// WriteJSON writes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// WriteError translates err into the error envelope. Unclassified errors
// become a generic server fault.
func WriteError(w http.ResponseWriter, err error) {
	ae := apperr.As(err)
	code := apperr.HTTPStatus(ae)
	WriteJSON(w, code, api.ErrorResponse{
		Status:    api.StatusError,
		Message:   ae.Message,
		Code:      code,
		Reason:    string(ae.Reason),
		Retryable: apperr.Retryable(ae),
		Fields:    ae.Fields,
	})
}

func errorBody(code int, message string) api.ErrorResponse {
	return api.ErrorResponse{
		Status:    api.StatusError,
		Message:   message,
		Code:      code,
		Retryable: code == http.StatusTooManyRequests,
	}
}
