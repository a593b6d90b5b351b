package handler

// RESPONSE HELPERS:
// Every JSON route answers through writeJSON / writeError so the browser code
// can rely on one shape:
//
//	success: {"success": true, ...}
//	failure: {"error": "Not logged in"}
//
// Domain errors from the service are mapped to HTTP here and nowhere else.

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/sakif/wellness-tracker/internal/apperror"
)

// ErrorResponse is the body of every failed JSON request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes data before touching the response, so an encoding failure
// can still become a clean 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := sonic.Marshal(data)
	if err != nil {
		http.Error(w, `{"error":"An internal error occurred"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeError maps a domain error to a status code and sends {"error": msg}.
//
// A locked avatar is ErrForbidden but answers 400, which is what the browser
// code expects for "you can't pick that one yet".
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: appErr.Message})
			return
		case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrForbidden):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
			return
		}
	}

	// Storage failures and anything unexpected, including a store's
	// ErrNotFound that the service failed to translate. The detail stays in
	// the logs.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "An internal error occurred"})
}
