package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/wellness-tracker/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"unauthorized", apperror.Unauthorized("Not logged in"), http.StatusUnauthorized, `{"error":"Not logged in"}`},
		{"wrapped unauthorized", fmt.Errorf("load: %w", apperror.Unauthorized("Not logged in")), http.StatusUnauthorized, `{"error":"Not logged in"}`},
		{"validation", apperror.ValidationFailed("body", "Invalid JSON body"), http.StatusBadRequest, `{"error":"Invalid JSON body"}`},
		{"forbidden", apperror.Forbidden("Avatar not unlocked"), http.StatusBadRequest, `{"error":"Avatar not unlocked"}`},
		{"untranslated not found", apperror.NotFound("session", "abc"), http.StatusInternalServerError, `{"error":"An internal error occurred"}`},
		{"storage failure", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"An internal error occurred"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}
