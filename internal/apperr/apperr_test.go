package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("job not found"), http.StatusNotFound},
		{"forbidden", Forbidden("not your job"), http.StatusForbidden},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized},
		{"validation", Validation(map[string]string{"title": "required"}), http.StatusBadRequest},
		{"conflict", Conflict(ReasonJobFull, "job is full"), http.StatusConflict},
		{"internal", Internal(errors.New("db down"), "failed"), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("apply: %w", Conflict(ReasonDuplicateApplication, "dup")), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Internal(errors.New("timeout"), "failed")))
	assert.True(t, Retryable(errors.New("unclassified")))
	assert.False(t, Retryable(Conflict(ReasonJobFull, "job is full")))
	assert.False(t, Retryable(Conflict(ReasonDuplicateApplication, "already applied")))
	assert.False(t, Retryable(Validation(map[string]string{"cover_letter": "too long"})))
}

func TestIs_MatchesKindAndReason(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Conflict(ReasonJobFull, "job is full"))

	assert.ErrorIs(t, err, ErrJobFull)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrDuplicateApplication)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestValidation_ListsEveryField(t *testing.T) {
	err := Validation(map[string]string{
		"title":       "required",
		"category":    "must be one of ...",
		"salary.max":  "must be >= min",
		"description": "too long",
	})

	assert.Len(t, err.Fields, 4)
	assert.Equal(t, "validation failed: category, description, salary.max, title", err.Message)
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "failed to apply")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to apply: connection refused", err.Error())
}
