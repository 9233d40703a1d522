package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorKeepsWrappedDomainError(t *testing.T) {
	base := NewNotFound("ticket", map[string]any{"ticket_id": "t-1"})
	wrapped := fmt.Errorf("lookup: %w", base)

	de := ToDomainError(wrapped)

	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	assert.Equal(t, "t-1", de.Details["ticket_id"])
}

func TestToDomainErrorFallsBackToInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))

	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"validation", NewValidationError("title required", nil), CodeValidation, true},
		{"transition", NewInvalidTransition("resolved", "new"), CodeInvalidTransition, true},
		{"transport wrapped", fmt.Errorf("call: %w", NewTransportError("backend down", errors.New("dial"))), CodeTransport, true},
		{"mismatch", NewForbidden("no"), CodeUnauthorized, false},
		{"plain error", errors.New("x"), CodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCode(tt.err, tt.code))
		})
	}
}

func TestTransportErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("backend unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
