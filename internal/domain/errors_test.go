package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrValidation, ErrUnavailable}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b, "sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		entity      string
		id          string
		expectedMsg string
	}{
		{
			name:        "quote shorthand",
			err:         NewQuoteNotFoundError("4f0c8f4e-5b7e-4d8e-9a52-3c0d6f3b1a11"),
			entity:      EntityQuote,
			id:          "4f0c8f4e-5b7e-4d8e-9a52-3c0d6f3b1a11",
			expectedMsg: `quote with id "4f0c8f4e-5b7e-4d8e-9a52-3c0d6f3b1a11" not found`,
		},
		{
			name:        "entity only",
			err:         NewNotFoundError("quote", ""),
			entity:      "quote",
			expectedMsg: "quote not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
			require.ErrorIs(t, tt.err, ErrNotFound)

			var notFound *NotFoundError
			require.ErrorAs(t, tt.err, &notFound)
			assert.Equal(t, tt.entity, notFound.Entity)
			assert.Equal(t, tt.id, notFound.ID)
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := NewValidationError("token", "malformed cursor")

		assert.Equal(t, "validation failed for token: malformed cursor", err.Error())
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("without field", func(t *testing.T) {
		err := NewValidationError("", "bad input")

		assert.Equal(t, "validation failed: bad input", err.Error())
	})

	t.Run("keeps value", func(t *testing.T) {
		err := NewValidationErrorWithValue("token", "malformed cursor", "0000")

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "token", validation.Field)
		assert.Equal(t, "0000", validation.Value)
	})
}

func TestUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{
			name:        "with operation and cause",
			err:         NewUnavailableError("quote store", "insert", cause),
			expectedMsg: "quote store unavailable during insert: connection refused",
		},
		{
			name:        "without operation",
			err:         NewUnavailableError("quote store", "", cause),
			expectedMsg: "quote store unavailable: connection refused",
		},
		{
			name:        "without cause",
			err:         NewUnavailableError("cache", "get", nil),
			expectedMsg: "cache unavailable during get",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
			assert.True(t, IsUnavailable(tt.err))
		})
	}
}

func TestUnavailableError_UnwrapsCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := fmt.Errorf("list: %w", NewUnavailableError("quote store", "list", cause))

	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, cause)

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "list", unavailable.Operation)
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		isFunc   func(error) bool
		expected bool
	}{
		{"IsNotFound with NotFoundError", NewQuoteNotFoundError("x"), IsNotFound, true},
		{"IsNotFound with wrapped", fmt.Errorf("wrapped: %w", ErrNotFound), IsNotFound, true},
		{"IsNotFound with other error", ErrValidation, IsNotFound, false},
		{"IsNotFound with nil", nil, IsNotFound, false},

		{"IsValidation with ValidationError", NewValidationError("token", "bad"), IsValidation, true},
		{"IsValidation with other error", ErrNotFound, IsValidation, false},
		{"IsValidation with nil", nil, IsValidation, false},

		{"IsUnavailable with UnavailableError", NewUnavailableError("db", "get", nil), IsUnavailable, true},
		{"IsUnavailable with other error", ErrNotFound, IsUnavailable, false},
		{"IsUnavailable with nil", nil, IsUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.isFunc(tt.err))
		})
	}
}
