package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrEntryNotFound,
			expected: "Gallery entry not found",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := ErrInference.WithError(underlying)

	assert.Equal(t, underlying, appErr.Unwrap())
	assert.Nil(t, ErrEntryNotFound.Unwrap())
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("tensor too short")
	wrapped := ErrInvalidInput.WithError(underlying)

	assert.Equal(t, ErrInvalidInput.Code, wrapped.Code)
	assert.Equal(t, ErrInvalidInput.StatusCode, wrapped.StatusCode)
	assert.NotSame(t, ErrInvalidInput, wrapped)
	assert.Nil(t, ErrInvalidInput.Err, "sentinel must not be mutated")
}

func TestAppError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same sentinel", ErrModelShape, ErrModelShape, true},
		{"copy with cause", ErrModelShape.WithError(errors.New("int8 input")), ErrModelShape, true},
		{"wrapped by fmt", fmt.Errorf("initialize: %w", ErrInference.WithError(nil)), ErrInference, true},
		{"different code", ErrInference, ErrModelShape, false},
		{"plain error", errors.New("x"), ErrInference, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}
