package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	detailed := ErrNotFound.WithMessage("period 2024-03 not found")

	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"detailed copy matches sentinel", detailed, ErrNotFound, true},
		{"wrapped", fmt.Errorf("load period: %w", ErrConcurrencyConflict), ErrConcurrencyConflict, true},
		{"different code", fmt.Errorf("load period: %w", ErrConcurrencyConflict), ErrNotFound, false},
		{"joined", errors.Join(assert.AnError, detailed), ErrNotFound, true},
		{"plain error with the same text", errors.New("NOT_FOUND"), ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
	assert.Equal(t, "period 2024-03 not found", detailed.Error())
	assert.Equal(t, "Resource not found", ErrNotFound.Error(), "WithMessage leaves the sentinel alone")
}

func TestAsDomainError(t *testing.T) {
	de, ok := AsDomainError(fmt.Errorf("post: %w", NewDomainError("INVALID_UNIT", "Unit cannot be empty")))
	require.True(t, ok)
	assert.Equal(t, "INVALID_UNIT", de.Code)

	de, ok = AsDomainError(errors.Join(assert.AnError, ErrInvalidState))
	require.True(t, ok)
	assert.Same(t, ErrInvalidState, de)

	_, ok = AsDomainError(assert.AnError)
	assert.False(t, ok)
	_, ok = AsDomainError(nil)
	assert.False(t, ok)
}
