package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrInvalidPattern", ErrInvalidPattern},
		{"ErrModeUnavailable", ErrModeUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrIndexStale", ErrIndexStale},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrNoConversations", ErrNoConversations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrUnsupportedType, ErrInvalidPattern,
		ErrModeUnavailable, ErrEmbeddingUnavailable, ErrVectorIndexUnavailable,
		ErrIndexStale, ErrRateLimited, ErrNoConversations,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestErrInvalidPattern_Wrapped(t *testing.T) {
	err := fmt.Errorf("regex: %w: missing closing )", ErrInvalidPattern)

	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.False(t, errors.Is(err, ErrModeUnavailable))
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestErrModeUnavailable_Wrapped(t *testing.T) {
	err := fmt.Errorf("semantic: %w: %w", ErrModeUnavailable, ErrEmbeddingUnavailable)

	assert.True(t, errors.Is(err, ErrModeUnavailable))
	assert.True(t, errors.Is(err, ErrEmbeddingUnavailable))
}
