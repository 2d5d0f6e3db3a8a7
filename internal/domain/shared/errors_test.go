package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainErrorf(t *testing.T) {
	err := NewDomainErrorf("INVALID_STATUS", "Unknown customer status: %s", "dormant")

	assert.Equal(t, "INVALID_STATUS", err.Code)
	assert.Equal(t, "Unknown customer status: dormant", err.Error())
}

func TestDomainError_SentinelSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading customer: %w", ErrNotFound)

	assert.ErrorIs(t, wrapped, ErrNotFound)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
