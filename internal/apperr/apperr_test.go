package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := New(KindNotFound, "products/1 not found")
	assert.Equal(t, KindNotFound, KindOf(err))

	wrapped := fmt.Errorf("loading catalog: %w", err)
	assert.Equal(t, KindNotFound, KindOf(wrapped), "classification survives wrapping")

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindNetworkUnreachable, "data source unreachable", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "network-unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(New(KindNetworkUnreachable, "x")))
	assert.True(t, IsTransient(New(KindTimeout, "x")))
	assert.False(t, IsTransient(New(KindServerError, "x")), "a server response is not a transport failure")
	assert.False(t, IsTransient(New(KindNotFound, "x")))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(New(KindNotFound, "x")))
	assert.True(t, IsValidation(New(KindValidation, "x")))
	assert.True(t, IsConflict(New(KindConflict, "x")))
	assert.False(t, IsNotFound(New(KindConflict, "x")))
}

func TestNewf(t *testing.T) {
	err := Newf(KindValidation, "invalid quantity %d for product %d", 0, 7)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "invalid quantity 0 for product 7")
}
