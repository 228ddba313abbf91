package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusUnwrapsChain(t *testing.T) {
	err := fmt.Errorf("create order: %w", NewNotFound("batch", "b1"))

	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestInsufficientStockDetails(t *testing.T) {
	err := NewInsufficientStock("f1", "b1", 300, 200)

	assert.True(t, IsCode(err, CodeInsufficientStock))
	assert.Equal(t, 300, err.Details["requested"])
	assert.Equal(t, 200, err.Details["available"])
}

func TestSideEffects(t *testing.T) {
	var effects SideEffects
	require.True(t, effects.OK())

	effects.Record("notify", "shop-1", nil)
	require.True(t, effects.OK())

	cause := errors.New("smtp down")
	effects.Record("notify", "shop-1", cause)

	assert.False(t, effects.OK())
	assert.True(t, effects.Failed("notify"))
	assert.False(t, effects.Failed("ledger"))
	assert.ErrorContains(t, effects.Err(), "smtp down")
}
