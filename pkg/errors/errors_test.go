package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("slot").StatusCode())
	assert.Equal(t, http.StatusBadRequest, Validation("bad input").StatusCode())
	assert.Equal(t, http.StatusConflict, Conflict("taken").StatusCode())
	assert.Equal(t, http.StatusInternalServerError, Internal(fmt.Errorf("boom")).StatusCode())
}

func TestIsKind(t *testing.T) {
	err := Conflict("slot is not available")
	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindNotFound))

	wrapped := fmt.Errorf("booking failed: %w", err)
	assert.True(t, IsKind(wrapped, KindConflict))

	assert.False(t, IsKind(fmt.Errorf("plain"), KindConflict))
}

func TestFrom(t *testing.T) {
	err := NotFound("doctor")
	assert.Equal(t, err, From(fmt.Errorf("lookup: %w", err)))

	plain := fmt.Errorf("boom")
	appErr := From(plain)
	assert.Equal(t, KindInternal, appErr.Kind)
	assert.ErrorIs(t, appErr, plain)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "doctor not found", NotFound("doctor").Error())

	withCause := Internal(fmt.Errorf("connection refused"))
	assert.Contains(t, withCause.Error(), "connection refused")
}
