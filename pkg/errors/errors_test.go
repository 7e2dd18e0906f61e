package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	clone := Clone(ErrValidation, "coordinator e-mail is required")

	assert.Equal(t, "coordinator e-mail is required", clone.Message)
	assert.Equal(t, ErrValidation.Status, clone.Status)
	assert.True(t, stdErrors.Is(clone, ErrValidation))
	assert.False(t, stdErrors.Is(clone, ErrSchema))
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := Wrap(cause, ErrTransportProtocol.Code, ErrTransportProtocol.Status, "SMTP error")

	assert.True(t, stdErrors.Is(err, ErrTransportProtocol))
	assert.True(t, stdErrors.Is(err, cause))
	assert.Equal(t, "SMTP error: dial tcp: timeout", err.Error())
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)

	wrapped := fmt.Errorf("outer: %w", ErrEmptyResult)
	assert.Equal(t, ErrEmptyResult.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrSchema, map[string]interface{}{"missing": []string{"Time"}})

	assert.Nil(t, ErrSchema.Details)
	assert.Equal(t, []string{"Time"}, err.Details["missing"])
	assert.True(t, stdErrors.Is(err, ErrSchema))
}
