package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewUserError("could not save transaction", cause)

	assert.Equal(t, "could not save transaction: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	var userErr *UserError
	assert.ErrorAs(t, err, &userErr)
	assert.Equal(t, "could not save transaction", userErr.UserMessage)
}

func TestUserError_WithoutCause(t *testing.T) {
	err := &UserError{UserMessage: "nothing to resolve"}
	assert.Equal(t, "nothing to resolve", err.Error())
	assert.NoError(t, err.Unwrap())
}
