package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrNotFound, "user not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "user not found", err.Error())
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(assertError("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestAsComputationFailure(t *testing.T) {
	assert.Nil(t, AsComputationFailure(nil, ""))

	typed := Clone(ErrNotFound, "user not found")
	assert.Same(t, typed, AsComputationFailure(typed, "x"))

	wrapped := AsComputationFailure(fmt.Errorf("load groups: %w", context.DeadlineExceeded), "")
	assert.True(t, errors.Is(wrapped, ErrAnalyticsFailed))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
}

type assertError string

func (e assertError) Error() string { return string(e) }
