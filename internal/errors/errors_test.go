package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodeInternal, "fetch invitation")

	assert.EqualError(t, err, "fetch invitation: connection reset")
	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &appErr)
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("no such invitation")))
	assert.True(t, IsExpired(Expired("this invitation has expired")))
	assert.True(t, IsConsumed(Consumed("this invitation has already been used")))
	assert.True(t, IsConflict(Conflict("email taken")))
	assert.True(t, IsRateLimited(RateLimited("too many attempts")))
	assert.False(t, IsNotFound(Conflict("email taken")))
	assert.False(t, IsExpired(errors.New("plain")))
}

func TestGetCodeAndField(t *testing.T) {
	err := ValidationField("email", "email must be a plain, valid address")
	assert.Equal(t, ErrCodeValidation, GetCode(err))
	assert.Equal(t, "email", GetField(err))

	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, "", GetField(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "this invitation has expired", UserMessage(Expired("this invitation has expired")))
	assert.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("dial tcp: i/o timeout")))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "never"))
}
