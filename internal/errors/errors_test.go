package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidState, http.StatusConflict},
		{CodeLimitExceeded, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := LimitExceeded("favorite limit reached", 4)

	assert.True(t, Is(err, ErrLimitExceeded))
	assert.False(t, Is(err, ErrInvalidState))

	wrapped := fmt.Errorf("toggle favorite: %w", err)
	assert.True(t, Is(wrapped, ErrLimitExceeded))
	assert.Equal(t, CodeLimitExceeded, CodeOf(wrapped))
}

func TestDatabase_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk I/O error")
	err := Database(cause)

	assert.True(t, Is(err, ErrInternal))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("boom")))
}

func TestWithDetails_DoesNotMutate(t *testing.T) {
	base := Validation("bad input")
	withDetails := base.WithDetails(map[string]string{"field": "start_time"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, withDetails.Details)
	assert.Equal(t, base.Code, withDetails.Code)
}
