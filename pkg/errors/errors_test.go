package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeWeakPassword, http.StatusBadRequest},
		{ErrCodeVerificationMissing, http.StatusBadRequest},
		{ErrCodeVerificationNotCompleted, http.StatusBadRequest},
		{ErrCodeVerificationExpired, http.StatusBadRequest},
		{ErrCodeAccountNotFound, http.StatusNotFound},
		{ErrCodeCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeUpstream, http.StatusInternalServerError},
		{ErrCodeUpstreamTimeout, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatusCode())
		})
	}
}

func TestWrapAndInspect(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("update password: %w", Wrap(cause, ErrCodeUpstream, "credential store failed"))

	assert.True(t, IsCode(err, ErrCodeUpstream))
	assert.False(t, IsCode(err, ErrCodeInternal))
	assert.Equal(t, ErrCodeUpstream, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeInternal, GetCode(cause))
	assert.Nil(t, Wrap(nil, ErrCodeUpstream, "nothing"))
}

func TestWithDetail(t *testing.T) {
	err := InvalidInput("email", "must contain @")
	err.WithDetail("value", "nope")

	assert.Equal(t, "email", err.Details["field"])
	assert.Equal(t, "nope", err.Details["value"])
	assert.Equal(t, "[INVALID_INPUT] invalid email: must contain @", err.Error())
}
