package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eduverse/accountd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email string `json:"email" validate:"required,contains=@"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func TestDecodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"email":"a@b.c","code":"123456"}`},
		{name: "bad json", body: `{"email":`, wantErr: "Request body is not valid JSON"},
		{name: "missing email", body: `{"code":"123456"}`, wantErr: "invalid email: is required"},
		{name: "email without at", body: `{"email":"abc","code":"123456"}`, wantErr: "invalid email: must contain @"},
		{name: "short code", body: `{"email":"a@b.c","code":"123"}`, wantErr: "invalid code: must be exactly 6 characters"},
		{name: "non numeric code", body: `{"email":"a@b.c","code":"12345x"}`, wantErr: "invalid code: must be numeric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req sampleRequest
			err := DecodeValidate(strings.NewReader(tt.body), &req)
			if tt.wantErr == "" {
				require.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, errors.ErrCodeInvalidInput, err.Code)
			assert.Equal(t, tt.wantErr, err.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	WriteError(rec, req, errors.New(errors.ErrCodeRateLimited, "slow down").
		WithDetail("retryAfterDays", 3).
		WithDetail("code", "ignored"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"slow down","code":"RATE_LIMITED","retryAfterDays":3}`, rec.Body.String())
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "***", MaskEmail("nope"))
	assert.Equal(t, "***", MaskEmail("@x.com"))
}
