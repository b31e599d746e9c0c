package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eduverse/accountd/pkg/emailverification"
	"github.com/eduverse/accountd/pkg/notification"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	sendErr    error
	confirmErr error
}

func (s *stubService) SendCode(ctx context.Context, email, name string) (*emailverification.SendResult, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &emailverification.SendResult{Email: email}, nil
}

func (s *stubService) ConfirmCode(ctx context.Context, email, code string) error {
	return s.confirmErr
}

func (s *stubService) CodeTTL() time.Duration { return 10 * time.Minute }

func serve(h *Handler, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestSendVerification(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "success",
			body:     `{"email":"user@x.com","name":"Jane"}`,
			wantCode: http.StatusOK,
			wantBody: `{"success":true,"message":"Verification code sent","expiresInMinutes":10}`,
		},
		{
			name:     "missing email",
			body:     `{"name":"Jane"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"success":false,"error":"invalid email: is required","code":"INVALID_INPUT","field":"email"}`,
		},
		{
			name:     "cooldown",
			body:     `{"email":"user@x.com"}`,
			err:      emailverification.ErrRateLimitExceeded,
			wantCode: http.StatusTooManyRequests,
			wantBody: `{"success":false,"error":"Please wait a minute before requesting another code","code":"RATE_LIMITED"}`,
		},
		{
			name:     "already verified",
			body:     `{"email":"user@x.com"}`,
			err:      emailverification.ErrAlreadyVerified,
			wantCode: http.StatusBadRequest,
			wantBody: `{"success":false,"error":"Email is already verified","code":"ALREADY_VERIFIED"}`,
		},
		{
			name:     "delivery failure",
			body:     `{"email":"user@x.com"}`,
			err:      emailverification.ErrDeliveryFailed,
			wantCode: http.StatusInternalServerError,
			wantBody: `{"success":false,"error":"Failed to send verification email","code":"UPSTREAM_ERROR"}`,
		},
		{
			name:     "storage failure",
			body:     `{"email":"user@x.com"}`,
			err:      errors.New("disk full"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"success":false,"error":"An error occurred while sending the verification code","code":"INTERNAL_ERROR"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewHandler(&stubService{sendErr: tt.err}), "/send-verification", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestVerifyCode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "success", body: `{"email":"user@x.com","code":"123456"}`, wantCode: http.StatusOK},
		{name: "bad code format", body: `{"email":"user@x.com","code":"12"}`, wantCode: http.StatusBadRequest, wantErr: "INVALID_INPUT"},
		{name: "not requested", body: `{"email":"user@x.com","code":"123456"}`, err: emailverification.ErrNotFound, wantCode: http.StatusNotFound, wantErr: "CODE_NOT_FOUND"},
		{name: "mismatch", body: `{"email":"user@x.com","code":"123456"}`, err: emailverification.ErrCodeMismatch, wantCode: http.StatusBadRequest, wantErr: "CODE_MISMATCH"},
		{name: "expired", body: `{"email":"user@x.com","code":"123456"}`, err: emailverification.ErrCodeExpired, wantCode: http.StatusBadRequest, wantErr: "VERIFICATION_EXPIRED"},
		{name: "too many", body: `{"email":"user@x.com","code":"123456"}`, err: emailverification.ErrTooManyAttempts, wantCode: http.StatusTooManyRequests, wantErr: "RATE_LIMITED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewHandler(&stubService{confirmErr: tt.err}), "/verify-code", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr == "" {
				assert.JSONEq(t, `{"success":true,"message":"Email verified successfully"}`, rec.Body.String())
				return
			}
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.wantErr+`"`)
		})
	}
}

func TestSendThenVerifyWithRealService(t *testing.T) {
	notifier := &notification.MockNotifier{}
	manager, err := notification.NewNotificationManager(notifier, notification.WithDefaultTemplates())
	require.NoError(t, err)
	service := emailverification.NewEmailVerificationService(
		emailverification.NewInMemoryEmailVerificationRepository(),
		manager,
		emailverification.WithClock(clockwork.NewFakeClock()),
		emailverification.WithCodeGenerator(func() (string, error) { return "654321", nil }),
	)
	h := NewHandler(service)

	rec := serve(h, "/send-verification", `{"email":"user@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, notifier.Delivered(), 1)

	rec = serve(h, "/verify-code", `{"email":"user@x.com","code":"111111"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, "/verify-code", `{"email":"user@x.com","code":"654321"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
