package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestResendRetryDelay(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
		retry   bool
	}{
		{"retry-after honored", &resend.RateLimitError{RetryAfter: "5"}, 0, 5 * time.Second, true},
		{"retry-after capped", &resend.RateLimitError{RetryAfter: "120"}, 0, 30 * time.Second, true},
		{"retry-after missing", &resend.RateLimitError{}, 2, 3 * time.Second, true},
		{"retry-after garbage", &resend.RateLimitError{RetryAfter: "soon"}, 0, time.Second, true},
		{"wrapped rate limit", fmt.Errorf("send: %w", &resend.RateLimitError{RetryAfter: "2"}), 0, 2 * time.Second, true},
		{"network timeout", timeoutError{}, 1, time.Second, true},
		{"plain error", errors.New("[ERROR]: invalid from"), 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, retry := resendRetryDelay(tt.err, tt.attempt)
			assert.Equal(t, tt.retry, retry)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewResendNotifierValidation(t *testing.T) {
	_, err := NewResendNotifier("", "noreply@eduverse.app")
	assert.Error(t, err)
	_, err = NewResendNotifier("re_test", "")
	assert.Error(t, err)

	n, err := NewResendNotifier("re_test", "noreply@eduverse.app")
	require.NoError(t, err)
	assert.Equal(t, 1, n.maxRetries)
	assert.ErrorContains(t, n.Send(context.Background(), Email{Subject: "s", Text: "t"}), "'To' address")

	n, err = NewResendNotifier("re_test", "noreply@eduverse.app", WithResendRetries(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n.maxRetries)
}

func newResendTestServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL + "/"
}

func TestResendNotifierSingleAttemptByDefault(t *testing.T) {
	var calls atomic.Int32
	base := newResendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("retry-after", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	n, err := NewResendNotifier("re_test", "noreply@eduverse.app")
	require.NoError(t, err)
	n.client.BaseURL, err = url.Parse(base)
	require.NoError(t, err)

	err = n.Send(context.Background(), Email{To: "jane@example.com", Subject: "s", Text: "t"})
	var rateLimitErr *resend.RateLimitError
	require.ErrorAs(t, err, &rateLimitErr)
	assert.Equal(t, "1", rateLimitErr.RetryAfter)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResendNotifierOptInRetries(t *testing.T) {
	var calls atomic.Int32
	var idempotencyKeys []string
	base := newResendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		idempotencyKeys = append(idempotencyKeys, r.Header.Get("Idempotency-Key"))
		if calls.Add(1) == 1 {
			w.Header().Set("retry-after", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	})

	n, err := NewResendNotifier("re_test", "noreply@eduverse.app", WithResendRetries(2))
	require.NoError(t, err)
	n.client.BaseURL, err = url.Parse(base)
	require.NoError(t, err)

	err = n.Send(context.Background(), Email{To: "jane@example.com", Subject: "s", Text: "t", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"k1", "k1"}, idempotencyKeys)
}
