package notification

import (
	"context"
	"sync"
)

// MockNotifier records sent emails. FailTimes makes the first N sends return Err.
type MockNotifier struct {
	mu        sync.Mutex
	Sent      []Email
	Err       error
	FailTimes int
	calls     int
}

func (m *MockNotifier) Send(ctx context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil && (m.FailTimes == 0 || m.calls <= m.FailTimes) {
		return m.Err
	}
	m.Sent = append(m.Sent, email)
	return nil
}

// Calls returns how many times Send was invoked.
func (m *MockNotifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Delivered returns a copy of the successfully sent emails.
func (m *MockNotifier) Delivered() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.Sent))
	copy(out, m.Sent)
	return out
}
