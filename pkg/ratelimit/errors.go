package ratelimit

import "errors"

// ErrNotFound is returned when no attempt log exists for a key.
var ErrNotFound = errors.New("attempt log not found")
