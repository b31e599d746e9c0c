// Package identitykey maps email addresses to canonical, storage-safe keys.
//
// Every record owned by accountd (verification codes, reset attempts) is
// indexed by the key returned from New. Keys are injective and reversible:
// Decode(New(email).Key) returns the normalized email.
package identitykey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidEmail is returned when the input cannot be an email address.
var ErrInvalidEmail = errors.New("invalid email address")

// ErrMalformedKey is returned by Decode for keys that were not produced by New.
var ErrMalformedKey = errors.New("malformed identity key")

// reserved are the characters the record path syntax does not allow, plus the
// escape character itself.
const reserved = "%.@$#[]/"

// Identity pairs a normalized email with its storage key.
type Identity struct {
	Key   string
	Email string
}

func (i Identity) String() string {
	return i.Key
}

// Normalize lower-cases and trims an email address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New normalizes email and derives its key. The email must contain "@".
func New(email string) (Identity, error) {
	normalized := Normalize(email)
	if normalized == "" || !strings.Contains(normalized, "@") {
		return Identity{}, ErrInvalidEmail
	}
	return Identity{Key: Key(normalized), Email: normalized}, nil
}

// Key escapes reserved characters of an already normalized email as %XX.
func Key(normalized string) string {
	var b strings.Builder
	b.Grow(len(normalized) + 8)
	for i := 0; i < len(normalized); i++ {
		c := normalized[i]
		if strings.IndexByte(reserved, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Decode reverses Key.
func Decode(key string) (string, error) {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if strings.IndexByte(reserved, c) >= 0 && c != '%' {
			return "", fmt.Errorf("%w: unescaped %q", ErrMalformedKey, c)
		}
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(key) {
			return "", fmt.Errorf("%w: truncated escape", ErrMalformedKey)
		}
		n, err := strconv.ParseUint(key[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		decoded := byte(n)
		// Only the exact form Key emits is accepted, so decoding stays one-to-one.
		if strings.IndexByte(reserved, decoded) < 0 || fmt.Sprintf("%%%02X", decoded) != key[i:i+3] {
			return "", fmt.Errorf("%w: unexpected escape %q", ErrMalformedKey, key[i:i+3])
		}
		b.WriteByte(decoded)
		i += 2
	}
	return b.String(), nil
}
