package identitykey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantKey string
		wantErr bool
	}{
		{name: "plain", email: "user@x.com", wantKey: "user%40x%2Ecom"},
		{name: "trims and lowercases", email: "  User@X.Com ", wantKey: "user%40x%2Ecom"},
		{name: "escapes percent", email: "a%b@x.io", wantKey: "a%25b%40x%2Eio"},
		{name: "escapes path characters", email: "a/b#c$d[e]@x.io", wantKey: "a%2Fb%23c%24d%5Be%5D%40x%2Eio"},
		{name: "missing at", email: "user.x.com", wantErr: true},
		{name: "blank", email: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := New(tt.email)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, id.Key)
			assert.Equal(t, Normalize(tt.email), id.Email)
		})
	}
}

func TestKeyIsInjective(t *testing.T) {
	// These pairs collide under the underscore and comma schemes that older
	// clients used.
	pairs := [][2]string{
		{"a.b@c.com", "a_b@c.com"},
		{"a_at_b@c.com", "a@b@c.com"},
		{"a,b@c.com", "a.b@c.com"},
		{"a%2Eb@c.com", "a.b@c.com"},
	}
	for _, p := range pairs {
		assert.NotEqual(t, Key(p[0]), Key(p[1]), "%s vs %s", p[0], p[1])
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, email := range []string{"user@x.com", "first.last+tag@sub.domain.org", "odd%$#[]/@x.io"} {
		got, err := Decode(Key(email))
		require.NoError(t, err)
		assert.Equal(t, email, got)
	}
}

func TestDecodeRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{
		"user_at_x_com.", // raw reserved character
		"user%40x%2",     // truncated escape
		"user%41x",       // escape of a character that is never escaped
		"user%40x%2ecom", // lower-case hex is not what Key emits
		"user%zzx",       // not hex
	} {
		_, err := Decode(key)
		assert.ErrorIs(t, err, ErrMalformedKey, key)
	}
}
