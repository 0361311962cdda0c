package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	i, err := NewIssuer(testKey, "exchange", time.Hour)
	require.NoError(t, err)
	return i
}

func TestNewIssuer_RejectsShortKey(t *testing.T) {
	_, err := NewIssuer("short", "", 0)
	assert.ErrorIs(t, err, ErrSigningKey)

	i, err := NewIssuer(testKey, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, i.ttl)
}

func TestIssueVerify(t *testing.T) {
	i := newTestIssuer(t)

	token, exp, err := i.Issue(" user-1 ")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	sub, err := i.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	_, _, err = i.Issue("  ")
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestVerify_Rejects(t *testing.T) {
	i := newTestIssuer(t)
	good, _, err := i.Issue("u1")
	require.NoError(t, err)

	other, err := NewIssuer(strings.Repeat("z", 32), "", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue("u1")
	require.NoError(t, err)

	expiredIssuer := newTestIssuer(t)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIssuer.Issue("u1")
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  issuerName,
		Subject: "u1",
	}).SignedString([]byte(testKey))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":   "not-a-token",
		"wrong key": foreign,
		"expired":   expired,
		"no expiry": noExpiry,
		"tampered":  good[:len(good)-2] + "xx",
		"empty":     "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := i.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCheckExchangeSecret(t *testing.T) {
	i := newTestIssuer(t)
	assert.NoError(t, i.CheckExchangeSecret("exchange"))
	assert.ErrorIs(t, i.CheckExchangeSecret("wrong"), ErrExchangeSecret)
	assert.ErrorIs(t, i.CheckExchangeSecret(""), ErrExchangeSecret)

	disabled, err := NewIssuer(testKey, "", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, disabled.CheckExchangeSecret(""), ErrExchangeSecret)
}

func TestMiddleware(t *testing.T) {
	i := newTestIssuer(t)
	token, _, err := i.Issue("u1")
	require.NoError(t, err)

	var seen string
	h := i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "u1", seen)
			} else {
				assert.Empty(t, seen)
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	_, err := UserIDFromContext(context.Background())
	assert.Error(t, err)

	uid, err := UserIDFromContext(WithUserID(context.Background(), "u9"))
	require.NoError(t, err)
	assert.Equal(t, "u9", uid)
}
