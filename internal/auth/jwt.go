// Package auth exchanges an identity-provider user id for a signed session
// token and verifies that token on every API request.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// ExchangeSecretHeader carries the shared secret on token exchange requests.
const ExchangeSecretHeader = "X-Exchange-Secret"

const (
	issuerName = "finanzas"
	DefaultTTL = 24 * time.Hour
)

var (
	ErrMissingToken   = errors.New("missing auth token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrEmptyUserID    = errors.New("empty user id")
	ErrSigningKey     = errors.New("signing key must be at least 32 bytes")
	ErrExchangeSecret = errors.New("invalid exchange secret")
)

// Issuer mints and verifies HS256 session tokens.
type Issuer struct {
	key            []byte
	exchangeSecret string
	ttl            time.Duration
	now            func() time.Time
}

// NewIssuer returns an Issuer. A zero ttl means DefaultTTL. An empty
// exchangeSecret disables token exchange over HTTP.
func NewIssuer(signingKey, exchangeSecret string, ttl time.Duration) (*Issuer, error) {
	if len(signingKey) < 32 {
		return nil, ErrSigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		key:            []byte(signingKey),
		exchangeSecret: exchangeSecret,
		ttl:            ttl,
		now:            time.Now,
	}, nil
}

// Issue signs a token whose subject is userID.
func (i *Issuer) Issue(userID string) (token string, expiresAt time.Time, err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, ErrEmptyUserID
	}
	now := i.now()
	expiresAt = now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuerName,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the signature, issuer and expiry and returns the subject.
func (i *Issuer) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.key, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// CheckExchangeSecret compares the presented secret in constant time.
func (i *Issuer) CheckExchangeSecret(presented string) error {
	if i.exchangeSecret == "" || presented == "" {
		return ErrExchangeSecret
	}
	if subtle.ConstantTimeCompare([]byte(i.exchangeSecret), []byte(presented)) != 1 {
		return ErrExchangeSecret
	}
	return nil
}

// Middleware requires a valid bearer token and stores its subject in the
// request context.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			unauthorized(w, ErrMissingToken)
			return
		}

		userID, err := i.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			slog.DebugContext(r.Context(), "Rejected bearer token",
				"path", r.URL.Path,
				"error", err)
			unauthorized(w, ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="finanzas"`)
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, "{\"error\":%q}\n", err.Error())
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", errors.New("user not authenticated")
	}
	return uid, nil
}
