package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jiwuchat/jiwuchat-shell/internal/httputil"
)

const (
	instanceIssuer   = "jiwuchat-shell"
	instanceTokenTTL = time.Minute
)

// NewInstanceSecret returns a random HMAC key for one running shell.
func NewInstanceSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate instance secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IssueInstanceToken signs a short-lived token a local process presents to
// the running shell.
func IssueInstanceToken(secret, subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    instanceIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(instanceTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// InstanceAuth requires a bearer token signed with secret. Only processes
// that can read the instance file know it. An empty secret rejects everything.
func InstanceAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				httputil.ErrorWithCode(w, http.StatusUnauthorized, "forwarding disabled")
				return
			}
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.ErrorWithCode(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				httputil.ErrorWithCode(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
				return []byte(secret), nil
			},
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
				jwt.WithIssuer(instanceIssuer),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				httputil.ErrorWithCode(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
