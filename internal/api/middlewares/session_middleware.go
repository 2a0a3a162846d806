package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// NewSessionToken issues a signed token carrying the session ID. Sessions
// are anonymous; the token only proves the caller created the session.
func NewSessionToken(secret, sessionID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID,
		"iat":        time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

// SessionMiddleware validates the Authorization header and attaches the
// session ID to the request context. exists lets the middleware reject
// tokens for sessions the server no longer holds.
func SessionMiddleware(secret string, exists func(string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing or invalid token", http.StatusUnauthorized)
				return
			}

			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			sessionID, ok := claims["session_id"].(string)
			if !ok || sessionID == "" {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}
			if exists != nil && !exists(sessionID) {
				http.Error(w, "unknown session", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID extracts the session ID placed by SessionMiddleware.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}
