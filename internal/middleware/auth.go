package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/studydesk/studydesk-api/internal/crypto"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenHeader is the legacy header some clients send the raw token in.
const TokenHeader = "x-auth-token"

// JWTAuth returns middleware that requires a valid token. The token is taken
// from "Authorization: Bearer <token>" (scheme matched case-insensitively),
// falling back to the x-auth-token header.
func JWTAuth(tokens *crypto.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := tokenFromRequest(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "no token, authorization denied")
				return
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				msg := "token is not valid"
				if errors.Is(err, crypto.ErrTokenExpired) {
					msg = "token has expired"
				}
				writeJSONError(w, http.StatusUnauthorized, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, _ := strings.Cut(strings.TrimSpace(authHeader), " ")
		token = strings.TrimSpace(token)
		return token, strings.EqualFold(scheme, "Bearer") && token != ""
	}

	token := strings.TrimSpace(r.Header.Get(TokenHeader))
	return token, token != ""
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
