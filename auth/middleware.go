package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/config"
	"github.com/user/quizcraft-go/identity"
)

// ContextKey is a type used for context keys to avoid collisions.
type ContextKey string

const (
	// IdentityIDKey is the key under which the authenticated identity id is
	// stored in the request context.
	IdentityIDKey ContextKey = "identityID"
)

// JWTMiddleware verifies the Bearer access token and adds the identity id to
// the request context. Tokens are HS256, signed with the shared secret; the
// token_type claim must be "access" so refresh tokens cannot authenticate
// requests.
func JWTMiddleware(cfg *config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, r, nil, apperror.NewAuthError("Authorization header is missing", nil))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteError(w, r, nil, apperror.NewAuthError("Authorization header format must be Bearer {token}", nil))
				return
			}

			tokenString := parts[1]
			claims := &identity.Claims{}

			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrSignatureInvalid) {
					WriteError(w, r, nil, apperror.NewAuthError("Invalid token signature", nil))
					return
				}
				WriteError(w, r, nil, apperror.NewAuthError("Invalid token", err))
				return
			}
			if !token.Valid {
				WriteError(w, r, nil, apperror.NewAuthError("Invalid token", nil))
				return
			}
			if claims.TokenType != "access" {
				WriteError(w, r, nil, apperror.NewAuthError("Invalid token: not an access token", nil))
				return
			}
			if claims.Subject == "" {
				WriteError(w, r, nil, apperror.NewAuthError("Invalid token: subject claim is missing", nil))
				return
			}

			ctx := context.WithValue(r.Context(), IdentityIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated identity id set by
// JWTMiddleware. Returns "" and false if none is present.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(IdentityIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
