package server

import (
	"context"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the host user the request acts for
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyAdmin is true when the host token carries the admin claim
	ContextKeyAdmin ContextKey = "admin"
)

// HostClaims are the claims of the bearer token the host application signs
// for every call: the subject is the host user id.
type HostClaims struct {
	Admin bool `json:"admin,omitempty"`
	jwtlib.RegisteredClaims
}

// RequireHostUser validates the HS256 bearer token minted by the host and
// injects the user id into the request context.
func (s *Server) RequireHostUser() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				writeJSONError(w, "missing host identity", http.StatusUnauthorized)
				return
			}

			claims := &HostClaims{}
			_, err := jwtlib.ParseWithClaims(parts[1], claims, func(*jwtlib.Token) (any, error) {
				return s.hostSecret, nil
			}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(s.nowTime))
			if err != nil {
				log.Debug().Err(err).Msg("rejected host token")
				writeJSONError(w, "invalid host identity", http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" {
				writeJSONError(w, "invalid host identity", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyAdmin, claims.Admin)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAdmin must be chained after RequireHostUser.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if admin, _ := r.Context().Value(ContextKeyAdmin).(bool); !admin {
				writeJSONError(w, "Admin access required", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

func userIDFrom(r *http.Request) string {
	userID, _ := r.Context().Value(ContextKeyUserID).(string)
	return userID
}
