package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/civicdesk/grievance/internal/auth"
)

type contextKey string

const (
	contextKeyIdentity    contextKey = "identity"
	contextKeyRequestInfo contextKey = "request_info"
)

// requestInfo is filled in by inner middleware and read by Logging after the handler returns.
type requestInfo struct {
	subject string
}

// Auth verifies the bearer credential and stores the identity in the context.
func Auth(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				message := "invalid credential"
				if errors.Is(err, auth.ErrMissingToken) {
					message = "missing credential"
				}
				writeError(w, http.StatusUnauthorized, "AUTH", message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole rejects identities without role. Must run after Auth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "missing credential")
				return
			}
			if !identity.HasRole(role) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "requires role "+role)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores identity in ctx.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if info, ok := ctx.Value(contextKeyRequestInfo).(*requestInfo); ok {
		info.subject = identity.Subject.String()
	}
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, contextKeyRequestInfo, info), info
}

// GetIdentity returns the verified identity, if any.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(auth.Identity)
	return identity, ok
}

// GetSubject returns the verified subject as a string, or "".
func GetSubject(ctx context.Context) string {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return ""
	}
	return identity.Subject.String()
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
