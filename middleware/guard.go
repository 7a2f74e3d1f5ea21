package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lgcovizzi/authcore"
)

type introspectionContextKey struct{}

// IntrospectionFromContext recovers the validated claims Guard stored.
func IntrospectionFromContext(ctx context.Context) (*authcore.Introspection, bool) {
	intro, ok := ctx.Value(introspectionContextKey{}).(*authcore.Introspection)
	return intro, ok
}

// Guard rejects requests whose bearer token fails Engine.Validate and
// stores the introspection in the context for the wrapped handler.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			intro, err := engine.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), introspectionContextKey{}, intro)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole wraps Guard with a role check: the validated token must
// carry the named role or the request ends with 403.
func RequireRole(engine *authcore.Engine, role string) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			intro, ok := IntrospectionFromContext(r.Context())
			if !ok || !hasRole(intro.Roles, role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
