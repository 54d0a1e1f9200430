package auth

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func deny(w http.ResponseWriter, status int, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Details: details})
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				deny(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			id, err := v.Verify(raw)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("token rejected")
				deny(w, http.StatusUnauthorized, "unauthorized", ErrInvalidToken.Error())
				return
			}

			ctx := WithIdentity(r.Context(), id)
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", id.UserID.String()).Str("role", string(id.Role))
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only callers with one of roles. It must run after
// Middleware.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized", ErrMissingToken.Error())
				return
			}
			if !slices.Contains(roles, id.Role) {
				deny(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
