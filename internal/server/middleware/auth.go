package middleware

import (
	"context"
	"net/http"

	"github.com/jean-voila/nexium/core"
	"github.com/jean-voila/nexium/internal/keycache"
)

type contextKey int

const loginContextKey contextKey = iota

// LoginFromContext returns the authenticated login stored by Authenticate.
func LoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(loginContextKey).(string)
	return login, ok
}

// Authenticate binds a request to an identity: it resolves a key for the
// `Login` header whose verification of the fixed sample string matches the
// decimal big-integer `Sig-Sample` header. On success it stores the login in
// the request context; on any failure it writes 401 and stops the chain.
func Authenticate(cache *keycache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			login := r.Header.Get("Login")
			sigDecimal := r.Header.Get("Sig-Sample")
			if login == "" || sigDecimal == "" {
				http.Error(w, "missing Login or Sig-Sample header", http.StatusUnauthorized)
				return
			}
			signature, ok := core.SignatureFromDecimal(sigDecimal)
			if !ok {
				http.Error(w, "malformed Sig-Sample", http.StatusUnauthorized)
				return
			}
			if _, ok := cache.FindKey(login, signature, []byte(core.SigSample)); !ok {
				http.Error(w, "signature did not verify under any published key", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), loginContextKey, login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
