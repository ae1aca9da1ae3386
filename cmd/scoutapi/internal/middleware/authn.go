package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
)

// TokenParser turns a bearer token into the actor it names.
type TokenParser interface {
	Parse(token string) (auth.Actor, error)
}

// NewAuthnMiddleware resolves the bearer token of each request into an
// auth.Actor stored on the context. Requests without an Authorization header
// pass through anonymously; the services reject them where an actor is needed.
// A header that is present but invalid is rejected with 401.
func NewAuthnMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				unauthenticated(w, "authorization header must use the Bearer scheme")
				return
			}

			actor, err := tokens.Parse(token)
			if err != nil {
				slog.DebugContext(r.Context(), "rejected bearer token", "path", r.URL.Path, "error", err)
				unauthenticated(w, apperr.Detail(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetActorContext(r.Context(), actor)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthenticated(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="scoutapi"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "unauthorized"})
}
