package httpapi

import (
	"net/http"
	"strings"

	"github.com/R3E-Network/auction_layer/pkg/logger"
)

// WrapWithAuth requires a bearer token from tokens on every route except
// health and metrics. An empty token set disables authentication.
func WrapWithAuth(next http.Handler, tokens []string, log *logger.Logger) http.Handler {
	if len(tokens) == 0 {
		return next
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}

	allowed := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token != "" {
			allowed[token] = struct{}{}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if _, ok := allowed[token]; !ok {
			log.WithField("path", r.URL.Path).Warn("rejected unauthenticated request")
			w.Header().Set("WWW-Authenticate", "Bearer")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
