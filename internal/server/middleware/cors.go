package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// CORS lets the dashboard read the API from another origin. methods are the
// methods the router serves and are advertised on preflight along with
// OPTIONS. An empty origin list or "*" allows every origin. Retry-After is
// exposed so a rate-limited page can back off.
func CORS(allowedOrigins, methods []string) func(http.Handler) http.Handler {
	advertised := slices.Clone(methods)
	if !slices.Contains(advertised, http.MethodOptions) {
		advertised = append(advertised, http.MethodOptions)
	}
	allowMethods := strings.Join(advertised, ", ")

	allowed := func(origin string) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		for _, o := range allowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")
			ok := allowed(origin)
			if ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Expose-Headers", "Retry-After")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if ok {
					w.Header().Set("Access-Control-Allow-Methods", allowMethods)
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
