package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cjdreamy/M-kumbusha/internal/config"
)

// CORSMiddleware adds CORS headers to responses based on configuration and
// answers preflight requests itself.
func CORSMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowedOrigin := matchOrigin(cfg.AllowedOrigins, origin)

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				if allowedOrigin != "*" {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Add("Vary", "Origin")
				}

				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusOK)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(allowedOrigins []string, origin string) string {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if origin == "" {
				return "*"
			}
			return origin
		}
		if allowed == origin && origin != "" {
			return origin
		}
	}

	// Handle wildcard subdomains like *.example.com
	for _, allowed := range allowedOrigins {
		if strings.HasPrefix(allowed, "*.") && origin != "" {
			domain := allowed[1:]
			if strings.HasSuffix(origin, domain) {
				return origin
			}
		}
	}
	return ""
}
