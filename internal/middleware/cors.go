package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// Defaults for the read-only API.
var (
	DefaultCORSMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	DefaultCORSHeaders = []string{"Content-Type", RequestIDHeader}
	DefaultCORSExposed = []string{RequestIDHeader, SnapshotAgeHeader}
)

// SnapshotAgeHeader is set when a response is served from the snapshot cache.
const SnapshotAgeHeader = "X-Snapshot-Age"

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string // explicit origins, no wildcards
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         int // preflight cache duration in seconds
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Only explicitly listed origins are allowed. If AllowedOrigins is empty the
// middleware is a no-op. Empty method, header and exposed lists fall back to
// the package defaults. Credentials are never allowed; the API is public and
// unauthenticated.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowedOriginsMap := make(map[string]bool)
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOriginsMap[origin] = true
		}
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = DefaultCORSMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = DefaultCORSHeaders
	}
	exposed := cfg.ExposedHeaders
	if len(exposed) == 0 {
		exposed = DefaultCORSExposed
	}
	allowedMethodsStr := strings.Join(methods, ", ")
	allowedHeadersStr := strings.Join(headers, ", ")
	exposedHeadersStr := strings.Join(exposed, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedOriginsMap) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			if !allowedOriginsMap[origin] {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", allowedMethodsStr)
				w.Header().Set("Access-Control-Allow-Headers", allowedHeadersStr)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			w.Header().Set("Access-Control-Expose-Headers", exposedHeadersStr)
			next.ServeHTTP(w, r)
		})
	}
}
