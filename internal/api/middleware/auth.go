package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
)

// APIKeyAuth creates a middleware that validates API key authentication.
// An empty apiKey disables the check.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check X-API-Key header
			key := r.Header.Get("X-API-Key")
			if key == "" {
				auth := r.Header.Get("Authorization")
				if len(auth) > 7 && auth[:7] == "Bearer " {
					key = auth[7:]
				}
			}
			if key == "" {
				// Query parameter, so <img src> and <video src> can carry the key
				key = r.URL.Query().Get("key")
			}
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}

			if key == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"missing API key"}`))
				return
			}

			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid API key"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSOptions configures the CORS middleware.
type CORSOptions struct {
	// AllowedOrigins lists exact origins. "*" allows any origin without credentials.
	AllowedOrigins   []string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials bool
	MaxAge           int
}

// AllowsAny reports whether the options contain the wildcard origin.
func (o CORSOptions) AllowsAny() bool {
	for _, origin := range o.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (o CORSOptions) allows(origin string) bool {
	for _, allowed := range o.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// CORS adds CORS headers according to opts and answers preflight requests with 204.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	if opts.AllowedMethods == "" {
		opts.AllowedMethods = "GET, POST, OPTIONS"
	}
	if opts.AllowedHeaders == "" {
		opts.AllowedHeaders = "*"
	}
	wildcard := opts.AllowsAny()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && opts.allows(origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				if opts.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			default:
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", opts.AllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", opts.AllowedHeaders)
			if opts.MaxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
