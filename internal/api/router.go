package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/instagrab/internal/api/handler"
	mw "github.com/iconidentify/instagrab/internal/api/middleware"
)

// RouterOptions carries the startup configuration of the transport shell.
type RouterOptions struct {
	AllowedOrigins []string
	APIKey         string
	RequestTimeout time.Duration
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	resolveHandler *handler.ResolveHandler,
	proxyHandler *handler.ProxyHandler,
	healthHandler *handler.HealthHandler,
	opts RouterOptions,
) *chi.Mux {
	r := chi.NewRouter()

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	// Health endpoints (no auth)
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Live)

	// Resolve is called by the frontend with credentials, so origins are explicit
	r.Group(func(r chi.Router) {
		r.Use(mw.CORS(mw.CORSOptions{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   "GET, POST, OPTIONS",
			AllowedHeaders:   "Content-Type, Authorization, X-API-Key",
			AllowCredentials: true,
		}))
		r.Options("/download", preflight)

		r.With(mw.APIKeyAuth(opts.APIKey)).Post("/download", resolveHandler.Resolve)
		r.With(mw.APIKeyAuth(opts.APIKey)).Get("/stats", healthHandler.Stats)
	})

	// Proxied media is consumed by <img> and <video> tags from any origin
	r.Group(func(r chi.Router) {
		r.Use(mw.CORS(mw.CORSOptions{AllowedOrigins: []string{"*"}}))
		r.Options("/proxy-image", preflight)

		r.With(mw.APIKeyAuth(opts.APIKey)).Get("/proxy-image", proxyHandler.Proxy)
	})

	return r
}

// preflight is only reached if the CORS middleware lets OPTIONS through.
func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
