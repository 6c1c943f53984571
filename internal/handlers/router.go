package handlers

import (
	"net/http"

	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/middleware"
)

// NewRouter assembles the HTTP surface with the standard middleware chain.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /capture", h.HandleCapture)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("/", h.HandleNotFound)

	chain := []func(http.Handler) http.Handler{
		middleware.Recovery,
		middleware.Logging,
		middleware.SecurityHeaders,
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins}),
	}
	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPM, cfg.TrustProxy)
		chain = append(chain, limiter.Middleware)
	}

	return middleware.Chain(chain...)(mux)
}
