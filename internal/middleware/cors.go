package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the browser client served from origin to call the API with a
// bearer token. Preflight requests are answered here and never reach the
// router's handlers.
func CORS(origin string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if origin == "" {
		// An empty list would mean any origin.
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}
