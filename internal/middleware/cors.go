package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var corsHandler = cors.Handler(cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
	ExposedHeaders: []string{"X-Request-ID"},
	MaxAge:         86400,
})

// CORS allows the static dashboard and local tooling to call the API.
func CORS(next http.Handler) http.Handler {
	return corsHandler(next)
}
