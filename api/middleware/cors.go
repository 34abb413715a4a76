package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the configured origin policy. The checkout page and the admin
// dashboard are served from other origins than the API.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Checkout-Session", "X-Webhook-Token", "X-Requested-With"},
		ExposedHeaders:   []string{requestIDHeader, replayedHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}).Handler
}
