package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS allows browser clients served from origins to call the API. An empty
// list allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", TokenHeader}),
		handlers.ExposedHeaders([]string{"Retry-After"}),
		handlers.MaxAge(600),
	)
}
