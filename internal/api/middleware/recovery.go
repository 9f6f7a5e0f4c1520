package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/chessgame-go/internal/api/apierr"
	"github.com/mcoot/chessgame-go/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Panics are reported as a JSON internal error.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// CORS creates cross-origin middleware for the API
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return middleware.CORS(allowedOrigins)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
