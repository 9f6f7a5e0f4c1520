package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessgame-go/internal/api/handler"
	"github.com/mcoot/chessgame-go/internal/api/middleware"
	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	SessionController *session.Controller
	// Realtime serves /ws/games/{id}; the route is omitted when nil
	Realtime http.Handler
	// AllowedOrigins lists origins granted cross-origin access ("*" for any)
	AllowedOrigins []string
	// StorageType is reported by the health check
	StorageType string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	gameHandler := handler.NewGameHandler(cfg.SessionController, cfg.Logger)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/games", gameHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/join", gameHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/moves", gameHandler.Move).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/resign", gameHandler.Resign).Methods(http.MethodPost)

	api.HandleFunc("/health", healthHandler(cfg.StorageType)).Methods(http.MethodGet)

	if cfg.Realtime != nil {
		r.Handle("/ws/games/{id}", cfg.Realtime).Methods(http.MethodGet)
	}

	// Preflight requests never match a route, so CORS wraps the whole router
	return middleware.CORS(cfg.AllowedOrigins)(r)
}

func healthHandler(storageType string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, response.HealthResponse{
			Status:  "ok",
			Storage: storageType,
		})
	}
}
