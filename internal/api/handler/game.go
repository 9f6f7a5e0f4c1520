package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessgame-go/internal/api/apierr"
	"github.com/mcoot/chessgame-go/internal/api/request"
	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/services/session"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	controller *session.Controller
	logger     *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(controller *session.Controller, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		controller: controller,
		logger:     logger,
	}
}

// fail writes err to the client. Errors the client only sees as a generic
// 500 are logged here with their detail.
func (h *GameHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apierr.IsInternal(err) {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	WriteError(w, err)
}

// Create handles POST /api/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	created, err := h.controller.Create(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, "/api/games/"+string(created.Session.ID), response.SeatResponse{
		Game:   response.GameFromModel(created.Session),
		Secret: created.Secret,
		Color:  model.White,
	})
}

// List handles GET /api/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	sessions, err := h.controller.List(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GamesFromModel(sessions))
}

// Get handles GET /api/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.controller.Get(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(s))
}

// Join handles POST /api/games/{id}/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	joined, err := h.controller.AdmitJoin(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SeatResponse{
		Game:   response.GameFromModel(joined.Session),
		Secret: joined.Secret,
		Color:  model.Black,
	})
}

// Move handles POST /api/games/{id}/moves
func (h *GameHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req request.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid JSON"))
		return
	}
	if req.Move == "" || req.Secret == "" {
		WriteError(w, NewInvalidRequestError("move and secret are required"))
		return
	}

	outcome, err := h.controller.AdmitMove(r.Context(), gameID(r), req.Move, req.Secret)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MoveResponse{
		Game:       response.GameFromModel(outcome.Session),
		Move:       outcome.Move,
		SAN:        outcome.Notation,
		LegalMoves: outcome.LegalMoves,
	})
}

// Resign handles POST /api/games/{id}/resign
func (h *GameHandler) Resign(w http.ResponseWriter, r *http.Request) {
	var req request.ResignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid JSON"))
		return
	}
	if req.Secret == "" {
		WriteError(w, NewInvalidRequestError("secret is required"))
		return
	}

	s, err := h.controller.AdmitResignation(r.Context(), gameID(r), req.Secret)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(s))
}

func gameID(r *http.Request) model.SessionID {
	return model.SessionID(mux.Vars(r)["id"])
}
