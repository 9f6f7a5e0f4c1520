package response

import (
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
)

// Game is the public projection of a session. Secrets are never included.
type Game struct {
	ID        string       `json:"id"`
	FEN       string       `json:"fen"`
	Moves     []string     `json:"moves"`
	Status    model.Status `json:"status"`
	Result    *model.Color `json:"result"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	HasBlack  bool         `json:"has_black"`
}

// GameFromModel converts a model.Session to a response Game
func GameFromModel(s *model.Session) Game {
	moves := s.Moves
	if moves == nil {
		moves = []string{}
	}
	return Game{
		ID:        string(s.ID),
		FEN:       s.Position,
		Moves:     moves,
		Status:    s.Status,
		Result:    s.Winner(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		HasBlack:  s.HasBlack(),
	}
}

// GamesFromModel converts a list of sessions
func GamesFromModel(sessions []*model.Session) []Game {
	result := make([]Game, len(sessions))
	for i, s := range sessions {
		result[i] = GameFromModel(s)
	}
	return result
}

// SeatResponse is returned when a player takes a seat, by creating or joining.
// It is the only time the secret is ever sent.
type SeatResponse struct {
	Game
	Secret string      `json:"secret"`
	Color  model.Color `json:"color"`
}

// MoveResponse is returned for an accepted move
type MoveResponse struct {
	Game
	Move       string   `json:"move"`
	SAN        string   `json:"san"`
	LegalMoves []string `json:"legal_moves"`
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
