package redis

import (
	"encoding/json"
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
)

// record is the JSON document stored per session
type record struct {
	ID          string    `json:"id"`
	WhiteSecret string    `json:"white_secret"`
	BlackSecret string    `json:"black_secret,omitempty"`
	FEN         string    `json:"fen"`
	Moves       []string  `json:"moves"`
	Status      string    `json:"status"`
	Result      string    `json:"result,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func encodeSession(s *model.Session) ([]byte, error) {
	moves := s.Moves
	if moves == nil {
		moves = []string{}
	}
	return json.Marshal(record{
		ID:          string(s.ID),
		WhiteSecret: s.WhiteSecret,
		BlackSecret: s.BlackSecret,
		FEN:         s.Position,
		Moves:       moves,
		Status:      string(s.Status),
		Result:      string(s.Result),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	})
}

func decodeSession(data []byte) (*model.Session, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	moves := r.Moves
	if moves == nil {
		moves = []string{}
	}
	return &model.Session{
		ID:          model.SessionID(r.ID),
		WhiteSecret: r.WhiteSecret,
		BlackSecret: r.BlackSecret,
		Position:    r.FEN,
		Moves:       moves,
		Status:      model.Status(r.Status),
		Result:      model.Color(r.Result),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}
