package model

import (
	"time"

	"github.com/mcoot/chessgame-go/internal/credential"
)

// SessionID uniquely identifies a game session
type SessionID string

// Color is one side of the board
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other color
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Session is a single game between two players.
// WhiteSecret and BlackSecret hold credential digests, never plaintext.
type Session struct {
	ID          SessionID
	WhiteSecret string
	BlackSecret string // Empty until the second player joins
	Position    string // FEN
	Moves       []string
	Status      Status
	Result      Color // Winner, empty for draws and unfinished games
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSession creates a waiting session owned by the holder of whiteDigest
func NewSession(id SessionID, whiteDigest, position string, now time.Time) *Session {
	return &Session{
		ID:          id,
		WhiteSecret: whiteDigest,
		Position:    position,
		Moves:       []string{},
		Status:      StatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasBlack returns true once the second player has joined
func (s *Session) HasBlack() bool {
	return s.BlackSecret != ""
}

// Winner returns the result as an optional color
func (s *Session) Winner() *Color {
	if s.Result == "" {
		return nil
	}
	c := s.Result
	return &c
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	c := *s
	c.Moves = append([]string{}, s.Moves...)
	return &c
}

// ColorFor resolves which side the secret belongs to
func (s *Session) ColorFor(secret string) (Color, error) {
	switch {
	case credential.Matches(secret, s.WhiteSecret):
		return White, nil
	case s.HasBlack() && credential.Matches(secret, s.BlackSecret):
		return Black, nil
	default:
		return "", ErrInvalidSecret
	}
}

// Join records the second player's credential digest and activates the session
func (s *Session) Join(blackDigest string, now time.Time) error {
	if s.HasBlack() {
		return ErrAlreadyJoined
	}
	if !s.Status.CanTransitionTo(StatusActive) {
		return ErrSessionNotActive
	}
	s.BlackSecret = blackDigest
	s.Status = StatusActive
	s.UpdatedAt = now
	return nil
}

// ApplyMove appends an admitted move and records any terminal outcome
func (s *Session) ApplyMove(position, notation string, outcome TerminalOutcome, now time.Time) error {
	if s.Status != StatusActive {
		return ErrSessionNotActive
	}
	status, winner := outcome.Status()
	s.Position = position
	s.Moves = append(s.Moves, notation)
	s.Status = status
	s.Result = winner
	s.UpdatedAt = now
	return nil
}

// Resign ends the session in favour of the opponent of color
func (s *Session) Resign(color Color, now time.Time) error {
	if s.Status != StatusActive {
		return ErrSessionNotActive
	}
	s.Status = StatusResigned
	s.Result = color.Opponent()
	s.UpdatedAt = now
	return nil
}
