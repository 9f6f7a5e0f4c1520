package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session is not active")
	ErrAlreadyJoined    = errors.New("session already has two players")
	ErrStaleSession     = errors.New("session changed concurrently")

	// Identity and turn errors
	ErrInvalidSecret = errors.New("secret matches neither player")
	ErrNotYourTurn   = errors.New("not this player's turn")

	// Board-rule errors
	ErrInvalidMove     = errors.New("invalid UCI move")
	ErrIllegalMove     = errors.New("illegal move")
	ErrInvalidPosition = errors.New("invalid FEN")

	// Command errors
	ErrUnknownCommand = errors.New("unknown command type")
)

// MoveError ties a board-rule rejection to the move text that caused it
type MoveError struct {
	Err  error
	Move string
}

// Error implements error interface
func (e *MoveError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Move)
}

// Unwrap exposes the underlying sentinel
func (e *MoveError) Unwrap() error {
	return e.Err
}
