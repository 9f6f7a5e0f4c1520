package storage

import (
	"context"
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
)

// DefaultListLimit is the number of sessions returned when no limit is given
const DefaultListLimit = 50

// Storage defines the interface for session persistence.
// Every mutating operation is atomic per session: concurrent writers are
// arbitrated here, not by callers.
type Storage interface {
	// CreateSession persists a new session
	CreateSession(ctx context.Context, session *model.Session) error

	// GetSession returns the session or model.ErrSessionNotFound
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)

	// ListSessions returns up to limit sessions, most recently created first
	ListSessions(ctx context.Context, limit int) ([]*model.Session, error)

	// JoinSession sets the second credential digest and activates the session,
	// only if no second player has joined. Fails with model.ErrAlreadyJoined otherwise.
	JoinSession(ctx context.Context, id model.SessionID, blackDigest string, at time.Time) (*model.Session, error)

	// UpdateSession writes position, moves, status, result and updated_at,
	// only while the stored session still matches expect. Fails with
	// model.ErrStaleSession otherwise.
	UpdateSession(ctx context.Context, session *model.Session, expect Expectation) error
}

// Expectation is the stored state an update was computed from
type Expectation struct {
	Status    model.Status
	MoveCount int
}

// ExpectationOf captures the current state of a loaded session
func ExpectationOf(s *model.Session) Expectation {
	return Expectation{Status: s.Status, MoveCount: len(s.Moves)}
}

// Matches reports whether the stored session is still the one the update saw
func (e Expectation) Matches(s *model.Session) bool {
	return s.Status == e.Status && len(s.Moves) == e.MoveCount
}

// NormalizeLimit clamps a caller supplied list limit
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
