package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*model.Session
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		sessions: make(map[model.SessionID]*model.Session),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *Storage) ListSessions(ctx context.Context, limit int) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit = storage.NormalizeLimit(limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Storage) JoinSession(ctx context.Context, id model.SessionID, blackDigest string, at time.Time) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	updated := session.Clone()
	if err := updated.Join(blackDigest, at); err != nil {
		return nil, err
	}
	s.sessions[id] = updated
	return updated.Clone(), nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expect storage.Expectation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	if !ok {
		return model.ErrSessionNotFound
	}
	if !expect.Matches(current) {
		return model.ErrStaleSession
	}

	updated := current.Clone()
	updated.Position = session.Position
	updated.Moves = append([]string{}, session.Moves...)
	updated.Status = session.Status
	updated.Result = session.Result
	updated.UpdatedAt = session.UpdatedAt
	s.sessions[session.ID] = updated
	return nil
}
