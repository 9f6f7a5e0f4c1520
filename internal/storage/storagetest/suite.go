// Package storagetest holds the behavioural contract every storage backend
// must satisfy. Backend test suites embed ContractSuite and set Storage in
// their SetupTest.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessgame-go/internal/credential"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ContractSuite exercises a storage.Storage implementation
type ContractSuite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
	Now     time.Time
}

// SessionID returns a deterministic UUID-shaped session identifier
func SessionID(n int) model.SessionID {
	return model.SessionID(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
}

// NewSession builds a waiting session created at the given offset from Now
func (s *ContractSuite) NewSession(n int, offset time.Duration) *model.Session {
	at := s.Now.Add(offset)
	return model.NewSession(SessionID(n), credential.Digest(fmt.Sprintf("white-%d", n)), startFEN, at)
}

func (s *ContractSuite) create(n int, offset time.Duration) *model.Session {
	session := s.NewSession(n, offset)
	s.Require().NoError(s.Storage.CreateSession(s.Ctx, session))
	return session
}

func (s *ContractSuite) TestCreateAndGetSession() {
	created := s.create(1, 0)

	got, err := s.Storage.GetSession(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal(created.WhiteSecret, got.WhiteSecret)
	s.Empty(got.BlackSecret)
	s.Equal(startFEN, got.Position)
	s.Equal(model.StatusWaiting, got.Status)
	s.NotNil(got.Moves)
	s.Empty(got.Moves)
	s.Empty(got.Result)
	s.True(created.CreatedAt.Equal(got.CreatedAt))
}

func (s *ContractSuite) TestGetSessionNotFound() {
	_, err := s.Storage.GetSession(s.Ctx, SessionID(404))
	s.ErrorIs(err, model.ErrSessionNotFound)

	_, err = s.Storage.GetSession(s.Ctx, "not-a-uuid")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ContractSuite) TestListSessionsRecentFirst() {
	s.create(1, 0)
	s.create(2, time.Minute)
	s.create(3, 2*time.Minute)

	sessions, err := s.Storage.ListSessions(s.Ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(SessionID(3), sessions[0].ID)
	s.Equal(SessionID(2), sessions[1].ID)

	all, err := s.Storage.ListSessions(s.Ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *ContractSuite) TestListSessionsEmpty() {
	sessions, err := s.Storage.ListSessions(s.Ctx, 10)
	s.Require().NoError(err)
	s.Empty(sessions)
}

func (s *ContractSuite) TestJoinSessionOnce() {
	created := s.create(1, 0)
	joinedAt := s.Now.Add(time.Minute)

	joined, err := s.Storage.JoinSession(s.Ctx, created.ID, credential.Digest("black-1"), joinedAt)
	s.Require().NoError(err)
	s.Equal(model.StatusActive, joined.Status)
	s.Equal(credential.Digest("black-1"), joined.BlackSecret)
	s.True(joinedAt.Equal(joined.UpdatedAt))

	_, err = s.Storage.JoinSession(s.Ctx, created.ID, credential.Digest("intruder"), joinedAt)
	s.ErrorIs(err, model.ErrAlreadyJoined)

	got, err := s.Storage.GetSession(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(credential.Digest("black-1"), got.BlackSecret)
}

func (s *ContractSuite) TestJoinSessionNotFound() {
	_, err := s.Storage.JoinSession(s.Ctx, SessionID(404), credential.Digest("black"), s.Now)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ContractSuite) TestConcurrentJoinsHaveOneWinner() {
	created := s.create(1, 0)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Storage.JoinSession(s.Ctx, created.ID, credential.Digest(fmt.Sprintf("black-%d", i)), s.Now)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, model.ErrAlreadyJoined)
	}
	s.Equal(1, wins)
}

func (s *ContractSuite) TestUpdateSession() {
	created := s.create(1, 0)
	joined, err := s.Storage.JoinSession(s.Ctx, created.ID, credential.Digest("black-1"), s.Now)
	s.Require().NoError(err)

	expect := storage.ExpectationOf(joined)
	joined.Position = "after-e4"
	joined.Moves = append(joined.Moves, "e4")
	joined.UpdatedAt = s.Now.Add(time.Minute)
	s.Require().NoError(s.Storage.UpdateSession(s.Ctx, joined, expect))

	got, err := s.Storage.GetSession(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal([]string{"e4"}, got.Moves)
	s.Equal("after-e4", got.Position)
	s.Equal(model.StatusActive, got.Status)
	s.Equal(credential.Digest("black-1"), got.BlackSecret)
	s.True(joined.UpdatedAt.Equal(got.UpdatedAt))
}

func (s *ContractSuite) TestUpdateSessionTerminal() {
	created := s.create(1, 0)
	joined, err := s.Storage.JoinSession(s.Ctx, created.ID, credential.Digest("black-1"), s.Now)
	s.Require().NoError(err)

	expect := storage.ExpectationOf(joined)
	s.Require().NoError(joined.Resign(model.White, s.Now))
	s.Require().NoError(s.Storage.UpdateSession(s.Ctx, joined, expect))

	got, err := s.Storage.GetSession(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusResigned, got.Status)
	s.Equal(model.Black, got.Result)
}

func (s *ContractSuite) TestUpdateSessionStale() {
	created := s.create(1, 0)
	joined, err := s.Storage.JoinSession(s.Ctx, created.ID, credential.Digest("black-1"), s.Now)
	s.Require().NoError(err)
	expect := storage.ExpectationOf(joined)

	first := joined.Clone()
	first.Moves = append(first.Moves, "e4")
	s.Require().NoError(s.Storage.UpdateSession(s.Ctx, first, expect))

	second := joined.Clone()
	second.Moves = append(second.Moves, "d4")
	err = s.Storage.UpdateSession(s.Ctx, second, expect)
	s.ErrorIs(err, model.ErrStaleSession)

	got, err := s.Storage.GetSession(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal([]string{"e4"}, got.Moves)
}

func (s *ContractSuite) TestUpdateSessionNotFound() {
	session := s.NewSession(404, 0)
	err := s.Storage.UpdateSession(s.Ctx, session, storage.ExpectationOf(session))
	s.ErrorIs(err, model.ErrSessionNotFound)
}
