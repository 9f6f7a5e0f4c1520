package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessgame-go/internal/credential"
)

const (
	whiteSecret = "11111111-1111-4111-8111-111111111111"
	blackSecret = "22222222-2222-4222-8222-222222222222"
	startFEN    = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

type SessionSuite struct {
	suite.Suite
	now     time.Time
	session *Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.session = NewSession("game-1", credential.Digest(whiteSecret), startFEN, s.now)
}

func (s *SessionSuite) join() {
	s.Require().NoError(s.session.Join(credential.Digest(blackSecret), s.now))
}

func (s *SessionSuite) TestNewSessionIsWaiting() {
	s.Equal(StatusWaiting, s.session.Status)
	s.False(s.session.HasBlack())
	s.NotNil(s.session.Moves)
	s.Empty(s.session.Moves)
	s.Nil(s.session.Winner())
}

func (s *SessionSuite) TestJoinActivates() {
	later := s.now.Add(time.Minute)
	err := s.session.Join(credential.Digest(blackSecret), later)
	s.Require().NoError(err)
	s.Equal(StatusActive, s.session.Status)
	s.True(s.session.HasBlack())
	s.Equal(later, s.session.UpdatedAt)
}

func (s *SessionSuite) TestJoinTwiceConflicts() {
	s.join()
	original := s.session.BlackSecret

	err := s.session.Join(credential.Digest("someone-else"), s.now)
	s.ErrorIs(err, ErrAlreadyJoined)
	s.Equal(original, s.session.BlackSecret)
}

func (s *SessionSuite) TestColorFor() {
	_, err := s.session.ColorFor(blackSecret)
	s.ErrorIs(err, ErrInvalidSecret, "black secret is unknown before join")

	s.join()

	c, err := s.session.ColorFor(whiteSecret)
	s.Require().NoError(err)
	s.Equal(White, c)

	c, err = s.session.ColorFor(blackSecret)
	s.Require().NoError(err)
	s.Equal(Black, c)

	_, err = s.session.ColorFor("33333333-3333-4333-8333-333333333333")
	s.ErrorIs(err, ErrInvalidSecret)
}

func (s *SessionSuite) TestApplyMoveRequiresActive() {
	err := s.session.ApplyMove("fen", "e4", TerminalOutcome{}, s.now)
	s.ErrorIs(err, ErrSessionNotActive)
	s.Empty(s.session.Moves)
}

func (s *SessionSuite) TestApplyMoveAppends() {
	s.join()

	s.Require().NoError(s.session.ApplyMove("fen-1", "e4", TerminalOutcome{}, s.now))
	s.Require().NoError(s.session.ApplyMove("fen-2", "e5", TerminalOutcome{}, s.now))

	s.Equal([]string{"e4", "e5"}, s.session.Moves)
	s.Equal("fen-2", s.session.Position)
	s.Equal(StatusActive, s.session.Status)
}

func (s *SessionSuite) TestApplyMoveTerminalOutcomes() {
	tests := []struct {
		name       string
		outcome    TerminalOutcome
		wantStatus Status
		wantResult Color
	}{
		{"checkmate by black", TerminalOutcome{Kind: OutcomeDecisive, Winner: Black}, StatusCheckmate, Black},
		{"draw", TerminalOutcome{Kind: OutcomeDraw}, StatusDraw, ""},
		{"stalemate", TerminalOutcome{Kind: OutcomeStalemate}, StatusStalemate, ""},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.join()

			s.Require().NoError(s.session.ApplyMove("fen", "Qh4#", tt.outcome, s.now))
			s.Equal(tt.wantStatus, s.session.Status)
			s.Equal(tt.wantResult, s.session.Result)
			s.True(s.session.Status.IsTerminal())

			err := s.session.ApplyMove("fen", "e4", TerminalOutcome{}, s.now)
			s.ErrorIs(err, ErrSessionNotActive)
			s.Len(s.session.Moves, 1)
		})
	}
}

func (s *SessionSuite) TestResign() {
	s.join()

	s.Require().NoError(s.session.Resign(White, s.now))
	s.Equal(StatusResigned, s.session.Status)
	s.Equal(Black, s.session.Result)

	s.ErrorIs(s.session.Resign(Black, s.now), ErrSessionNotActive)
	s.ErrorIs(s.session.Join("digest", s.now), ErrAlreadyJoined)
}

func (s *SessionSuite) TestResignWhileWaiting() {
	s.ErrorIs(s.session.Resign(White, s.now), ErrSessionNotActive)
	s.Equal(StatusWaiting, s.session.Status)
}

func (s *SessionSuite) TestCloneIsDeep() {
	s.join()
	s.Require().NoError(s.session.ApplyMove("fen", "e4", TerminalOutcome{}, s.now))

	c := s.session.Clone()
	c.Moves[0] = "d4"
	s.Equal("e4", s.session.Moves[0])
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusWaiting, StatusActive, true},
		{StatusWaiting, StatusCheckmate, false},
		{StatusActive, StatusActive, true},
		{StatusActive, StatusResigned, true},
		{StatusActive, StatusWaiting, false},
		{StatusCheckmate, StatusActive, false},
		{StatusResigned, StatusResigned, false},
		{StatusDraw, StatusWaiting, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}
