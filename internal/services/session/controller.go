// Package session implements move admission: the lifecycle, turn-authority
// and identity rules for a two-player game, with every accepted change
// persisted once and published to the session's viewers.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/chessgame-go/internal/credential"
	"github.com/mcoot/chessgame-go/internal/dependencies/clock"
	"github.com/mcoot/chessgame-go/internal/dependencies/random"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/rules"
	"github.com/mcoot/chessgame-go/internal/storage"
)

// Publisher delivers events to the viewers of a session
type Publisher interface {
	Publish(id model.SessionID, event model.Event)
}

// Created is returned once when a session is created
type Created struct {
	Session *model.Session
	Secret  string // White's credential, never stored in plaintext
}

// Joined is returned once when the second player joins
type Joined struct {
	Session *model.Session
	Secret  string // Black's credential
}

// MoveOutcome describes an accepted move
type MoveOutcome struct {
	Session    *model.Session
	Move       string
	Notation   string
	LegalMoves []string
}

// Controller admits joins, moves and resignations against stored sessions
type Controller struct {
	storage   storage.Storage
	rules     rules.Engine
	publisher Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
}

// NewController creates a new Controller
func NewController(
	storage storage.Storage,
	rules rules.Engine,
	publisher Publisher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:   storage,
		rules:     rules,
		publisher: publisher,
		clock:     clock,
		random:    random,
		logger:    logger,
	}
}

// Create starts a new waiting session from the standard position
func (c *Controller) Create(ctx context.Context) (*Created, error) {
	id := model.SessionID(c.random.UUID().String())
	secret := c.random.UUID().String()

	session := model.NewSession(id, credential.Digest(secret), rules.StartingPosition, c.clock.Now())
	if err := c.storage.CreateSession(ctx, session); err != nil {
		c.logger.Error("failed to create session",
			slog.String("game_id", string(id)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Info("session created", slog.String("game_id", string(id)))
	return &Created{Session: session, Secret: secret}, nil
}

// Get retrieves a session by ID
func (c *Controller) Get(ctx context.Context, id model.SessionID) (*model.Session, error) {
	if !validID(id) {
		return nil, model.ErrSessionNotFound
	}
	return c.storage.GetSession(ctx, id)
}

// List returns recent sessions, newest first
func (c *Controller) List(ctx context.Context, limit int) ([]*model.Session, error) {
	return c.storage.ListSessions(ctx, storage.NormalizeLimit(limit))
}

// AdmitJoin seats the second player and activates the session.
// The returned secret is the only time black's credential is revealed.
func (c *Controller) AdmitJoin(ctx context.Context, id model.SessionID) (*Joined, error) {
	if !validID(id) {
		return nil, model.ErrSessionNotFound
	}

	secret := c.random.UUID().String()
	session, err := c.storage.JoinSession(ctx, id, credential.Digest(secret), c.clock.Now())
	if err != nil {
		return nil, err
	}

	// The seat is taken, so the secret must reach the caller even without legal moves
	legal, err := c.rules.LegalMoves(session.Position)
	if err != nil {
		c.logger.Error("failed to list legal moves after join",
			slog.String("game_id", string(id)),
			slog.String("error", err.Error()),
		)
		legal = []string{}
	}

	c.publisher.Publish(id, model.PlayerJoinedEvent{
		Color:      model.Black,
		FEN:        session.Position,
		Status:     session.Status,
		LegalMoves: legal,
	})

	c.logger.Info("player joined",
		slog.String("game_id", string(id)),
		slog.String("color", string(model.Black)),
	)
	return &Joined{Session: session, Secret: secret}, nil
}

// AdmitMove validates a move by the holder of secret and applies it.
// Nothing is written unless the move is accepted.
func (c *Controller) AdmitMove(ctx context.Context, id model.SessionID, move, secret string) (*MoveOutcome, error) {
	if !validID(id) {
		return nil, model.ErrSessionNotFound
	}

	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusActive {
		return nil, model.ErrSessionNotActive
	}

	toMove, err := c.rules.SideToMove(session.Position)
	if err != nil {
		return nil, err
	}
	color, err := session.ColorFor(secret)
	if err != nil {
		return nil, err
	}
	if color != toMove {
		return nil, model.ErrNotYourTurn
	}

	applied, err := c.rules.Apply(session.Position, move)
	if err != nil {
		return nil, err
	}
	outcome, err := c.rules.Outcome(applied.Position)
	if err != nil {
		return nil, err
	}
	legal, err := c.rules.LegalMoves(applied.Position)
	if err != nil {
		return nil, err
	}

	expect := storage.ExpectationOf(session)
	if err := session.ApplyMove(applied.Position, applied.Notation, outcome, c.clock.Now()); err != nil {
		return nil, err
	}
	if err := c.storage.UpdateSession(ctx, session, expect); err != nil {
		if !errors.Is(err, model.ErrStaleSession) {
			c.logger.Error("failed to save move",
				slog.String("game_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	c.publisher.Publish(id, model.MoveMadeEvent{
		Move:       applied.Move,
		SAN:        applied.Notation,
		FEN:        session.Position,
		Moves:      append([]string{}, session.Moves...),
		Status:     session.Status,
		Result:     session.Winner(),
		LegalMoves: legal,
	})
	if session.Status.IsTerminal() {
		c.publishGameOver(session)
	}

	c.logger.Info("move admitted",
		slog.String("game_id", string(id)),
		slog.String("color", string(color)),
		slog.String("move", applied.Move),
		slog.String("san", applied.Notation),
		slog.String("status", string(session.Status)),
	)

	return &MoveOutcome{
		Session:    session,
		Move:       applied.Move,
		Notation:   applied.Notation,
		LegalMoves: legal,
	}, nil
}

// AdmitResignation ends an active session in favour of the resigning
// player's opponent. Either player may resign regardless of turn.
func (c *Controller) AdmitResignation(ctx context.Context, id model.SessionID, secret string) (*model.Session, error) {
	if !validID(id) {
		return nil, model.ErrSessionNotFound
	}

	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusActive {
		return nil, model.ErrSessionNotActive
	}
	color, err := session.ColorFor(secret)
	if err != nil {
		return nil, err
	}

	expect := storage.ExpectationOf(session)
	if err := session.Resign(color, c.clock.Now()); err != nil {
		return nil, err
	}
	if err := c.storage.UpdateSession(ctx, session, expect); err != nil {
		if !errors.Is(err, model.ErrStaleSession) {
			c.logger.Error("failed to save resignation",
				slog.String("game_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	c.publishGameOver(session)

	c.logger.Info("player resigned",
		slog.String("game_id", string(id)),
		slog.String("color", string(color)),
	)
	return session, nil
}

// Snapshot builds the state sent to a newly opened connection.
// The opening connection always counts as white being present; black is
// reported present once someone has joined.
func (c *Controller) Snapshot(ctx context.Context, id model.SessionID) (model.GameStateEvent, error) {
	session, err := c.Get(ctx, id)
	if err != nil {
		return model.GameStateEvent{}, err
	}

	legal := []string{}
	if session.Status == model.StatusActive {
		legal, err = c.rules.LegalMoves(session.Position)
		if err != nil {
			return model.GameStateEvent{}, err
		}
	}

	return model.GameStateEvent{
		ID:             session.ID,
		FEN:            session.Position,
		Moves:          session.Moves,
		Status:         session.Status,
		Result:         session.Winner(),
		LegalMoves:     legal,
		WhiteConnected: true,
		BlackConnected: session.HasBlack(),
	}, nil
}

func (c *Controller) publishGameOver(session *model.Session) {
	c.publisher.Publish(session.ID, model.GameOverEvent{
		Status: session.Status,
		Result: session.Winner(),
	})
}

func validID(id model.SessionID) bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}
