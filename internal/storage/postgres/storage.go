package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

const sessionColumns = "id, white_secret, black_secret, fen, moves, status, result, created_at, updated_at"

// Storage is a PostgreSQL-backed implementation of the storage interface.
// It is the system of record: joins and updates are single conditional
// UPDATE statements so the database arbitrates concurrent writers.
type Storage struct {
	db *sql.DB
}

// Open connects to PostgreSQL, retrying with backoff, and runs migrations
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ping(ctx, db, cfg, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB creates a storage over an existing, migrated connection pool
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func ping(ctx context.Context, db *sql.DB, cfg Config, logger *slog.Logger) error {
	var err error
	for attempt := 0; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= len(cfg.ConnectBackoff) {
			return fmt.Errorf("connect to postgres after %d attempts: %w", attempt+1, err)
		}

		wait := cfg.ConnectBackoff[attempt]
		logger.Warn("postgres not ready, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (s *Storage) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY,
			white_secret TEXT NOT NULL,
			black_secret TEXT,
			fen TEXT NOT NULL,
			moves TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'waiting' CHECK (status IN ('waiting','active','checkmate','stalemate','draw','resigned')),
			result TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		"CREATE INDEX IF NOT EXISTS idx_games_created_at ON games(created_at DESC);",
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO games ("+sessionColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		string(session.ID),
		session.WhiteSecret,
		nullString(session.BlackSecret),
		session.Position,
		pq.StringArray(movesOf(session)),
		string(session.Status),
		nullString(string(session.Result)),
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	if !validID(id) {
		return nil, model.ErrSessionNotFound
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM games WHERE id = $1", string(id))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	return session, err
}

func (s *Storage) ListSessions(ctx context.Context, limit int) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM games ORDER BY created_at DESC, id DESC LIMIT $1",
		storage.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := []*model.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Storage) JoinSession(ctx context.Context, id model.SessionID, blackDigest string, at time.Time) (*model.Session, error) {
	if !validID(id) {
		return nil, model.ErrSessionNotFound
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE games SET black_secret = $2, status = 'active', updated_at = $3
		 WHERE id = $1 AND black_secret IS NULL AND status = 'waiting'
		 RETURNING `+sessionColumns,
		string(id), blackDigest, at,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either missing or already joined
		if _, getErr := s.GetSession(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, model.ErrAlreadyJoined
	}
	return session, err
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expect storage.Expectation) error {
	if !validID(session.ID) {
		return model.ErrSessionNotFound
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET fen = $2, moves = $3, status = $4, result = $5, updated_at = $6
		 WHERE id = $1 AND status = $7 AND cardinality(moves) = $8`,
		string(session.ID),
		session.Position,
		pq.StringArray(movesOf(session)),
		string(session.Status),
		nullString(string(session.Result)),
		session.UpdatedAt,
		string(expect.Status),
		expect.MoveCount,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := s.GetSession(ctx, session.ID); getErr != nil {
			return getErr
		}
		return model.ErrStaleSession
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		session model.Session
		id      string
		black   sql.NullString
		moves   pq.StringArray
		status  string
		result  sql.NullString
	)
	if err := row.Scan(&id, &session.WhiteSecret, &black, &session.Position, &moves, &status, &result, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}

	session.ID = model.SessionID(id)
	session.BlackSecret = black.String
	session.Moves = []string(moves)
	if session.Moves == nil {
		session.Moves = []string{}
	}
	session.Status = model.Status(status)
	session.Result = model.Color(result.String)
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	return &session, nil
}

// validID rejects ids the uuid column would refuse to compare
func validID(id model.SessionID) bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

func movesOf(session *model.Session) []string {
	if session.Moves == nil {
		return []string{}
	}
	return session.Moves
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
