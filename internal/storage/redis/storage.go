package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Conditional writes use WATCH/MULTI so a concurrent writer aborts the
// transaction instead of being overwritten.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, s.cfg.SessionTTL)
	pipe.ZAdd(ctx, sessionsByCreatedKey(), redis.Z{
		Score:  float64(session.CreatedAt.UnixMicro()),
		Member: string(session.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return s.load(ctx, s.client, id)
}

func (s *Storage) ListSessions(ctx context.Context, limit int) ([]*model.Session, error) {
	limit = storage.NormalizeLimit(limit)

	// Over-fetch ids so that sessions expired by TTL don't shorten the page
	ids, err := s.client.ZRevRange(ctx, sessionsByCreatedKey(), 0, int64(limit*2)-1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(model.SessionID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, limit)
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // expired
		}
		session, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
		if len(sessions) == limit {
			break
		}
	}
	return sessions, nil
}

func (s *Storage) JoinSession(ctx context.Context, id model.SessionID, blackDigest string, at time.Time) (*model.Session, error) {
	key := sessionKey(id)
	var joined *model.Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		session, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := session.Join(blackDigest, at); err != nil {
			return err
		}
		if err := s.write(ctx, tx, session); err != nil {
			return err
		}
		joined = session
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// The only concurrent writer of a waiting session is another join
		return nil, model.ErrAlreadyJoined
	}
	if err != nil {
		return nil, err
	}
	return joined, nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expect storage.Expectation) error {
	key := sessionKey(session.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if !expect.Matches(current) {
			return model.ErrStaleSession
		}

		current.Position = session.Position
		current.Moves = append([]string{}, session.Moves...)
		current.Status = session.Status
		current.Result = session.Result
		current.UpdatedAt = session.UpdatedAt
		return s.write(ctx, tx, current)
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrStaleSession
	}
	return err
}

// getter is satisfied by both the client and a watched transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads a session through the client or a watched transaction
func (s *Storage) load(ctx context.Context, cmd getter, id model.SessionID) (*model.Session, error) {
	data, err := cmd.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession(data)
}

// write queues the session in a MULTI/EXEC block on the watched transaction
func (s *Storage) write(ctx context.Context, tx *redis.Tx, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, s.cfg.SessionTTL)
		return nil
	})
	return err
}
