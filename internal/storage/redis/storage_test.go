package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessgame-go/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.ContractSuite
	mini  *miniredis.Miniredis
	redis *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.redis = NewWithClient(client, DefaultConfig())
	s.Storage = s.redis
	s.Ctx = context.Background()
	s.Now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestSessionStoredUnderPrefixedKey() {
	session := s.NewSession(1, 0)
	s.Require().NoError(s.redis.CreateSession(s.Ctx, session))

	s.True(s.mini.Exists("chessgame:session:" + string(session.ID)))
	members, err := s.mini.ZMembers("chessgame:idx:sessions_by_created")
	s.Require().NoError(err)
	s.Equal([]string{string(session.ID)}, members)
}

func (s *StorageSuite) TestSessionTTLApplied() {
	s.redis.cfg.SessionTTL = time.Hour
	session := s.NewSession(1, 0)
	s.Require().NoError(s.redis.CreateSession(s.Ctx, session))

	s.Equal(time.Hour, s.mini.TTL("chessgame:session:"+string(session.ID)))
}

func (s *StorageSuite) TestListSkipsExpiredSessions() {
	s.redis.cfg.SessionTTL = time.Hour
	s.Require().NoError(s.redis.CreateSession(s.Ctx, s.NewSession(1, 0)))
	s.Require().NoError(s.redis.CreateSession(s.Ctx, s.NewSession(2, time.Minute)))

	s.mini.Del("chessgame:session:" + string(storagetest.SessionID(2)))

	sessions, err := s.redis.ListSessions(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(storagetest.SessionID(1), sessions[0].ID)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	cfg := DefaultConfig()
	cfg.URL = "not a url"
	_, err := New(cfg)
	s.Error(err)
}

func (s *StorageSuite) TestNewConnects() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()
	store, err := New(cfg)
	s.Require().NoError(err)
	s.NoError(store.Close())
}
