//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/JaimeStill/attest/internal/cache"
	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/internal/workflow"
)

type RedisCacheSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
	cache     *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	addr, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	opts, err := redis.ParseURL(addr)
	s.Require().NoError(err)

	s.client = redis.NewClient(opts)
	s.cache = cache.NewRedis(s.client, "attest:test:", time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *RedisCacheSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	report := &workflow.Report{
		RunID:        uuid.New(),
		Filename:     "rimac.pdf",
		TotalPages:   2,
		Organization: "RIMAC",
		Verdict: verdict.FinalVerdict{
			Verdict:        true,
			Classification: verdict.Valid,
			Reason:         "ok",
		},
	}

	s.Require().NoError(s.cache.Set(ctx, "abc", report))

	got, err := s.cache.Get(ctx, "abc")
	s.Require().NoError(err)
	s.Equal(report.RunID, got.RunID)
	s.Equal(verdict.Valid, got.Verdict.Classification)

	ttl, err := s.client.TTL(ctx, "attest:test:abc").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisCacheSuite) TestMiss() {
	_, err := s.cache.Get(context.Background(), "absent")
	s.ErrorIs(err, cache.ErrMiss)
}

func (s *RedisCacheSuite) TestCorruptEntryIsDropped() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, "attest:test:bad", "{not json", time.Minute).Err())

	_, err := s.cache.Get(ctx, "bad")
	s.ErrorIs(err, cache.ErrMiss)

	n, err := s.client.Exists(ctx, "attest:test:bad").Result()
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RedisCacheSuite) TestPing() {
	s.NoError(s.cache.Ping(context.Background()))
}
