//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kudose/internal/ratelimit/models"
	"kudose/internal/ratelimit/store/bucket"
	"kudose/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestBudgetSharedAcrossClients() {
	ctx := context.Background()
	limit := models.Limit{Requests: 5, Window: time.Hour}
	other := bucket.NewRedisBucketStore(s.redis.Client)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store := s.store
			if i%2 == 0 {
				store = other
			}
			r, err := store.Allow(ctx, "rl:seller_apply:p1", limit)
			s.NoError(err)
			if err == nil && r.Allowed {
				allowed.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(5), allowed.Load())
}

func (s *RedisBucketStoreSuite) TestWindowKeyExpires() {
	ctx := context.Background()
	limit := models.Limit{Requests: 1, Window: time.Minute}

	_, err := s.store.Allow(ctx, "rl:handle_confirm:p2", limit)
	s.Require().NoError(err)

	keys, err := s.redis.Client.Keys(ctx, "rl:handle_confirm:p2:*").Result()
	s.Require().NoError(err)
	s.Require().Len(keys, 1)
	ttl, err := s.redis.Client.TTL(ctx, keys[0]).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, limit.Window+time.Second)
}
