package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	adminservice "kudose/internal/admin/service"
	adminstore "kudose/internal/admin/store"
	"kudose/internal/platform/config"
	"kudose/internal/platform/kafka"
	platformmetrics "kudose/internal/platform/metrics"
	"kudose/internal/platform/postgres"
	"kudose/internal/platform/redis"
	profileservice "kudose/internal/profile/service"
	profilestore "kudose/internal/profile/store"
	ratelimitmetrics "kudose/internal/ratelimit/metrics"
	ratelimitmodels "kudose/internal/ratelimit/models"
	ratelimitservice "kudose/internal/ratelimit/service"
	"kudose/internal/ratelimit/store/bucket"
	sellerservice "kudose/internal/seller/service"
	sellerstore "kudose/internal/seller/store"
	audit "kudose/pkg/platform/audit"
	auditmemory "kudose/pkg/platform/audit/store/memory"
	auditpostgres "kudose/pkg/platform/audit/store/postgres"
	"kudose/pkg/platform/audit/worker"
	"kudose/pkg/platform/circuit"
)

type applicationStore interface {
	sellerservice.Store
	adminservice.ApplicationReader
}

// infra is the storage and messaging layer selected by configuration.
type infra struct {
	mode         string
	profiles     profileservice.Store
	applications applicationStore
	decisions    adminservice.DecisionTx
	auditStore   audit.Store
	redis        *redis.Client
	relay        *worker.Relay
	healthChecks map[string]func(ctx context.Context) error
	closers      []func()
}

func (i *infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
}

func buildInfra(ctx context.Context, cfg config.Server, log *slog.Logger, m *platformmetrics.Metrics) (*infra, error) {
	in := &infra{healthChecks: map[string]func(ctx context.Context) error{}}

	if cfg.DatabaseURL == "" {
		buildMemory(in)
		log.Warn("DATABASE_URL not set, using in-memory stores")
	} else if err := buildPostgres(ctx, in, cfg); err != nil {
		in.Close()
		return nil, err
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		in.redis = client
		in.healthChecks["redis"] = client.Health
		in.closers = append(in.closers, func() { _ = client.Close() })
	}

	if err := buildRelay(ctx, in, cfg, log, m); err != nil {
		in.Close()
		return nil, err
	}
	return in, nil
}

func buildMemory(in *infra) {
	mu := &sync.RWMutex{}
	profiles := profilestore.NewInMemory(profilestore.WithSharedLock(mu))
	applications := sellerstore.NewInMemory(sellerstore.WithSharedLock(mu))

	in.mode = "memory"
	in.profiles = profiles
	in.applications = applications
	in.decisions = adminstore.NewInMemoryTx(mu, applications, profiles)
	in.auditStore = auditmemory.NewInMemoryStore()
}

func buildPostgres(ctx context.Context, in *infra, cfg config.Server) error {
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	in.closers = append(in.closers, func() { _ = db.Close() })
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	profiles := profilestore.NewPostgres(db)
	applications := sellerstore.NewPostgres(db)

	in.mode = "postgres"
	in.profiles = profiles
	in.applications = applications
	in.decisions = adminstore.NewPostgresTx(db, applications, profiles)
	in.auditStore = auditpostgres.New(db)
	in.healthChecks["postgres"] = db.PingContext
	return nil
}

// buildRelay starts publishing the outbox to Kafka. The outbox only exists
// in postgres mode.
func buildRelay(ctx context.Context, in *infra, cfg config.Server, log *slog.Logger, m *platformmetrics.Metrics) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	outbox, ok := in.auditStore.(*auditpostgres.Store)
	if !ok {
		log.Warn("KAFKA_BROKERS ignored without DATABASE_URL")
		return nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	in.closers = append(in.closers, producer.Close)

	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := producer.EnsureTopic(topicCtx, -1, -1); err != nil {
		return err
	}
	in.healthChecks["kafka"] = producer.Ping
	in.relay = worker.New(outbox, producer, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize,
		worker.WithLogger(log),
		worker.WithObserver(m.Outbox()),
	)
	return nil
}

// buildLimiter counts in Redis when configured and in memory otherwise.
// With Redis, process memory takes over while Redis is failing.
func buildLimiter(cfg config.Server, in *infra, log *slog.Logger, reg prometheus.Registerer) *ratelimitservice.Limiter {
	opts := []ratelimitservice.Option{
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitservice.WithLimit(ratelimitmodels.ActionHandleConfirm, ratelimitmodels.Limit{
			Requests: cfg.RateLimit.HandlePerMinute,
			Window:   time.Minute,
		}),
		ratelimitservice.WithLimit(ratelimitmodels.ActionSellerApply, ratelimitmodels.Limit{
			Requests: cfg.RateLimit.ApplyPerHour,
			Window:   time.Hour,
		}),
	}
	if in.redis == nil {
		return ratelimitservice.New(bucket.NewInMemoryBucketStore(), opts...)
	}
	opts = append(opts, ratelimitservice.WithFallback(bucket.NewInMemoryBucketStore(), circuit.New("ratelimit-redis")))
	return ratelimitservice.New(bucket.NewRedisBucketStore(in.redis.Client), opts...)
}
