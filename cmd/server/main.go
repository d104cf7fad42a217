package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	adminhandler "kudose/internal/admin/handler"
	adminmetrics "kudose/internal/admin/metrics"
	adminservice "kudose/internal/admin/service"
	jwttoken "kudose/internal/jwt_token"
	"kudose/internal/platform/config"
	"kudose/internal/platform/httpserver"
	"kudose/internal/platform/logger"
	platformmetrics "kudose/internal/platform/metrics"
	"kudose/internal/platform/middleware"
	profilehandler "kudose/internal/profile/handler"
	profilemetrics "kudose/internal/profile/metrics"
	profileservice "kudose/internal/profile/service"
	ratelimitmw "kudose/internal/ratelimit/middleware"
	ratelimitmodels "kudose/internal/ratelimit/models"
	sellerhandler "kudose/internal/seller/handler"
	sellermetrics "kudose/internal/seller/metrics"
	sellerservice "kudose/internal/seller/service"
	"kudose/pkg/platform/audit/publishers/compliance"
	"kudose/pkg/platform/httputil"
	"kudose/pkg/platform/middleware/auth"
	"kudose/pkg/platform/middleware/metadata"
	"kudose/pkg/platform/retry"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	platformMetrics := platformmetrics.New(reg)

	infra, err := buildInfra(ctx, cfg, log, platformMetrics)
	if err != nil {
		return err
	}
	defer infra.Close()

	srv := httpserver.New(cfg.Addr, newRouter(cfg, infra, log, reg, platformMetrics))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting kudose", "addr", cfg.Addr, "storage", infra.mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if infra.relay != nil {
		g.Go(func() error {
			return infra.relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newRouter builds the services over infra and mounts every route.
func newRouter(cfg config.Server, infra *infra, log *slog.Logger, reg *prometheus.Registry, platformMetrics *platformmetrics.Metrics) http.Handler {
	policy := retry.Policy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     time.Second,
	}
	publisher := compliance.New(infra.auditStore,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
	)

	profiles := profileservice.New(infra.profiles,
		profileservice.WithLogger(log),
		profileservice.WithAuditPublisher(publisher),
		profileservice.WithMetrics(profilemetrics.New(reg)),
		profileservice.WithRetryPolicy(policy),
		profileservice.WithRetryObserver(platformMetrics.RetryObserver),
	)
	sellers := sellerservice.New(infra.applications, infra.profiles,
		sellerservice.WithLogger(log),
		sellerservice.WithAuditPublisher(publisher),
		sellerservice.WithMetrics(sellermetrics.New(reg)),
		sellerservice.WithRetryPolicy(policy),
		sellerservice.WithRetryObserver(platformMetrics.RetryObserver),
		sellerservice.WithResubmissionAfterRejection(cfg.AllowResubmissionAfterRejection),
	)
	admins := adminservice.New(infra.profiles, infra.applications, infra.decisions,
		adminservice.WithLogger(log),
		adminservice.WithAuditPublisher(publisher),
		adminservice.WithMetrics(adminmetrics.New(reg)),
		adminservice.WithRetryPolicy(policy),
		adminservice.WithRetryObserver(platformMetrics.RetryObserver),
	)

	limits := ratelimitmw.New(buildLimiter(cfg, infra, log, reg), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.AccessLog(log, platformMetrics))

	r.Get("/healthz", healthz(infra))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	profileHandler := profilehandler.New(profiles, log,
		profilehandler.WithHandleRateLimit(limits.RateLimitPrincipal(ratelimitmodels.ActionHandleConfirm)))
	profileHandler.RegisterPublic(r)

	validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, log))
		profileHandler.Register(r)
		sellerhandler.New(sellers, profiles, log,
			sellerhandler.WithSubmitRateLimit(limits.RateLimitPrincipal(ratelimitmodels.ActionSellerApply)),
		).Register(r)
		adminhandler.New(admins, log).Register(r)
	})

	return r
}

func healthz(infra *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok", "storage": infra.mode}
		code := http.StatusOK
		for name, check := range infra.healthChecks {
			if err := check(ctx); err != nil {
				status[name] = "unavailable"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, status)
	}
}
