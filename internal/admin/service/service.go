package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	adminmetrics "kudose/internal/admin/metrics"
	adminstore "kudose/internal/admin/store"
	profilemodels "kudose/internal/profile/models"
	sellermodels "kudose/internal/seller/models"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	audit "kudose/pkg/platform/audit"
	"kudose/pkg/platform/retry"
	"kudose/pkg/platform/sentinel"
	"kudose/pkg/requestcontext"
)

type ProfileReader interface {
	FindByID(ctx context.Context, principalID id.PrincipalID) (*profilemodels.Profile, error)
}

type ApplicationReader interface {
	ListPending(ctx context.Context) ([]*sellermodels.Application, error)
	CountPending(ctx context.Context) (int, error)
}

// DecisionTx runs fn as one atomic unit of work.
type DecisionTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores adminstore.Stores) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service lets administrators review and decide seller applications.
// Authority comes only from the profile's is_admin flag.
type Service struct {
	profiles       ProfileReader
	applications   ApplicationReader
	tx             DecisionTx
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *adminmetrics.Metrics
	retryPolicy    retry.Policy
	retryObserver  func(operation string) retry.Notify
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditPublisher sets the publisher used inside the decision unit of
// work. A failed emit aborts the decision.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *adminmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retryPolicy = p
	}
}

func WithRetryObserver(observer func(operation string) retry.Notify) Option {
	return func(s *Service) {
		s.retryObserver = observer
	}
}

func New(profiles ProfileReader, applications ApplicationReader, tx DecisionTx, opts ...Option) *Service {
	s := &Service{
		profiles:     profiles,
		applications: applications,
		tx:           tx,
		logger:       slog.Default(),
		retryPolicy:  retry.DefaultPolicy,
		tracer:       otel.Tracer("kudose/admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize reports whether principalID is an administrator. An unknown
// principal is not.
func (s *Service) Authorize(ctx context.Context, principalID id.PrincipalID) (bool, error) {
	if principalID.IsNil() {
		return false, nil
	}
	p, err := retry.DoValue(ctx, s.retryPolicy, s.notify("admin.find_profile"), func(ctx context.Context) (*profilemodels.Profile, error) {
		return s.profiles.FindByID(ctx, principalID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, translateStoreErr(err)
	}
	return p.IsAdmin, nil
}

func (s *Service) requireAdmin(ctx context.Context, actor id.PrincipalID) error {
	ok, err := s.Authorize(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.IncrementDenied()
		}
		s.logger.WarnContext(ctx, "admin operation denied", "principal_id", actor.String())
		return dErrors.New(dErrors.CodeNotAuthorized, "administrator access required")
	}
	return nil
}

// ListPending returns the pending queue, oldest first.
func (s *Service) ListPending(ctx context.Context, actor id.PrincipalID) ([]*sellermodels.Application, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	apps, err := retry.DoValue(ctx, s.retryPolicy, s.notify("admin.list_pending"), func(ctx context.Context) ([]*sellermodels.Application, error) {
		return s.applications.ListPending(ctx)
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return apps, nil
}

// CountPending feeds the dashboard badge.
func (s *Service) CountPending(ctx context.Context, actor id.PrincipalID) (int, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return 0, err
	}
	n, err := retry.DoValue(ctx, s.retryPolicy, s.notify("admin.count_pending"), func(ctx context.Context) (int, error) {
		return s.applications.CountPending(ctx)
	})
	if err != nil {
		return 0, translateStoreErr(err)
	}
	return n, nil
}

// Decide approves or rejects a pending application. On approval the owner
// is promoted to seller in the same unit of work.
func (s *Service) Decide(ctx context.Context, actor id.PrincipalID, appID id.ApplicationID, decision sellermodels.Decision, note *string) (*sellermodels.Application, error) {
	ctx, span := s.tracer.Start(ctx, "admin.Decide", trace.WithAttributes(
		attribute.String("principal.id", actor.String()),
		attribute.String("seller.application_id", appID.String()),
		attribute.String("seller.decision", string(decision)),
	))
	defer span.End()

	app, err := s.decide(ctx, actor, appID, decision, note)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	return app, nil
}

func (s *Service) decide(ctx context.Context, actor id.PrincipalID, appID id.ApplicationID, decision sellermodels.Decision, note *string) (*sellermodels.Application, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if !decision.IsValid() {
		return nil, dErrors.Validation("decision", "decision must be approve or reject")
	}

	now := requestcontext.Now(ctx)
	var decided *sellermodels.Application
	err := retry.Do(ctx, s.retryPolicy, s.notify("admin.decide"), func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(ctx context.Context, stores adminstore.Stores) error {
			app, err := stores.Applications.Execute(ctx, appID,
				func(a *sellermodels.Application) error { return a.CanDecide() },
				func(a *sellermodels.Application) { a.ApplyDecision(decision, note, actor, now) },
			)
			if err != nil {
				return err
			}
			if decision == sellermodels.DecisionApprove {
				if _, err := stores.Profiles.Execute(ctx, app.PrincipalID, nil, func(p *profilemodels.Profile) {
					p.PromoteToSeller(now)
				}); err != nil {
					return err
				}
			}
			if err := s.emitDecision(ctx, actor, app, decision, note); err != nil {
				return err
			}
			decided = app
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeAlreadyDecided, "application has already been decided")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, translateStoreErr(err)
	}

	if s.metrics != nil {
		s.metrics.IncrementDecision(string(decided.Status))
	}
	s.logger.InfoContext(ctx, "seller application decided",
		"application_id", appID.String(),
		"owner_id", decided.PrincipalID.String(),
		"actor_id", actor.String(),
		"status", string(decided.Status),
	)
	return decided, nil
}

func (s *Service) emitDecision(ctx context.Context, actor id.PrincipalID, app *sellermodels.Application, decision sellermodels.Decision, note *string) error {
	if s.auditPublisher == nil {
		return nil
	}
	action := audit.EventSellerApplicationRejected
	if decision == sellermodels.DecisionApprove {
		action = audit.EventSellerApplicationApproved
	}
	event := audit.ComplianceEvent{
		PrincipalID: app.PrincipalID,
		Action:      action,
		Subject:     app.ID.String(),
		Decision:    string(app.Status),
		ActorID:     actor.String(),
	}
	if note != nil {
		event.Reason = *note
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
	}
	return nil
}

func (s *Service) notify(operation string) retry.Notify {
	if s.retryObserver == nil {
		return nil
	}
	return s.retryObserver(operation)
}

func translateStoreErr(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
