package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	profilemetrics "kudose/internal/profile/metrics"
	"kudose/internal/profile/models"
	"kudose/internal/profile/store"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	audit "kudose/pkg/platform/audit"
	"kudose/pkg/platform/retry"
	"kudose/pkg/platform/sentinel"
	"kudose/pkg/requestcontext"
)

// Store is the persistence contract of the profile module.
type Store interface {
	FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Profile, error)
	FindByHandle(ctx context.Context, handle string) (*models.Profile, error)
	CreateIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, bool, error)
	ConfirmHandle(ctx context.Context, principalID id.PrincipalID, handle string, now time.Time) (*models.Profile, error)
	Execute(ctx context.Context, principalID id.PrincipalID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service owns profile bootstrap, handle confirmation and self-service edits.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *profilemetrics.Metrics
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

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *profilemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retryPolicy = p
	}
}

// WithRetryObserver is told about every retried store call.
func WithRetryObserver(observer func(operation string) retry.Notify) Option {
	return func(s *Service) {
		s.retryObserver = observer
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		logger:      slog.Default(),
		retryPolicy: retry.DefaultPolicy,
		tracer:      otel.Tracer("kudose/profile"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureProfile returns the caller's profile, creating it with defaults on
// first sight. Concurrent callers all observe the same row.
func (s *Service) EnsureProfile(ctx context.Context, principalID id.PrincipalID, email string) (*models.Profile, error) {
	ctx, span := s.startSpan(ctx, "profile.EnsureProfile", principalID)
	defer span.End()
	defer s.observe("ensure_profile", time.Now())

	candidate := models.NewProfile(principalID, email, requestcontext.Now(ctx))
	var created bool
	p, err := retry.DoValue(ctx, s.retryPolicy, s.notify("profile.create_if_absent"), func(ctx context.Context) (*models.Profile, error) {
		p, ok, err := s.store.CreateIfAbsent(ctx, candidate)
		created = ok
		return p, err
	})
	if err != nil {
		return nil, s.fail(span, translateStoreErr(err, "profile not found"))
	}

	if created {
		if s.metrics != nil {
			s.metrics.IncrementProfilesCreated()
		}
		s.logger.InfoContext(ctx, "profile created", "principal_id", principalID.String())
		s.emit(ctx, audit.ComplianceEvent{PrincipalID: principalID, Action: audit.EventProfileCreated})
	}
	return p, nil
}

// Get loads a profile without creating it.
func (s *Service) Get(ctx context.Context, principalID id.PrincipalID) (*models.Profile, error) {
	p, err := retry.DoValue(ctx, s.retryPolicy, s.notify("profile.find_by_id"), func(ctx context.Context) (*models.Profile, error) {
		return s.store.FindByID(ctx, principalID)
	})
	if err != nil {
		return nil, translateStoreErr(err, "profile not found")
	}
	return p, nil
}

// ConfirmHandle normalizes rawHandle and commits it as the caller's public
// handle. A profile confirms exactly once.
func (s *Service) ConfirmHandle(ctx context.Context, principalID id.PrincipalID, rawHandle string) (*models.Profile, error) {
	ctx, span := s.startSpan(ctx, "profile.ConfirmHandle", principalID)
	defer span.End()
	defer s.observe("confirm_handle", time.Now())

	handle := models.NormalizeHandle(rawHandle)
	if err := models.ValidateHandle(handle); err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("profile.handle", handle))

	now := requestcontext.Now(ctx)
	p, err := retry.DoValue(ctx, s.retryPolicy, s.notify("profile.confirm_handle"), func(ctx context.Context) (*models.Profile, error) {
		return s.store.ConfirmHandle(ctx, principalID, handle, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrHandleTaken):
			if s.metrics != nil {
				s.metrics.IncrementHandleConflicts()
			}
			return nil, s.fail(span, dErrors.New(dErrors.CodeHandleTaken, "handle is already taken"))
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, s.fail(span, dErrors.New(dErrors.CodeAlreadyConfirmed, "handle is already confirmed"))
		}
		return nil, s.fail(span, translateStoreErr(err, "profile not found"))
	}

	if s.metrics != nil {
		s.metrics.IncrementHandlesConfirmed()
	}
	s.logger.InfoContext(ctx, "handle confirmed", "principal_id", principalID.String(), "handle", handle)
	s.emit(ctx, audit.ComplianceEvent{PrincipalID: principalID, Action: audit.EventHandleConfirmed, Subject: handle})
	return p, nil
}

// UpdateDetails edits display name and bio. Handle, role, admin flag and
// confirmation state are never touched here.
func (s *Service) UpdateDetails(ctx context.Context, principalID id.PrincipalID, update models.DetailsUpdate) (*models.Profile, error) {
	ctx, span := s.startSpan(ctx, "profile.UpdateDetails", principalID)
	defer span.End()
	defer s.observe("update_details", time.Now())

	update.Normalize()
	if err := update.Validate(); err != nil {
		return nil, s.fail(span, err)
	}

	now := requestcontext.Now(ctx)
	p, err := retry.DoValue(ctx, s.retryPolicy, s.notify("profile.execute"), func(ctx context.Context) (*models.Profile, error) {
		return s.store.Execute(ctx, principalID, nil, func(p *models.Profile) {
			p.ApplyDetails(update, now)
		})
	})
	if err != nil {
		return nil, s.fail(span, translateStoreErr(err, "profile not found"))
	}

	s.emit(ctx, audit.ComplianceEvent{PrincipalID: principalID, Action: audit.EventProfileUpdated})
	return p, nil
}

// GetByHandle resolves a confirmed handle to its public view.
func (s *Service) GetByHandle(ctx context.Context, rawHandle string) (*models.PublicProfile, error) {
	handle := models.NormalizeHandle(rawHandle)
	if handle == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	p, err := retry.DoValue(ctx, s.retryPolicy, s.notify("profile.find_by_handle"), func(ctx context.Context) (*models.Profile, error) {
		return s.store.FindByHandle(ctx, handle)
	})
	if err != nil {
		return nil, translateStoreErr(err, "profile not found")
	}
	return p.Public(), nil
}

// emit records an audit event after the write it describes has committed.
// The write is not undone when the audit append fails, so the failure is
// logged instead of returned.
func (s *Service) emit(ctx context.Context, event audit.ComplianceEvent) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"principal_id", event.PrincipalID.String(),
			"error", err,
		)
	}
}

func (s *Service) notify(operation string) retry.Notify {
	if s.retryObserver == nil {
		return nil
	}
	return s.retryObserver(operation)
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, principalID id.PrincipalID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("principal.id", principalID.String())))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func translateStoreErr(err error, notFoundMsg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "profile store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "profile store failure")
	}
}
