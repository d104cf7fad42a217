package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	profilemodels "kudose/internal/profile/models"
	sellermetrics "kudose/internal/seller/metrics"
	"kudose/internal/seller/models"
	"kudose/internal/seller/store"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	audit "kudose/pkg/platform/audit"
	"kudose/pkg/platform/retry"
	"kudose/pkg/platform/sentinel"
	"kudose/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, app *models.Application) error
	Latest(ctx context.Context, principalID id.PrincipalID) (*models.Application, error)
}

// ProfileReader supplies the applicant's profile for the display-name
// snapshot and the role check.
type ProfileReader interface {
	FindByID(ctx context.Context, principalID id.PrincipalID) (*profilemodels.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service accepts seller applications and reports their status.
type Service struct {
	applications      Store
	profiles          ProfileReader
	logger            *slog.Logger
	auditPublisher    AuditPublisher
	metrics           *sellermetrics.Metrics
	retryPolicy       retry.Policy
	retryObserver     func(operation string) retry.Notify
	allowResubmission bool
	tracer            trace.Tracer
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

func WithMetrics(m *sellermetrics.Metrics) Option {
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

// WithResubmissionAfterRejection controls whether a rejected applicant may
// apply again. Enabled by default.
func WithResubmissionAfterRejection(allow bool) Option {
	return func(s *Service) {
		s.allowResubmission = allow
	}
}

func New(applications Store, profiles ProfileReader, opts ...Option) *Service {
	s := &Service{
		applications:      applications,
		profiles:          profiles,
		logger:            slog.Default(),
		retryPolicy:       retry.DefaultPolicy,
		allowResubmission: true,
		tracer:            otel.Tracer("kudose/seller"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the fields, applies the resubmission policy and records a
// pending application. accountEmail is used when no contact email is given.
func (s *Service) Submit(ctx context.Context, principalID id.PrincipalID, accountEmail string, sub models.Submission) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "seller.Submit", trace.WithAttributes(attribute.String("principal.id", principalID.String())))
	defer span.End()

	app, err := s.submit(ctx, principalID, accountEmail, sub)
	if err != nil {
		code := dErrors.CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		if s.metrics != nil {
			s.metrics.IncrementRejected(string(code))
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("seller.application_id", app.ID.String()))
	return app, nil
}

func (s *Service) submit(ctx context.Context, principalID id.PrincipalID, accountEmail string, sub models.Submission) (*models.Application, error) {
	sub.Normalize()
	if err := sub.Validate(accountEmail); err != nil {
		return nil, err
	}

	profile, err := retry.DoValue(ctx, s.retryPolicy, s.notify("seller.find_profile"), func(ctx context.Context) (*profilemodels.Profile, error) {
		return s.profiles.FindByID(ctx, principalID)
	})
	if err != nil {
		return nil, translateStoreErr(err, "profile not found")
	}
	if profile.IsSeller() {
		return nil, dErrors.New(dErrors.CodeAlreadySeller, "account is already a seller")
	}

	latest, err := s.latest(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if err := s.checkResubmission(latest); err != nil {
		return nil, err
	}

	meta := models.SubmitterMetadata{
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}
	app := models.NewApplication(principalID, sub, profile.DisplayName, meta, requestcontext.Now(ctx))

	err = retry.Do(ctx, s.retryPolicy, s.notify("seller.create"), func(ctx context.Context) error {
		return s.applications.Create(ctx, app)
	})
	if err != nil {
		if errors.Is(err, store.ErrPendingExists) {
			return nil, dErrors.New(dErrors.CodeDuplicatePending, "a pending application already exists")
		}
		return nil, translateStoreErr(err, "profile not found")
	}

	if s.metrics != nil {
		s.metrics.IncrementSubmitted()
	}
	s.logger.InfoContext(ctx, "seller application submitted",
		"principal_id", principalID.String(),
		"application_id", app.ID.String(),
		"device", app.SubmittedDevice,
	)
	s.emit(ctx, audit.ComplianceEvent{
		PrincipalID: principalID,
		Action:      audit.EventSellerApplicationSubmitted,
		Subject:     app.ID.String(),
	})
	return app, nil
}

// checkResubmission applies the policy to the applicant's newest application.
func (s *Service) checkResubmission(latest *models.Application) error {
	if latest == nil {
		return nil
	}
	switch latest.Status {
	case models.StatusPending:
		return dErrors.New(dErrors.CodeDuplicatePending, "a pending application already exists")
	case models.StatusApproved:
		return dErrors.New(dErrors.CodeAlreadySeller, "application was already approved")
	case models.StatusRejected:
		if !s.allowResubmission {
			return dErrors.New(dErrors.CodeResubmissionNotAllowed, "resubmission after rejection is not allowed")
		}
	}
	return nil
}

// GetLatest returns the principal's newest application, or nil when there is none.
func (s *Service) GetLatest(ctx context.Context, principalID id.PrincipalID) (*models.Application, error) {
	return s.latest(ctx, principalID)
}

func (s *Service) latest(ctx context.Context, principalID id.PrincipalID) (*models.Application, error) {
	app, err := retry.DoValue(ctx, s.retryPolicy, s.notify("seller.latest"), func(ctx context.Context) (*models.Application, error) {
		return s.applications.Latest(ctx, principalID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, translateStoreErr(err, "application not found")
	}
	return app, nil
}

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

func translateStoreErr(err error, notFoundMsg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "application store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "application store failure")
	}
}
