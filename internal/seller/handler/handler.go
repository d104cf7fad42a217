package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	profilemodels "kudose/internal/profile/models"
	"kudose/internal/seller/models"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	"kudose/pkg/platform/httputil"
	"kudose/pkg/requestcontext"
)

type Service interface {
	Submit(ctx context.Context, principalID id.PrincipalID, accountEmail string, sub models.Submission) (*models.Application, error)
	GetLatest(ctx context.Context, principalID id.PrincipalID) (*models.Application, error)
}

// ProfileBootstrapper guarantees the applicant's profile row exists.
type ProfileBootstrapper interface {
	EnsureProfile(ctx context.Context, principalID id.PrincipalID, email string) (*profilemodels.Profile, error)
}

// Handler serves the applicant side of seller onboarding.
type Handler struct {
	service     Service
	profiles    ProfileBootstrapper
	logger      *slog.Logger
	applyLimits func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubmitRateLimit guards POST /v1/me/seller-application with mw.
func WithSubmitRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.applyLimits = mw
	}
}

func New(service Service, profiles ProfileBootstrapper, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, profiles: profiles, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/me/seller-application", h.HandleGetLatest)
	if h.applyLimits != nil {
		r.With(h.applyLimits).Post("/v1/me/seller-application", h.HandleSubmit)
	} else {
		r.Post("/v1/me/seller-application", h.HandleSubmit)
	}
}

func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	principalID := requestcontext.PrincipalID(ctx)
	if principalID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "authentication required"))
		return
	}

	app, err := h.service.GetLatest(ctx, principalID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load seller application",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.LatestApplicationResponse{Application: app})
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	principalID := requestcontext.PrincipalID(ctx)
	if principalID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SubmitApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	email := requestcontext.Email(ctx)
	if _, err := h.profiles.EnsureProfile(ctx, principalID, email); err != nil {
		h.logger.ErrorContext(ctx, "failed to load profile", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	app, err := h.service.Submit(ctx, principalID, email, req.ToSubmission())
	if err != nil {
		h.logger.WarnContext(ctx, "seller application refused",
			"request_id", requestID,
			"principal_id", principalID.String(),
			"code", string(dErrors.CodeOf(err)),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}
