package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kudose/internal/profile/models"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	"kudose/pkg/platform/httputil"
	"kudose/pkg/requestcontext"
)

// Service is the profile API consumed by the handlers.
type Service interface {
	EnsureProfile(ctx context.Context, principalID id.PrincipalID, email string) (*models.Profile, error)
	ConfirmHandle(ctx context.Context, principalID id.PrincipalID, rawHandle string) (*models.Profile, error)
	UpdateDetails(ctx context.Context, principalID id.PrincipalID, update models.DetailsUpdate) (*models.Profile, error)
	GetByHandle(ctx context.Context, rawHandle string) (*models.PublicProfile, error)
}

// Handler serves the profile endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	handleLimits func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithHandleRateLimit guards POST /v1/me/handle with mw.
func WithHandleRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.handleLimits = mw
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated routes. The caller installs auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/me/profile", h.HandleGetMyProfile)
	r.Patch("/v1/me/profile", h.HandleUpdateMyProfile)
	if h.handleLimits != nil {
		r.With(h.handleLimits).Post("/v1/me/handle", h.HandleConfirmHandle)
	} else {
		r.Post("/v1/me/handle", h.HandleConfirmHandle)
	}
}

// RegisterPublic mounts routes that need no session.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/v1/u/{handle}", h.HandleGetPublicProfile)
}

// HandleGetMyProfile bootstraps the caller's profile on first load.
func (h *Handler) HandleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	principalID, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	p, err := h.service.EnsureProfile(ctx, principalID, requestcontext.Email(ctx))
	if err != nil {
		h.logFailure(ctx, "failed to load profile", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewProfileResponse(p))
}

func (h *Handler) HandleUpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	principalID, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if _, err := h.service.EnsureProfile(ctx, principalID, requestcontext.Email(ctx)); err != nil {
		h.logFailure(ctx, "failed to load profile", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.UpdateDetails(ctx, principalID, req.ToUpdate())
	if err != nil {
		h.logFailure(ctx, "failed to update profile", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewProfileResponse(p))
}

// HandleConfirmHandle commits the caller's one-time public handle.
func (h *Handler) HandleConfirmHandle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	principalID, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.ConfirmHandleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if _, err := h.service.EnsureProfile(ctx, principalID, requestcontext.Email(ctx)); err != nil {
		h.logFailure(ctx, "failed to load profile", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.ConfirmHandle(ctx, principalID, req.Handle)
	if err != nil {
		h.logFailure(ctx, "failed to confirm handle", err, requestID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "handle confirmed",
		"request_id", requestID,
		"principal_id", principalID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, models.NewProfileResponse(p))
}

func (h *Handler) HandleGetPublicProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	p, err := h.service.GetByHandle(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		h.logFailure(ctx, "failed to load public profile", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) requirePrincipal(w http.ResponseWriter, r *http.Request) (id.PrincipalID, bool) {
	principalID := requestcontext.PrincipalID(r.Context())
	if principalID.IsNil() {
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "authentication required"))
		return id.PrincipalID{}, false
	}
	return principalID, true
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string) {
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
}
