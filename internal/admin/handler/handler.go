package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kudose/internal/seller/models"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	"kudose/pkg/platform/httputil"
	"kudose/pkg/requestcontext"
)

type Service interface {
	Authorize(ctx context.Context, principalID id.PrincipalID) (bool, error)
	ListPending(ctx context.Context, actor id.PrincipalID) ([]*models.Application, error)
	CountPending(ctx context.Context, actor id.PrincipalID) (int, error)
	Decide(ctx context.Context, actor id.PrincipalID, appID id.ApplicationID, decision models.Decision, note *string) (*models.Application, error)
}

// Handler serves the administrator review queue.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin routes behind an authorization gate so that
// non-administrators see a 403 before any request parsing happens.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/admin/seller-applications", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/", h.HandleListPending)
		r.Get("/count", h.HandleCountPending)
		r.Post("/{id}/decision", h.HandleDecide)
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		principalID := requestcontext.PrincipalID(ctx)
		if principalID.IsNil() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "authentication required"))
			return
		}
		ok, err := h.service.Authorize(ctx, principalID)
		if err != nil {
			h.logger.ErrorContext(ctx, "admin authorization failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotAuthorized, "administrator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apps, err := h.service.ListPending(ctx, requestcontext.PrincipalID(ctx))
	if err != nil {
		h.logFailure(ctx, "failed to list pending applications", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewPendingListResponse(apps))
}

func (h *Handler) HandleCountPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.service.CountPending(ctx, requestcontext.PrincipalID(ctx))
	if err != nil {
		h.logFailure(ctx, "failed to count pending applications", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.PendingCountResponse{Count: n})
}

func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.DecideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.Decide(ctx, requestcontext.PrincipalID(ctx), appID, req.Decision, req.Note)
	if err != nil {
		h.logFailure(ctx, "seller application decision failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewReviewApplication(app))
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
		"error", err,
	}
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
