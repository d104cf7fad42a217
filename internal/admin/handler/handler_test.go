package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"kudose/internal/admin/handler/mocks"
	"kudose/internal/seller/models"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	"kudose/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func newRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, svc
}

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func pendingApp() *models.Application {
	return models.NewApplication(id.PrincipalID(uuid.New()), models.Submission{
		DiscordName: "fox#0001", VRChatName: "NeonFox", ContactEmail: "fox@example.com",
		StoreOrSocialLink: "https://fox.example.com", TOSAgreed: true,
	}, nil, models.SubmitterMetadata{IP: "203.0.113.7", UserAgent: chromeOnWindows}, time.Now())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func TestAdminGate(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		r, _ := newRouter(t)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/seller-applications", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin sees nothing", func(t *testing.T) {
		r, svc := newRouter(t)
		pid := uuid.New()
		svc.EXPECT().Authorize(gomock.Any(), id.PrincipalID(pid)).Return(false, nil).Times(3)

		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodGet, "/v1/admin/seller-applications", nil),
			httptest.NewRequest(http.MethodGet, "/v1/admin/seller-applications/count", nil),
			httptest.NewRequest(http.MethodPost, "/v1/admin/seller-applications/"+uuid.NewString()+"/decision", strings.NewReader(`{"decision":"maybe"}`)),
		} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, testutil.WithPrincipal(req, pid.String(), ""))
			assert.Equal(t, http.StatusForbidden, rec.Code, req.URL.Path)
			assert.Equal(t, string(dErrors.CodeNotAuthorized), errorCode(t, rec))
			assert.NotContains(t, rec.Body.String(), "applications")
		}
	})
}

func TestListPending(t *testing.T) {
	pid := uuid.New()

	t.Run("empty queue is an empty list", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(true, nil)
		svc.EXPECT().ListPending(gomock.Any(), id.PrincipalID(pid)).Return(nil, nil)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, testutil.WithPrincipal(httptest.NewRequest(http.MethodGet, "/v1/admin/seller-applications", nil), pid.String(), ""))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"applications":[]}`, rec.Body.String())
	})

	t.Run("queue", func(t *testing.T) {
		r, svc := newRouter(t)
		app := pendingApp()
		svc.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(true, nil)
		svc.EXPECT().ListPending(gomock.Any(), id.PrincipalID(pid)).Return([]*models.Application{app}, nil)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, testutil.WithPrincipal(httptest.NewRequest(http.MethodGet, "/v1/admin/seller-applications", nil), pid.String(), ""))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Applications []map[string]any `json:"applications"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Applications, 1)
		got := resp.Applications[0]
		assert.Equal(t, app.ID.String(), got["id"])
		assert.Equal(t, "pending", got["status"])
		assert.Equal(t, "203.0.113.7", got["submitted_ip"])
		assert.Equal(t, chromeOnWindows, got["submitted_user_agent"])
		assert.Equal(t, app.SubmittedDevice, got["submitted_device"])
		assert.Contains(t, got["submitted_device"], "Chrome")
	})
}

func TestCountPending(t *testing.T) {
	r, svc := newRouter(t)
	pid := uuid.New()
	svc.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(true, nil)
	svc.EXPECT().CountPending(gomock.Any(), id.PrincipalID(pid)).Return(7, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.WithPrincipal(httptest.NewRequest(http.MethodGet, "/v1/admin/seller-applications/count", nil), pid.String(), ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":7}`, rec.Body.String())
}

func TestDecide(t *testing.T) {
	pid := uuid.New()
	decide := func(r chi.Router, appID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/seller-applications/"+appID+"/decision", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, testutil.WithPrincipal(req, pid.String(), ""))
		return rec
	}

	t.Run("approve with note", func(t *testing.T) {
		r, svc := newRouter(t)
		app := pendingApp()
		svc.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(true, nil)
		svc.EXPECT().Decide(gomock.Any(), id.PrincipalID(pid), app.ID, models.DecisionApprove, gomock.Any()).
			DoAndReturn(func(_ any, actor id.PrincipalID, _ id.ApplicationID, d models.Decision, note *string) (*models.Application, error) {
				require.NotNil(t, note)
				assert.Equal(t, "welcome", *note)
				app.ApplyDecision(d, note, actor, time.Now())
				return app, nil
			})

		rec := decide(r, app.ID.String(), `{"decision":" Approve ","note":" welcome "}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "approved", resp["status"])
		assert.Equal(t, "welcome", resp["decision_note"])
		assert.Equal(t, pid.String(), resp["decided_by"])
	})

	t.Run("already decided", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(true, nil)
		svc.EXPECT().Decide(gomock.Any(), gomock.Any(), gomock.Any(), models.DecisionReject, gomock.Nil()).
			Return(nil, dErrors.New(dErrors.CodeAlreadyDecided, "application has already been decided"))

		rec := decide(r, uuid.NewString(), `{"decision":"reject","note":"   "}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, string(dErrors.CodeAlreadyDecided), errorCode(t, rec))
	})

	t.Run("malformed id", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(true, nil)

		rec := decide(r, "not-a-uuid", `{"decision":"approve"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown decision", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(true, nil)

		rec := decide(r, uuid.NewString(), `{"decision":"maybe"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(dErrors.CodeValidation), errorCode(t, rec))
	})
}
