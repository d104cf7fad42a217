package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	profilemodels "kudose/internal/profile/models"
	profilestore "kudose/internal/profile/store"
	sellermetrics "kudose/internal/seller/metrics"
	"kudose/internal/seller/models"
	"kudose/internal/seller/service/mocks"
	"kudose/internal/seller/store"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	audit "kudose/pkg/platform/audit"
	"kudose/pkg/platform/retry"
	"kudose/pkg/platform/sentinel"
	"kudose/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ProfileReader,AuditPublisher

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

type SubmitSuite struct {
	suite.Suite
	ctx          context.Context
	profiles     *profilestore.InMemory
	applications *store.InMemory
	audit        *mocks.MockAuditPublisher
	metrics      *sellermetrics.Metrics
}

func TestSubmitSuite(t *testing.T) {
	suite.Run(t, new(SubmitSuite))
}

func (s *SubmitSuite) SetupTest() {
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", firefoxUA)
	s.profiles = profilestore.NewInMemory()
	s.applications = store.NewInMemory()
	s.audit = mocks.NewMockAuditPublisher(gomock.NewController(s.T()))
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.metrics = sellermetrics.New(prometheus.NewRegistry())
}

func (s *SubmitSuite) service(opts ...Option) *Service {
	opts = append([]Option{WithAuditPublisher(s.audit), WithMetrics(s.metrics)}, opts...)
	return New(s.applications, s.profiles, opts...)
}

func (s *SubmitSuite) principal() id.PrincipalID {
	pid := id.PrincipalID(uuid.New())
	p := profilemodels.NewProfile(pid, "fox@example.com", time.Now())
	name := "Neon Fox"
	p.DisplayName = &name
	_, _, err := s.profiles.CreateIfAbsent(s.ctx, p)
	s.Require().NoError(err)
	return pid
}

func validSubmission() models.Submission {
	return models.Submission{
		DiscordName:       " fox#0001 ",
		VRChatName:        "NeonFox",
		StoreOrSocialLink: "https://fox.example.com",
		TOSAgreed:         true,
	}
}

func (s *SubmitSuite) decide(app *models.Application, decision models.Decision) {
	_, err := s.applications.Execute(s.ctx, app.ID, nil, func(a *models.Application) {
		a.ApplyDecision(decision, nil, id.PrincipalID(uuid.New()), time.Now())
	})
	s.Require().NoError(err)
}

func (s *SubmitSuite) TestSubmit() {
	svc := s.service()
	pid := s.principal()

	app, err := svc.Submit(s.ctx, pid, "fox@example.com", validSubmission())
	s.Require().NoError(err)
	s.Equal(models.StatusPending, app.Status)
	s.Equal("fox#0001", app.DiscordName)
	s.Equal("fox@example.com", app.ContactEmail, "falls back to the account email")
	s.Equal("Neon Fox", *app.DisplayName)
	s.Equal("203.0.113.7", app.SubmittedIP)
	s.Contains(app.SubmittedDevice, "Firefox")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ApplicationsSubmitted))

	latest, err := svc.GetLatest(s.ctx, pid)
	s.Require().NoError(err)
	s.Equal(app.ID, latest.ID)
}

func (s *SubmitSuite) TestValidationOrder() {
	svc := s.service()
	pid := s.principal()

	cases := []struct {
		name         string
		mutate       func(*models.Submission)
		accountEmail string
		field        string
	}{
		{"everything missing reports discord first", func(sub *models.Submission) { *sub = models.Submission{} }, "", "discord_name"},
		{"blank vrchat", func(sub *models.Submission) { sub.VRChatName = "   " }, "a@example.com", "vrchat_name"},
		{"no contact email anywhere", func(sub *models.Submission) { sub.StoreOrSocialLink = "" }, "", "contact_email"},
		{"missing link", func(sub *models.Submission) { sub.StoreOrSocialLink = "" }, "a@example.com", "store_or_social_link"},
		{"tos not agreed", func(sub *models.Submission) { sub.TOSAgreed = false }, "a@example.com", "tos_agreed"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			sub := validSubmission()
			tc.mutate(&sub)
			_, err := svc.Submit(s.ctx, pid, tc.accountEmail, sub)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Equal(tc.field, dErrors.FieldOf(err))
		})
	}

	latest, err := svc.GetLatest(s.ctx, pid)
	s.Require().NoError(err)
	s.Nil(latest, "nothing inserted")
}

func (s *SubmitSuite) TestResubmissionPolicy() {
	s.Run("pending blocks a second submission", func() {
		svc := s.service()
		pid := s.principal()
		_, err := svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.Require().NoError(err)

		_, err = svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicatePending))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.SubmissionsRejected.WithLabelValues("duplicate_pending")))
	})

	s.Run("approved applicant is already a seller", func() {
		svc := s.service()
		pid := s.principal()
		app, err := svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.Require().NoError(err)
		s.decide(app, models.DecisionApprove)

		_, err = svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadySeller))
	})

	s.Run("rejected applicant may resubmit by default", func() {
		svc := s.service()
		pid := s.principal()
		app, err := svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.Require().NoError(err)
		s.decide(app, models.DecisionReject)

		again, err := svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.Require().NoError(err)
		s.NotEqual(app.ID, again.ID)
	})

	s.Run("rejected applicant blocked when policy disabled", func() {
		svc := s.service(WithResubmissionAfterRejection(false))
		pid := s.principal()
		app, err := svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.Require().NoError(err)
		s.decide(app, models.DecisionReject)

		_, err = svc.Submit(s.ctx, pid, "a@example.com", validSubmission())
		s.True(dErrors.HasCode(err, dErrors.CodeResubmissionNotAllowed))
	})
}

func (s *SubmitSuite) TestUnknownProfile() {
	_, err := s.service().Submit(s.ctx, id.PrincipalID(uuid.New()), "a@example.com", validSubmission())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSubmitRaceLoserGetsDuplicatePending(t *testing.T) {
	ctrl := gomock.NewController(t)
	apps := mocks.NewMockStore(ctrl)
	profiles := mocks.NewMockProfileReader(ctrl)
	pid := id.PrincipalID(uuid.New())

	profiles.EXPECT().FindByID(gomock.Any(), pid).Return(profilemodels.NewProfile(pid, "", time.Now()), nil)
	apps.EXPECT().Latest(gomock.Any(), pid).Return(nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound))
	apps.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.ErrPendingExists)

	_, err := New(apps, profiles).Submit(context.Background(), pid, "a@example.com", validSubmission())
	if !dErrors.HasCode(err, dErrors.CodeDuplicatePending) {
		t.Fatalf("code = %s, want duplicate_pending", dErrors.CodeOf(err))
	}
}

func TestSubmitEmitsAuditAfterInsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	apps := mocks.NewMockStore(ctrl)
	profiles := mocks.NewMockProfileReader(ctrl)
	publisher := mocks.NewMockAuditPublisher(ctrl)
	pid := id.PrincipalID(uuid.New())

	profiles.EXPECT().FindByID(gomock.Any(), pid).Return(profilemodels.NewProfile(pid, "", time.Now()), nil)
	apps.EXPECT().Latest(gomock.Any(), pid).Return(nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound))
	transient := fmt.Errorf("insert: %w", sentinel.ErrUnavailable)
	gomock.InOrder(
		apps.EXPECT().Create(gomock.Any(), gomock.Any()).Return(transient),
		apps.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
		publisher.EXPECT().Emit(gomock.Any(), gomock.Cond(func(e audit.ComplianceEvent) bool {
			return e.Action == audit.EventSellerApplicationSubmitted && e.PrincipalID == pid
		})).Return(nil),
	)

	svc := New(apps, profiles,
		WithAuditPublisher(publisher),
		WithRetryPolicy(retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond}),
	)
	if _, err := svc.Submit(context.Background(), pid, "a@example.com", validSubmission()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}
