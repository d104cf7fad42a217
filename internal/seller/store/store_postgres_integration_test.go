//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	profilemodels "kudose/internal/profile/models"
	profilestore "kudose/internal/profile/store"
	"kudose/internal/seller/models"
	"kudose/internal/seller/store"
	id "kudose/pkg/domain"
	"kudose/pkg/platform/sentinel"
	"kudose/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	profiles *profilestore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.profiles = profilestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox", "seller_applications", "profiles"))
}

func (s *PostgresStoreSuite) owner(ctx context.Context) id.PrincipalID {
	p, _, err := s.profiles.CreateIfAbsent(ctx, profilemodels.NewProfile(id.PrincipalID(uuid.New()), "", time.Now()))
	s.Require().NoError(err)
	return p.ID
}

func submission() models.Submission {
	return models.Submission{
		DiscordName:       "fox#0001",
		VRChatName:        "NeonFox",
		ContactEmail:      "fox@example.com",
		StoreOrSocialLink: "https://fox.example.com",
		TOSAgreed:         true,
	}
}

// TestConcurrentSubmissions verifies the partial unique index admits one pending row.
func (s *PostgresStoreSuite) TestConcurrentSubmissions() {
	ctx := context.Background()
	owner := s.owner(ctx)
	const goroutines = 25

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, models.NewApplication(owner, submission(), nil, models.SubmitterMetadata{}, time.Now()))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, store.ErrPendingExists):
				dup.Add(1)
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(goroutines-1), dup.Load())
	n, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *PostgresStoreSuite) TestUnknownOwner() {
	err := s.store.Create(context.Background(), models.NewApplication(id.PrincipalID(uuid.New()), submission(), nil, models.SubmitterMetadata{}, time.Now()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentDecisions verifies exactly one decision lands.
func (s *PostgresStoreSuite) TestConcurrentDecisions() {
	ctx := context.Background()
	app := models.NewApplication(s.owner(ctx), submission(), nil, models.SubmitterMetadata{IP: "203.0.113.7"}, time.Now())
	s.Require().NoError(s.store.Create(ctx, app))

	var wg sync.WaitGroup
	var wins, lost atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := models.DecisionApprove
			if i%2 == 1 {
				decision = models.DecisionReject
			}
			_, err := s.store.Execute(ctx, app.ID,
				func(a *models.Application) error {
					if !a.IsPending() {
						return sentinel.ErrInvalidState
					}
					return nil
				},
				func(a *models.Application) { a.ApplyDecision(decision, nil, id.PrincipalID(uuid.New()), time.Now()) },
			)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				lost.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(9), lost.Load())

	found, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.False(found.IsPending())
	s.NotNil(found.DecidedAt)
	s.Equal("203.0.113.7", found.SubmittedIP)
}
