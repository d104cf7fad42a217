package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"kudose/internal/seller/models"
	id "kudose/pkg/domain"
	"kudose/pkg/platform/sentinel"
)

// InMemory keeps applications in insertion order. The pending map mirrors
// the partial unique index in postgres.
type InMemory struct {
	mu      *sync.RWMutex
	apps    map[id.ApplicationID]*models.Application
	order   []id.ApplicationID
	pending map[id.PrincipalID]id.ApplicationID
}

type Option func(*InMemory)

// WithSharedLock makes the store use mu instead of its own lock.
func WithSharedLock(mu *sync.RWMutex) Option {
	return func(s *InMemory) {
		s.mu = mu
	}
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		mu:      &sync.RWMutex{},
		apps:    make(map[id.ApplicationID]*models.Application),
		pending: make(map[id.PrincipalID]id.ApplicationID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.IsPending() {
		if _, exists := s.pending[app.PrincipalID]; exists {
			return ErrPendingExists
		}
		s.pending[app.PrincipalID] = app.ID
	}
	s.apps[app.ID] = app.Clone()
	s.order = append(s.order, app.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	return app.Clone(), nil
}

// Latest returns the principal's newest application by created_at; ties go
// to the later insert.
func (s *InMemory) Latest(_ context.Context, principalID id.PrincipalID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Application
	for _, appID := range s.order {
		app := s.apps[appID]
		if app.PrincipalID != principalID {
			continue
		}
		if latest == nil || !app.CreatedAt.Before(latest.CreatedAt) {
			latest = app
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	return latest.Clone(), nil
}

// ListPending returns pending applications oldest first.
func (s *InMemory) ListPending(_ context.Context) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Application, 0, len(s.pending))
	for _, appID := range s.order {
		if app := s.apps[appID]; app.IsPending() {
			out = append(out, app.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) CountPending(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending), nil
}

// Execute runs validate and mutate against a pending application under the
// write lock. A non-pending application is ErrInvalidState unless validate
// rejects it first.
func (s *InMemory) Execute(_ context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeLocked(appID, validate, mutate, nil)
}

func (s *InMemory) executeLocked(appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application), undo map[id.ApplicationID]*models.Application) (*models.Application, error) {
	current, ok := s.apps[appID]
	if !ok {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	next := current.Clone()
	if validate != nil {
		if err := validate(next); err != nil {
			return nil, err
		}
	}
	if !current.IsPending() {
		return nil, fmt.Errorf("application already decided: %w", sentinel.ErrInvalidState)
	}
	mutate(next)

	if undo != nil {
		if _, seen := undo[appID]; !seen {
			undo[appID] = current
		}
	}
	s.apps[appID] = next
	if !next.IsPending() {
		delete(s.pending, next.PrincipalID)
	}
	return next.Clone(), nil
}

// Unlocked returns a rollback-capable view for use while the caller holds
// the shared write lock.
func (s *InMemory) Unlocked() *UnlockedView {
	return &UnlockedView{store: s, undo: make(map[id.ApplicationID]*models.Application)}
}

type UnlockedView struct {
	store *InMemory
	undo  map[id.ApplicationID]*models.Application
}

func (v *UnlockedView) Execute(_ context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	return v.store.executeLocked(appID, validate, mutate, v.undo)
}

// Rollback restores every application written through the view.
func (v *UnlockedView) Rollback() {
	for appID, previous := range v.undo {
		v.store.apps[appID] = previous
		if previous.IsPending() {
			v.store.pending[previous.PrincipalID] = appID
		}
	}
	clear(v.undo)
}
