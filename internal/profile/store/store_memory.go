package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kudose/internal/profile/models"
	id "kudose/pkg/domain"
	"kudose/pkg/platform/sentinel"
)

// InMemory stores profiles in maps for tests and dev mode. The confirmed
// handle index mirrors the unique index on profiles.handle.
type InMemory struct {
	mu       *sync.RWMutex
	profiles map[id.PrincipalID]*models.Profile
	handles  map[string]id.PrincipalID
}

type Option func(*InMemory)

// WithSharedLock makes the store use mu instead of its own lock, so a unit of
// work spanning several in-memory stores can hold one lock for all of them.
func WithSharedLock(mu *sync.RWMutex) Option {
	return func(s *InMemory) {
		s.mu = mu
	}
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		mu:       &sync.RWMutex{},
		profiles: make(map[id.PrincipalID]*models.Profile),
		handles:  make(map[string]id.PrincipalID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) FindByID(_ context.Context, principalID id.PrincipalID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[principalID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return p.Clone(), nil
}

// FindByHandle only resolves confirmed handles.
func (s *InMemory) FindByHandle(_ context.Context, handle string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.handles[handle]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return s.profiles[owner].Clone(), nil
}

// CreateIfAbsent inserts p unless a profile with the same id exists. It
// returns the stored row and whether this call created it.
func (s *InMemory) CreateIfAbsent(_ context.Context, p *models.Profile) (*models.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[p.ID]; ok {
		return existing.Clone(), false, nil
	}
	s.profiles[p.ID] = p.Clone()
	return p.Clone(), true, nil
}

// ConfirmHandle sets and confirms the handle if the profile is unconfirmed
// and no other profile holds it.
func (s *InMemory) ConfirmHandle(_ context.Context, principalID id.PrincipalID, handle string, now time.Time) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[principalID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	if p.HandleConfirmed {
		return nil, fmt.Errorf("handle already confirmed: %w", sentinel.ErrInvalidState)
	}
	if owner, taken := s.handles[handle]; taken && owner != principalID {
		return nil, ErrHandleTaken
	}
	p.ApplyHandleConfirmation(handle, now)
	s.handles[handle] = principalID
	return p.Clone(), nil
}

// Execute loads the profile, runs validate, applies mutate and stores the
// result atomically. Only display name, bio and role are persisted.
func (s *InMemory) Execute(ctx context.Context, principalID id.PrincipalID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeLocked(principalID, validate, mutate, nil)
}

func (s *InMemory) executeLocked(principalID id.PrincipalID, validate func(*models.Profile) error, mutate func(*models.Profile), undo map[id.PrincipalID]*models.Profile) (*models.Profile, error) {
	current, ok := s.profiles[principalID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	next := current.Clone()
	if validate != nil {
		if err := validate(next); err != nil {
			return nil, err
		}
	}
	mutate(next)

	stored := current.Clone()
	stored.DisplayName = next.DisplayName
	stored.Bio = next.Bio
	stored.Role = next.Role
	stored.UpdatedAt = next.UpdatedAt

	if undo != nil {
		if _, seen := undo[principalID]; !seen {
			undo[principalID] = current
		}
	}
	s.profiles[principalID] = stored
	return stored.Clone(), nil
}

// Unlocked returns a view whose writes skip locking and can be rolled back.
// The caller must hold the (shared) write lock for the view's lifetime.
func (s *InMemory) Unlocked() *UnlockedView {
	return &UnlockedView{store: s, undo: make(map[id.PrincipalID]*models.Profile)}
}

// UnlockedView is a rollback-capable writer used inside an in-memory unit of
// work.
type UnlockedView struct {
	store *InMemory
	undo  map[id.PrincipalID]*models.Profile
}

func (v *UnlockedView) Execute(_ context.Context, principalID id.PrincipalID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	return v.store.executeLocked(principalID, validate, mutate, v.undo)
}

// Rollback restores every profile written through the view.
func (v *UnlockedView) Rollback() {
	for pid, previous := range v.undo {
		v.store.profiles[pid] = previous
	}
	clear(v.undo)
}

// SetAdmin flips the out-of-band admin flag. Dev seeding and tests only.
func (s *InMemory) SetAdmin(principalID id.PrincipalID, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[principalID]
	if !ok {
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	p.IsAdmin = isAdmin
	return nil
}
