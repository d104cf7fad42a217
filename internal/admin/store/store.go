// Package store provides the unit of work used to apply seller-application
// decisions: the application update, the owner's promotion and the audit
// record commit together or not at all.
package store

import (
	"context"
	"database/sql"
	"sync"

	"kudose/internal/platform/postgres"
	profilemodels "kudose/internal/profile/models"
	profilestore "kudose/internal/profile/store"
	sellermodels "kudose/internal/seller/models"
	sellerstore "kudose/internal/seller/store"
	id "kudose/pkg/domain"
	dErrors "kudose/pkg/domain-errors"
	"kudose/pkg/platform/dbx"
)

type ApplicationWriter interface {
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*sellermodels.Application) error, mutate func(*sellermodels.Application)) (*sellermodels.Application, error)
}

type ProfileWriter interface {
	Execute(ctx context.Context, principalID id.PrincipalID, validate func(*profilemodels.Profile) error, mutate func(*profilemodels.Profile)) (*profilemodels.Profile, error)
}

// Stores are the writers available inside a unit of work.
type Stores struct {
	Applications ApplicationWriter
	Profiles     ProfileWriter
}

// PostgresTx runs decisions in a database transaction. The postgres stores
// pick the transaction up from the context, as does the outbox-backed audit
// store.
type PostgresTx struct {
	db     *sql.DB
	stores Stores
}

func NewPostgresTx(db *sql.DB, applications *sellerstore.PostgresStore, profiles *profilestore.PostgresStore) *PostgresTx {
	return &PostgresTx{
		db:     db,
		stores: Stores{Applications: applications, Profiles: profiles},
	}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	err := dbx.WithTx(ctx, t.db, nil, func(ctx context.Context, _ dbx.DBTX) error {
		return fn(ctx, t.stores)
	})
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return postgres.Wrap(err, "decision transaction")
}

// InMemoryTx serializes decisions behind the lock shared by the in-memory
// stores and undoes partial writes when fn fails.
type InMemoryTx struct {
	mu           *sync.RWMutex
	applications *sellerstore.InMemory
	profiles     *profilestore.InMemory
}

// NewInMemoryTx expects both stores to have been built WithSharedLock(mu).
func NewInMemoryTx(mu *sync.RWMutex, applications *sellerstore.InMemory, profiles *profilestore.InMemory) *InMemoryTx {
	return &InMemoryTx{mu: mu, applications: applications, profiles: profiles}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	apps := t.applications.Unlocked()
	profiles := t.profiles.Unlocked()
	defer func() {
		if p := recover(); p != nil {
			apps.Rollback()
			profiles.Rollback()
			panic(p)
		}
		if err != nil {
			apps.Rollback()
			profiles.Rollback()
		}
	}()

	return fn(ctx, Stores{Applications: apps, Profiles: profiles})
}
