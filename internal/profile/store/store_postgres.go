package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kudose/internal/platform/postgres"
	"kudose/internal/profile/models"
	id "kudose/pkg/domain"
	"kudose/pkg/platform/dbx"
	"kudose/pkg/platform/sentinel"
	txcontext "kudose/pkg/platform/tx"
)

const (
	profileColumns = `id, email, handle, display_name, handle_confirmed, bio, role, is_admin, created_at, updated_at`

	handleConstraint = "profiles_handle_key"
)

// PostgresStore persists profiles in PostgreSQL. Calls join the transaction
// carried in ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbx.DBTX {
	return dbx.Conn(ctx, s.db)
}

func (s *PostgresStore) FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(principalID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, postgres.Wrap(err, "find profile by id")
	}
	return p, nil
}

// FindByHandle only resolves confirmed handles.
func (s *PostgresStore) FindByHandle(ctx context.Context, handle string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE handle = $1 AND handle_confirmed`
	p, err := scanProfile(s.execer(ctx).QueryRowContext(ctx, query, handle))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, postgres.Wrap(err, "find profile by handle")
	}
	return p, nil
}

// CreateIfAbsent inserts p with ON CONFLICT DO NOTHING. When the row already
// exists (including one inserted by a concurrent caller) it is read back.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, bool, error) {
	query := `
		INSERT INTO profiles (id, email, handle_confirmed, role, is_admin, created_at, updated_at)
		VALUES ($1, $2, FALSE, $3, FALSE, $4, $5)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + profileColumns
	created, err := scanProfile(s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(p.ID), nullString(p.Email), string(p.Role), p.CreatedAt, p.UpdatedAt,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, postgres.Wrap(err, "insert profile")
	}

	existing, err := s.FindByID(ctx, p.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ConfirmHandle is a compare-and-swap on handle_confirmed. A lost race is
// reported as ErrInvalidState, a taken handle as ErrHandleTaken.
func (s *PostgresStore) ConfirmHandle(ctx context.Context, principalID id.PrincipalID, handle string, now time.Time) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET handle = $2,
			display_name = COALESCE(NULLIF(display_name, ''), $2),
			handle_confirmed = TRUE,
			updated_at = $3
		WHERE id = $1 AND handle_confirmed = FALSE
		RETURNING ` + profileColumns
	p, err := scanProfile(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(principalID), handle, now))
	if err == nil {
		return p, nil
	}
	if postgres.IsUniqueViolation(err, handleConstraint) {
		return nil, ErrHandleTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, postgres.Wrap(err, "confirm handle")
	}

	// Nothing updated: either the profile is missing or it is already confirmed.
	if _, err := s.FindByID(ctx, principalID); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("handle already confirmed: %w", sentinel.ErrInvalidState)
}

// Execute locks the row, runs validate and mutate, and writes back the
// mutable columns. It opens its own transaction unless ctx carries one.
func (s *PostgresStore) Execute(ctx context.Context, principalID id.PrincipalID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	if _, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, s.execer(ctx), principalID, validate, mutate)
	}
	var out *models.Profile
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		out, err = s.execute(ctx, q, principalID, validate, mutate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) execute(ctx context.Context, q dbx.DBTX, principalID id.PrincipalID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1 FOR UPDATE`
	p, err := scanProfile(q.QueryRowContext(ctx, query, uuid.UUID(principalID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, postgres.Wrap(err, "lock profile")
	}
	if validate != nil {
		if err := validate(p); err != nil {
			return nil, err
		}
	}
	mutate(p)

	update := `
		UPDATE profiles
		SET display_name = $2, bio = $3, role = $4, updated_at = $5
		WHERE id = $1
	`
	if _, err := q.ExecContext(ctx, update,
		uuid.UUID(principalID), nullString(p.DisplayName), nullString(p.Bio), string(p.Role), p.UpdatedAt,
	); err != nil {
		return nil, postgres.Wrap(err, "update profile")
	}
	return p, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var (
		p                               models.Profile
		pid                             uuid.UUID
		email, handle, displayName, bio sql.NullString
		role                            string
	)
	if err := row.Scan(&pid, &email, &handle, &displayName, &p.HandleConfirmed, &bio, &role, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.PrincipalID(pid)
	p.Email = stringPtr(email)
	p.Handle = stringPtr(handle)
	p.DisplayName = stringPtr(displayName)
	p.Bio = stringPtr(bio)
	p.Role = models.Role(role)
	if !p.Role.IsValid() {
		return nil, fmt.Errorf("profile %s has unknown role %q", p.ID, role)
	}
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
