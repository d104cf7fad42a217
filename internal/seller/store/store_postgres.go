package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kudose/internal/platform/postgres"
	"kudose/internal/seller/models"
	id "kudose/pkg/domain"
	"kudose/pkg/platform/dbx"
	"kudose/pkg/platform/sentinel"
	txcontext "kudose/pkg/platform/tx"
)

const (
	applicationColumns = `id, principal_id, status, display_name, discord_name, vrchat_name, contact_email,
		store_or_social_link, tos_agreed, decision_note, decided_by, decided_at,
		submitted_ip, submitted_user_agent, submitted_device, created_at`

	onePendingConstraint = "seller_applications_one_pending"
)

// PostgresStore persists seller applications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbx.DBTX {
	return dbx.Conn(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO seller_applications (
			id, principal_id, status, display_name, discord_name, vrchat_name, contact_email,
			store_or_social_link, tos_agreed, submitted_ip, submitted_user_agent, submitted_device, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID),
		uuid.UUID(app.PrincipalID),
		string(app.Status),
		nullString(app.DisplayName),
		app.DiscordName,
		app.VRChatName,
		app.ContactEmail,
		app.StoreOrSocialLink,
		app.TOSAgreed,
		emptyToNull(app.SubmittedIP),
		emptyToNull(app.SubmittedUserAgent),
		emptyToNull(app.SubmittedDevice),
		app.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, onePendingConstraint):
		return ErrPendingExists
	case postgres.IsForeignKeyViolation(err):
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	default:
		return postgres.Wrap(err, "insert seller application")
	}
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM seller_applications WHERE id = $1`
	app, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
		}
		return nil, postgres.Wrap(err, "find seller application")
	}
	return app, nil
}

func (s *PostgresStore) Latest(ctx context.Context, principalID id.PrincipalID) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM seller_applications
		WHERE principal_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	app, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(principalID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
		}
		return nil, postgres.Wrap(err, "latest seller application")
	}
	return app, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM seller_applications
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, postgres.Wrap(err, "list pending applications")
	}
	defer rows.Close()

	out := []*models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, postgres.Wrap(err, "scan pending application")
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Wrap(err, "list pending applications")
	}
	return out, nil
}

func (s *PostgresStore) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM seller_applications WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, postgres.Wrap(err, "count pending applications")
	}
	return n, nil
}

// Execute locks the application row for the rest of the transaction, runs
// validate and mutate, and writes the decision columns back. The update is
// conditioned on the row still being pending.
func (s *PostgresStore) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	if _, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, s.execer(ctx), appID, validate, mutate)
	}
	var out *models.Application
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		out, err = s.execute(ctx, q, appID, validate, mutate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) execute(ctx context.Context, q dbx.DBTX, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM seller_applications WHERE id = $1 FOR UPDATE`
	app, err := scanApplication(q.QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
		}
		return nil, postgres.Wrap(err, "lock seller application")
	}
	if validate != nil {
		if err := validate(app); err != nil {
			return nil, err
		}
	}
	mutate(app)

	var decidedBy any
	if app.DecidedBy != nil {
		decidedBy = uuid.UUID(*app.DecidedBy)
	}
	update := `
		UPDATE seller_applications
		SET status = $2, decision_note = $3, decided_by = $4, decided_at = $5
		WHERE id = $1 AND status = 'pending'
	`
	res, err := q.ExecContext(ctx, update, uuid.UUID(appID), string(app.Status), nullString(app.DecisionNote), decidedBy, app.DecidedAt)
	if err != nil {
		return nil, postgres.Wrap(err, "update seller application")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, postgres.Wrap(err, "update seller application")
	}
	if n == 0 {
		return nil, fmt.Errorf("application already decided: %w", sentinel.ErrInvalidState)
	}
	return app, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app                                       models.Application
		appID, principalID                        uuid.UUID
		status                                    string
		displayName, note                         sql.NullString
		decidedBy                                 uuid.NullUUID
		decidedAt                                 sql.NullTime
		submittedIP, submittedUA, submittedDevice sql.NullString
	)
	err := row.Scan(&appID, &principalID, &status, &displayName, &app.DiscordName, &app.VRChatName, &app.ContactEmail,
		&app.StoreOrSocialLink, &app.TOSAgreed, &note, &decidedBy, &decidedAt,
		&submittedIP, &submittedUA, &submittedDevice, &app.CreatedAt)
	if err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(appID)
	app.PrincipalID = id.PrincipalID(principalID)
	app.Status = models.Status(status)
	app.DisplayName = stringPtr(displayName)
	app.DecisionNote = stringPtr(note)
	if decidedBy.Valid {
		v := id.PrincipalID(decidedBy.UUID)
		app.DecidedBy = &v
	}
	if decidedAt.Valid {
		v := decidedAt.Time
		app.DecidedAt = &v
	}
	app.SubmittedIP = submittedIP.String
	app.SubmittedUserAgent = submittedUA.String
	app.SubmittedDevice = submittedDevice.String
	return &app, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
