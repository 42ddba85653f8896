package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/persistence/sqlbase"
	"github.com/google/uuid"
)

const migrationsTable = "crm_schema_migrations"

var entityTables = map[EntityKind]string{
	KindLead:    "leads",
	KindDeal:    "deals",
	KindContact: "contacts",
}

func crmMigrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS leads (
				id VARCHAR(255) PRIMARY KEY,
				assigned_to VARCHAR(255),
				status VARCHAR(100),
				tags TEXT[] NOT NULL DEFAULT '{}',
				custom_fields JSONB NOT NULL DEFAULT '{}',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS deals (LIKE leads INCLUDING ALL);
			CREATE TABLE IF NOT EXISTS contacts (LIKE leads INCLUDING ALL);

			CREATE TABLE IF NOT EXISTS teams (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				manager_id VARCHAR(255)
			);

			CREATE TABLE IF NOT EXISTS tasks (
				id UUID PRIMARY KEY,
				title VARCHAR(500) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				entity_kind VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				assignee_id VARCHAR(255),
				due_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_tasks_entity ON tasks(entity_kind, entity_id);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS email_outbox (
				id BIGSERIAL PRIMARY KEY,
				recipient VARCHAR(320) NOT NULL,
				subject TEXT NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				entity_kind VARCHAR(50),
				entity_id VARCHAR(255),
				queued_at TIMESTAMP WITH TIME ZONE NOT NULL,
				sent_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_email_outbox_pending ON email_outbox(queued_at) WHERE sent_at IS NULL;
		`,
	}
}

// PostgresStore implements every collaborator over PostgreSQL. Emails are
// queued in the email_outbox table for a separate sender.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.With("module", "crm_postgres")}
}

// Collaborators exposes the store as every collaborator at once.
func (s *PostgresStore) Collaborators() Collaborators {
	return Collaborators{Entities: s, Teams: s, Tasks: s, Mailer: s}
}

// Migrate creates the CRM tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return sqlbase.NewMigrationManager(s.logger, s.db, migrationsTable, crmMigrations()).RunMigrations(ctx)
}

func (s *PostgresStore) update(ctx context.Context, kind EntityKind, id, set string, args ...any) error {
	table, ok := entityTables[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntityKind, kind)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d", table, set, len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrEntityNotFound
	}

	return nil
}

func (s *PostgresStore) Assign(ctx context.Context, kind EntityKind, id, userID string) error {
	return s.update(ctx, kind, id, "assigned_to = $1", userID)
}

func (s *PostgresStore) ChangeStatus(ctx context.Context, kind EntityKind, id, status string) error {
	return s.update(ctx, kind, id, "status = $1", status)
}

func (s *PostgresStore) AddTag(ctx context.Context, kind EntityKind, id, tag string) error {
	return s.update(ctx, kind, id,
		"tags = CASE WHEN $1 = ANY(tags) THEN tags ELSE array_append(tags, $1) END", tag)
}

func (s *PostgresStore) UpdateField(ctx context.Context, kind EntityKind, id, field string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal field value: %w", err)
	}

	return s.update(ctx, kind, id,
		"custom_fields = custom_fields || jsonb_build_object($1::text, $2::jsonb)", field, string(encoded))
}

func (s *PostgresStore) Manager(ctx context.Context, teamID string) (string, error) {
	var manager sql.NullString

	err := s.db.QueryRowContext(ctx, "SELECT manager_id FROM teams WHERE id = $1", teamID).Scan(&manager)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && manager.String == "") {
		return "", ErrTeamManagerNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to query team %s: %w", teamID, err)
	}

	return manager.String, nil
}

func (s *PostgresStore) Create(ctx context.Context, task Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, entity_kind, entity_id, assignee_id, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		task.ID, task.Title, task.Description, string(task.EntityKind), task.EntityID,
		task.AssigneeID, task.DueAt, task.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	return task.ID, nil
}

func (s *PostgresStore) Send(ctx context.Context, email Email) error {
	if email.QueuedAt.IsZero() {
		email.QueuedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_outbox (recipient, subject, body, entity_kind, entity_id, queued_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		email.To, email.Subject, email.Body, string(email.EntityKind), email.EntityID, email.QueuedAt)
	if err != nil {
		return fmt.Errorf("failed to queue email: %w", err)
	}

	return nil
}
