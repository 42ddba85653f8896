// Package postgresql provides PostgreSQL persistence for workflows,
// execution records and activities.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements persistence.Persistence for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	*WorkflowRepository
	*ExecutionRepository
	*ActivityRepository
}

// NewPersistence connects, pings and migrates the database.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgresql")

	err = sqlbase.NewMigrationManager(logger, database, sqlbase.DefaultTable, migrations()).RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:                  database,
		logger:              logger,
		WorkflowRepository:  NewWorkflowRepository(database, logger),
		ExecutionRepository: NewExecutionRepository(database, logger),
		ActivityRepository:  NewActivityRepository(database),
	}, nil
}

// DB exposes the connection for collaborators sharing the database.
func (p *Persistence) DB() *sql.DB {
	return p.db
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
