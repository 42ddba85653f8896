package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/google/uuid"
)

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate activity ID: %w", err)
		}

		activity.ID = id.String()
	}

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	metadata, err := toJSON(activity.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO activities (id, type, workflow_id, execution_id, user_id, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		activity.ID, activity.Type, activity.WorkflowID, activity.ExecutionID, activity.UserID,
		activity.Description, metadata, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}
