package file

import (
	"context"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/google/uuid"
)

const activitiesDir = "activities"

// ActivityRepository appends activity entries as files.
type ActivityRepository struct {
	store *Persistence
}

func (ar *ActivityRepository) CreateActivity(_ context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.Must(uuid.NewV7()).String()
	}

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	if err := validateID(activity.ID); err != nil {
		return err
	}

	ar.store.mu.Lock()
	defer ar.store.mu.Unlock()

	return ar.store.write(activitiesDir, activity.ID, activity)
}

// Activities returns every stored activity in creation order.
func (ar *ActivityRepository) Activities(_ context.Context) ([]*models.Activity, error) {
	ar.store.mu.RLock()
	defer ar.store.mu.RUnlock()

	ids, err := ar.store.ids(activitiesDir)
	if err != nil {
		return nil, err
	}

	activities := make([]*models.Activity, 0, len(ids))

	for _, id := range ids {
		var activity models.Activity
		if err := ar.store.read(activitiesDir, id, &activity); err != nil {
			return nil, err
		}

		activities = append(activities, &activity)
	}

	return activities, nil
}
