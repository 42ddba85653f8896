package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/postgresql"
	"github.com/redis/go-redis/v9"
)

// NewCollaborators picks the CRM backend that matches the persistence
// backend and, when redisURL is set, routes SEND_EMAIL to the Redis outbox.
// The returned func releases the Redis client.
func NewCollaborators(ctx context.Context, logger *slog.Logger, store persistence.Persistence, redisURL string) (crm.Collaborators, func() error) {
	var collaborators crm.Collaborators

	if pg, ok := store.(*postgresql.Persistence); ok {
		entities := crm.NewPostgresStore(pg.DB(), logger)

		err := entities.Migrate(ctx)
		if err != nil {
			panic(fmt.Errorf("failed to migrate CRM tables: %w", err))
		}

		collaborators = entities.Collaborators()
	} else {
		logger.Warn("Using in-memory CRM collaborators; entity changes are not persisted")

		collaborators = crm.NewMemoryStore().Collaborators()
	}

	if redisURL == "" {
		return collaborators, func() error { return nil }
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis url: %w", err))
	}

	client := redis.NewClient(options)
	collaborators.Mailer = crm.NewRedisMailer(client, crm.DefaultOutboxKey)

	return collaborators, client.Close
}
