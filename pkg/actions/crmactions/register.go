package crmactions

import (
	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/crm"
)

// Handlers builds every built-in handler over the given collaborators.
func Handlers(collaborators crm.Collaborators) []actions.Handler {
	return []actions.Handler{
		NewAssignToUser(collaborators.Entities),
		NewAssignToTeam(collaborators.Entities, collaborators.Teams),
		NewChangeStatus(collaborators.Entities),
		NewAddTag(collaborators.Entities),
		NewCreateTask(collaborators.Tasks),
		NewSendEmail(collaborators.Mailer),
		NewUpdateField(collaborators.Entities),
	}
}

// Register adds every built-in handler to executor.
func Register(executor *actions.Executor, collaborators crm.Collaborators) error {
	for _, handler := range Handlers(collaborators) {
		err := executor.Register(handler)
		if err != nil {
			return err
		}
	}

	return nil
}
