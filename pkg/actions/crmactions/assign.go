package crmactions

import (
	"context"
	"fmt"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/models"
)

type AssignToUser struct {
	entities crm.Entities
}

func NewAssignToUser(entities crm.Entities) *AssignToUser {
	return &AssignToUser{entities: entities}
}

func (*AssignToUser) Type() models.ActionType { return models.ActionAssignToUser }

func (*AssignToUser) Description() string {
	return "Assigns the triggering entity to a user."
}

func (*AssignToUser) Schema() map[string]any {
	return objectSchema(map[string]any{
		"userId": idSchema("User receiving the assignment"),
	}, "userId")
}

func (a *AssignToUser) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	target, err := resolveTarget(req.Config, req.Payload, req.Trigger)
	if err != nil {
		return nil, err
	}

	err = a.entities.Assign(ctx, target.kind, target.id, configString(req.Config, "userId"))
	if err != nil {
		return nil, err
	}

	return map[string]any{"assigned": true, "userId": req.Config["userId"]}, nil
}

// AssignToTeam assigns the entity to the manager of a team.
type AssignToTeam struct {
	entities crm.Entities
	teams    crm.Teams
}

func NewAssignToTeam(entities crm.Entities, teams crm.Teams) *AssignToTeam {
	return &AssignToTeam{entities: entities, teams: teams}
}

func (*AssignToTeam) Type() models.ActionType { return models.ActionAssignToTeam }

func (*AssignToTeam) Description() string {
	return "Assigns the triggering entity to the manager of a team."
}

func (*AssignToTeam) Schema() map[string]any {
	return objectSchema(map[string]any{
		"teamId": idSchema("Team whose manager receives the assignment"),
	}, "teamId")
}

func (a *AssignToTeam) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	target, err := resolveTarget(req.Config, req.Payload, req.Trigger)
	if err != nil {
		return nil, err
	}

	teamID := configString(req.Config, "teamId")

	manager, err := a.teams.Manager(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if manager == "" {
		return nil, crm.ErrTeamManagerNotFound
	}

	err = a.entities.Assign(ctx, target.kind, target.id, manager)
	if err != nil {
		return nil, fmt.Errorf("assign to manager %s: %w", manager, err)
	}

	return map[string]any{"assigned": true, "teamId": req.Config["teamId"], "userId": manager}, nil
}
