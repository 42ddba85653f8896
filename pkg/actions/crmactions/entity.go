package crmactions

import (
	"context"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/models"
)

type ChangeStatus struct {
	entities crm.Entities
}

func NewChangeStatus(entities crm.Entities) *ChangeStatus {
	return &ChangeStatus{entities: entities}
}

func (*ChangeStatus) Type() models.ActionType { return models.ActionChangeStatus }

func (*ChangeStatus) Description() string {
	return "Moves the triggering entity to a new status."
}

func (*ChangeStatus) Schema() map[string]any {
	return objectSchema(map[string]any{
		"status": map[string]any{"type": "string", "minLength": 1},
	}, "status")
}

func (a *ChangeStatus) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	target, err := resolveTarget(req.Config, req.Payload, req.Trigger)
	if err != nil {
		return nil, err
	}

	status := configString(req.Config, "status")

	err = a.entities.ChangeStatus(ctx, target.kind, target.id, status)
	if err != nil {
		return nil, err
	}

	return map[string]any{"statusChanged": true, "status": status}, nil
}

type AddTag struct {
	entities crm.Entities
}

func NewAddTag(entities crm.Entities) *AddTag {
	return &AddTag{entities: entities}
}

func (*AddTag) Type() models.ActionType { return models.ActionAddTag }

func (*AddTag) Description() string {
	return "Adds a tag to the triggering entity. Existing tags are kept."
}

func (*AddTag) Schema() map[string]any {
	return objectSchema(map[string]any{
		"tag": map[string]any{"type": "string", "minLength": 1},
	}, "tag")
}

func (a *AddTag) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	target, err := resolveTarget(req.Config, req.Payload, req.Trigger)
	if err != nil {
		return nil, err
	}

	tag := configString(req.Config, "tag")

	err = a.entities.AddTag(ctx, target.kind, target.id, tag)
	if err != nil {
		return nil, err
	}

	return map[string]any{"tagAdded": true, "tag": tag}, nil
}

type UpdateField struct {
	entities crm.Entities
}

func NewUpdateField(entities crm.Entities) *UpdateField {
	return &UpdateField{entities: entities}
}

func (*UpdateField) Type() models.ActionType { return models.ActionUpdateField }

func (*UpdateField) Description() string {
	return "Sets a custom field on the triggering entity."
}

func (*UpdateField) Schema() map[string]any {
	return objectSchema(map[string]any{
		"field": map[string]any{"type": "string", "minLength": 1},
		"value": map[string]any{"description": "Any JSON value"},
	}, "field", "value")
}

func (a *UpdateField) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	target, err := resolveTarget(req.Config, req.Payload, req.Trigger)
	if err != nil {
		return nil, err
	}

	field := configString(req.Config, "field")
	value := req.Config["value"]

	err = a.entities.UpdateField(ctx, target.kind, target.id, field, value)
	if err != nil {
		return nil, err
	}

	return map[string]any{"fieldUpdated": true, "field": field, "value": value}, nil
}
