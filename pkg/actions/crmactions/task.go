package crmactions

import (
	"context"
	"strconv"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/payload"
)

type CreateTask struct {
	tasks crm.Tasks
	now   func() time.Time
}

func NewCreateTask(tasks crm.Tasks) *CreateTask {
	return &CreateTask{tasks: tasks, now: time.Now}
}

func (*CreateTask) Type() models.ActionType { return models.ActionCreateTask }

func (*CreateTask) Description() string {
	return "Creates a follow-up task linked to the triggering entity."
}

func (*CreateTask) Schema() map[string]any {
	return objectSchema(map[string]any{
		"title":       map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"dueInDays":   map[string]any{"type": "integer", "minimum": 0},
		"assigneeId":  idSchema("User the task is assigned to. Defaults to the entity's assignee."),
	}, "title")
}

func (a *CreateTask) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	target, err := resolveTarget(req.Config, req.Payload, req.Trigger)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	task := crm.Task{
		Title:       configString(req.Config, "title"),
		Description: configString(req.Config, "description"),
		EntityKind:  target.kind,
		EntityID:    target.id,
		AssigneeID:  configString(req.Config, "assigneeId"),
		CreatedAt:   now,
	}

	if task.AssigneeID == "" {
		if assigned, ok := payload.Resolve(req.Payload, "assignedTo"); ok {
			task.AssigneeID = stringify(assigned)
		}
	}

	if days, ok := req.Config["dueInDays"]; ok {
		if n, err := strconv.Atoi(stringify(days)); err == nil {
			due := now.AddDate(0, 0, n)
			task.DueAt = &due
		}
	}

	id, err := a.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	return map[string]any{"taskCreated": true, "taskId": id}, nil
}
