package models

// ActionType selects the handler an action is dispatched to.
type ActionType string

const (
	ActionAssignToUser ActionType = "ASSIGN_TO_USER"
	ActionAssignToTeam ActionType = "ASSIGN_TO_TEAM"
	ActionChangeStatus ActionType = "CHANGE_STATUS"
	ActionAddTag       ActionType = "ADD_TAG"
	ActionCreateTask   ActionType = "CREATE_TASK"
	ActionSendEmail    ActionType = "SEND_EMAIL"
	ActionUpdateField  ActionType = "UPDATE_FIELD"
)

// ActionSpec is one step of a workflow.
type ActionSpec struct {
	Type   ActionType     `json:"type"             validate:"required"`
	Config map[string]any `json:"config,omitempty"`
}

// ActionOutcome is the recorded result of one action in a pipeline run.
type ActionOutcome struct {
	Type    ActionType     `json:"type"`
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}
