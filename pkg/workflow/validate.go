package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

var ErrUnknownActionType = errors.New("unknown action type")

// ActionCatalog knows the registered action types and their config schemas.
type ActionCatalog interface {
	Handler(actionType models.ActionType) (actions.Handler, bool)
	Validate(spec models.ActionSpec) error
}

// ConditionValidator checks a condition group's structure.
type ConditionValidator interface {
	Validate(group *models.ConditionGroup) error
}

// DefinitionValidator checks stored workflow definitions before they are
// saved or when they are audited. The runner itself tolerates unknown action
// types; definitions are held to a stricter standard.
type DefinitionValidator struct {
	catalog    ActionCatalog
	conditions ConditionValidator
	validate   *validator.Validate
}

func NewDefinitionValidator(catalog ActionCatalog, conditions ConditionValidator) *DefinitionValidator {
	return &DefinitionValidator{
		catalog:    catalog,
		conditions: conditions,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate returns every problem found in the definition joined together.
func (v *DefinitionValidator) Validate(workflow *models.Workflow) error {
	var errs []error

	err := v.validate.Struct(workflow)
	if err != nil {
		errs = append(errs, err)
	}

	err = v.conditions.Validate(workflow.Conditions)
	if err != nil {
		errs = append(errs, fmt.Errorf("conditions: %w", err))
	}

	for i, spec := range workflow.Actions {
		if _, ok := v.catalog.Handler(spec.Type); !ok {
			errs = append(errs, fmt.Errorf("actions[%d]: %w %q", i, ErrUnknownActionType, spec.Type))

			continue
		}

		err := v.catalog.Validate(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("actions[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
