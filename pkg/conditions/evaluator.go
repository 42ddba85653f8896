// Package conditions evaluates user-authored condition groups against event payloads.
package conditions

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/payload"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidLogic marks a non-empty group whose logic is neither AND nor OR.
var ErrInvalidLogic = errors.New("invalid condition logic")

// Evaluator applies operators from its registry. Unknown operators fail closed.
type Evaluator struct {
	logger    *slog.Logger
	operators map[models.Operator]OperatorFunc
	validate  *validator.Validate
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger:    logger.With("module", "condition_evaluator"),
		operators: defaultOperators(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register adds or replaces the implementation of an operator.
func (e *Evaluator) Register(operator models.Operator, fn OperatorFunc) {
	e.operators[operator] = fn
}

// EvaluateCondition resolves the condition field and applies its operator.
func (e *Evaluator) EvaluateCondition(condition models.Condition, data map[string]any) bool {
	op, ok := e.operators[condition.Operator]
	if !ok {
		e.logger.Warn("Unknown condition operator, evaluating to false",
			"operator", condition.Operator,
			"field", condition.Field)

		return false
	}

	actual, found := payload.Resolve(data, condition.Field)

	return op(actual, found, condition.Value)
}

// EvaluateGroup reports whether the group passes. A nil or empty group always
// passes. Every condition is evaluated; they are pure so order is irrelevant.
func (e *Evaluator) EvaluateGroup(group *models.ConditionGroup, data map[string]any) (bool, error) {
	if group == nil || len(group.Conditions) == 0 {
		return true, nil
	}

	results := make([]bool, len(group.Conditions))
	for i, condition := range group.Conditions {
		results[i] = e.EvaluateCondition(condition, data)
	}

	switch group.Logic {
	case models.LogicAnd:
		for _, passed := range results {
			if !passed {
				return false, nil
			}
		}

		return true, nil
	case models.LogicOr:
		for _, passed := range results {
			if passed {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidLogic, group.Logic)
	}
}

// Validate checks a group for structural problems before it is stored or run.
// Unknown operators are reported here even though evaluation tolerates them.
func (e *Evaluator) Validate(group *models.ConditionGroup) error {
	if group == nil || len(group.Conditions) == 0 {
		return nil
	}

	if group.Logic != models.LogicAnd && group.Logic != models.LogicOr {
		return fmt.Errorf("%w: %q", ErrInvalidLogic, group.Logic)
	}

	err := e.validate.Struct(group)
	if err != nil {
		return fmt.Errorf("invalid condition group: %w", err)
	}

	for i, condition := range group.Conditions {
		if _, ok := e.operators[condition.Operator]; !ok {
			return fmt.Errorf("condition %d: unknown operator %q", i, condition.Operator)
		}
	}

	return nil
}
