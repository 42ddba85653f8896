package models

// Logic joins the conditions of a group.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Operator compares a resolved payload value with a condition value.
type Operator string

const (
	OperatorEquals             Operator = "EQUALS"
	OperatorNotEquals          Operator = "NOT_EQUALS"
	OperatorContains           Operator = "CONTAINS"
	OperatorNotContains        Operator = "NOT_CONTAINS"
	OperatorGreaterThan        Operator = "GREATER_THAN"
	OperatorLessThan           Operator = "LESS_THAN"
	OperatorGreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	OperatorLessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	OperatorIsEmpty            Operator = "IS_EMPTY"
	OperatorIsNotEmpty         Operator = "IS_NOT_EMPTY"
)

// ConditionGroup is a flat AND/OR group. An empty group always passes.
type ConditionGroup struct {
	Logic      Logic       `json:"logic"`
	Conditions []Condition `json:"conditions" validate:"dive"`
}

// Condition tests the payload value at Field (a dot path).
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value,omitempty"`
}
