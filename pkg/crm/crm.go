// Package crm defines the narrow write operations workflow actions perform on
// CRM records, and implementations of them.
package crm

import (
	"context"
	"errors"
	"time"
)

// EntityKind names the CRM record type an action targets.
type EntityKind string

const (
	KindLead    EntityKind = "lead"
	KindDeal    EntityKind = "deal"
	KindContact EntityKind = "contact"
)

// Kinds lists the supported entity kinds.
var Kinds = []EntityKind{KindLead, KindDeal, KindContact}

// Valid reports whether k is a supported kind.
func (k EntityKind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}

	return false
}

// Messages below are surfaced verbatim in action outcomes.
var (
	ErrEntityIDMissing     = errors.New("Entity id not found in payload") //nolint:staticcheck
	ErrEntityNotFound      = errors.New("Entity not found")               //nolint:staticcheck
	ErrTeamManagerNotFound = errors.New("Team manager not found")         //nolint:staticcheck
	ErrUnknownEntityKind   = errors.New("unknown entity kind")
)

// Entities mutates lead, deal and contact records.
type Entities interface {
	Assign(ctx context.Context, kind EntityKind, id, userID string) error
	ChangeStatus(ctx context.Context, kind EntityKind, id, status string) error
	AddTag(ctx context.Context, kind EntityKind, id, tag string) error
	UpdateField(ctx context.Context, kind EntityKind, id, field string, value any) error
}

// Teams looks up team membership.
type Teams interface {
	// Manager returns the manager's user id or ErrTeamManagerNotFound.
	Manager(ctx context.Context, teamID string) (string, error)
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	EntityKind  EntityKind `json:"entity_kind"`
	EntityID    string     `json:"entity_id"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Tasks creates follow-up tasks.
type Tasks interface {
	Create(ctx context.Context, task Task) (string, error)
}

type Email struct {
	To         string     `json:"to"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	EntityKind EntityKind `json:"entity_kind,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	QueuedAt   time.Time  `json:"queued_at"`
}

// Mailer accepts an email for delivery.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// Collaborators bundles everything the built-in action handlers need.
type Collaborators struct {
	Entities Entities
	Teams    Teams
	Tasks    Tasks
	Mailer   Mailer
}
