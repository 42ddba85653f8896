package crm

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the in-memory view of a CRM entity.
type Record struct {
	AssignedTo string
	Status     string
	Tags       []string
	Fields     map[string]any
}

// MemoryStore implements every collaborator in process. It backs local
// development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[EntityKind]map[string]*Record
	managers map[string]string
	tasks    []Task
	outbox   []Email
}

func NewMemoryStore() *MemoryStore {
	records := make(map[EntityKind]map[string]*Record, len(Kinds))
	for _, kind := range Kinds {
		records[kind] = make(map[string]*Record)
	}

	return &MemoryStore{
		records:  records,
		managers: make(map[string]string),
	}
}

// Collaborators exposes the store as every collaborator at once.
func (s *MemoryStore) Collaborators() Collaborators {
	return Collaborators{Entities: s, Teams: s, Tasks: s, Mailer: s}
}

// Put seeds a record.
func (s *MemoryStore) Put(kind EntityKind, id string, record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Fields == nil {
		record.Fields = make(map[string]any)
	}

	s.records[kind][id] = &record
}

// SetManager seeds a team's manager.
func (s *MemoryStore) SetManager(teamID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.managers[teamID] = userID
}

// Get returns a copy of a record.
func (s *MemoryStore) Get(kind EntityKind, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[kind][id]
	if !ok {
		return Record{}, false
	}

	copied := *record
	copied.Tags = slices.Clone(record.Tags)
	copied.Fields = maps.Clone(record.Fields)

	return copied, true
}

func (s *MemoryStore) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.tasks)
}

func (s *MemoryStore) Outbox() []Email {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.outbox)
}

func (s *MemoryStore) mutate(kind EntityKind, id string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.records[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntityKind, kind)
	}

	record, ok := byID[id]
	if !ok {
		return ErrEntityNotFound
	}

	fn(record)

	return nil
}

func (s *MemoryStore) Assign(_ context.Context, kind EntityKind, id, userID string) error {
	return s.mutate(kind, id, func(r *Record) { r.AssignedTo = userID })
}

func (s *MemoryStore) ChangeStatus(_ context.Context, kind EntityKind, id, status string) error {
	return s.mutate(kind, id, func(r *Record) { r.Status = status })
}

func (s *MemoryStore) AddTag(_ context.Context, kind EntityKind, id, tag string) error {
	return s.mutate(kind, id, func(r *Record) {
		if !slices.Contains(r.Tags, tag) {
			r.Tags = append(r.Tags, tag)
		}
	})
}

func (s *MemoryStore) UpdateField(_ context.Context, kind EntityKind, id, field string, value any) error {
	return s.mutate(kind, id, func(r *Record) { r.Fields[field] = value })
}

func (s *MemoryStore) Manager(_ context.Context, teamID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manager, ok := s.managers[teamID]
	if !ok || manager == "" {
		return "", ErrTeamManagerNotFound
	}

	return manager, nil
}

func (s *MemoryStore) Create(_ context.Context, task Task) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	s.tasks = append(s.tasks, task)

	return task.ID, nil
}

func (s *MemoryStore) Send(_ context.Context, email Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbox = append(s.outbox, email)

	return nil
}
