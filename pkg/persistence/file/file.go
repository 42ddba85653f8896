// Package file provides file-based persistence for workflows, execution
// records and activities. Each entity is one JSON file under the root.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Persistence implements persistence.Persistence using the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex

	*WorkflowRepository
	*ExecutionRepository
	*ActivityRepository
}

// NewPersistence creates a file backend rooted at root, which may carry a
// file:// prefix.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.WorkflowRepository = &WorkflowRepository{store: p}
	p.ExecutionRepository = &ExecutionRepository{store: p}
	p.ActivityRepository = &ActivityRepository{store: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// validateID rejects ids that would escape their directory.
func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

func (p *Persistence) path(dir, id string) string {
	return filepath.Join(p.root, dir, id+".json")
}

func (p *Persistence) write(dir, id string, value any) error {
	err := os.MkdirAll(filepath.Join(p.root, dir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", dir, id, err)
	}

	tmp := p.path(dir, id) + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", dir, id, err)
	}

	return os.Rename(tmp, p.path(dir, id))
}

// read returns os.ErrNotExist when the file is missing.
func (p *Persistence) read(dir, id string, value any) error {
	data, err := os.ReadFile(p.path(dir, id)) // #nosec G304 -- id is validated by callers
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", dir, id, err)
	}

	return nil
}

func (p *Persistence) ids(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.root, dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(match), ".json"))
	}

	return ids, nil
}
