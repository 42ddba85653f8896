package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	errUsage              = errors.New("usage")
	errInvalidDefinitions = errors.New("invalid workflow definitions")
)

type triggerDispatcher interface {
	Dispatch(ctx context.Context, trigger string, data map[string]any) ([]workflow.RunOutcome, error)
}

type definitionValidator interface {
	Validate(definition *models.Workflow) error
}

// readPayload decodes the trigger payload from inline JSON or a file. No
// source yields an empty payload.
func readPayload(inline, path string, stdin io.Reader) (map[string]any, error) {
	if inline != "" && path != "" {
		return nil, fmt.Errorf("%w: --data and --file are mutually exclusive", errUsage)
	}

	var raw []byte

	switch {
	case inline != "":
		raw = []byte(inline)
	case path == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
		}

		raw = data
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}

		raw = data
	default:
		return map[string]any{}, nil
	}

	payload := map[string]any{}
	if strings.TrimSpace(string(raw)) == "" {
		return payload, nil
	}

	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}

	return payload, nil
}

func dispatch(ctx context.Context, out io.Writer, dispatcher triggerDispatcher, trigger string, data map[string]any) error {
	outcomes, err := dispatcher.Dispatch(ctx, trigger, data)
	if err != nil {
		return fmt.Errorf("failed to dispatch %s: %w", trigger, err)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(map[string]any{
		"trigger":  trigger,
		"matched":  len(outcomes),
		"outcomes": outcomes,
	})
}

func history(ctx context.Context, out io.Writer, executions persistence.ExecutionStore, workflowID string, limit int) error {
	records, err := executions.ExecutionsByWorkflow(ctx, workflowID, persistence.ClampLimit(limit))
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tERROR")

	for _, record := range records {
		duration := "-"
		if record.CompletedAt != nil {
			duration = record.CompletedAt.Sub(record.StartedAt).Round(time.Millisecond).String()
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			record.ID,
			record.Status,
			record.StartedAt.Format(time.RFC3339),
			duration,
			record.ErrorMessage,
		)
	}

	return w.Flush()
}

// decodeDefinitions accepts a single workflow or a list, in YAML or JSON.
// YAML is normalized through JSON so the model's json tags apply.
func decodeDefinitions(data []byte) ([]*models.Workflow, error) {
	var document any

	err := yaml.Unmarshal(data, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}

	normalized, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize definitions: %w", err)
	}

	if _, ok := document.([]any); ok {
		var list []*models.Workflow

		err = json.Unmarshal(normalized, &list)

		return list, err
	}

	var single models.Workflow

	err = json.Unmarshal(normalized, &single)
	if err != nil {
		return nil, err
	}

	return []*models.Workflow{&single}, nil
}

// apply stores nothing unless every definition in the file is valid.
func apply(ctx context.Context, out io.Writer, workflows persistence.WorkflowStore, validator definitionValidator, data []byte) error {
	definitions, err := decodeDefinitions(data)
	if err != nil {
		return err
	}

	var errs []error

	for _, definition := range definitions {
		if definition.ID == "" {
			definition.ID = uuid.NewString()
		}

		err := validator.Validate(definition)
		if err != nil {
			errs = append(errs, fmt.Errorf("workflow %q: %w", definition.ID, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{errInvalidDefinitions}, errs...)...)
	}

	now := time.Now().UTC()

	for _, definition := range definitions {
		if definition.CreatedAt.IsZero() {
			definition.CreatedAt = now
		}

		definition.UpdatedAt = now

		err := workflows.SaveWorkflow(ctx, definition)
		if err != nil {
			return fmt.Errorf("failed to save workflow %q: %w", definition.ID, err)
		}

		fmt.Fprintf(out, "applied %s (%s)\n", definition.ID, definition.TriggerName)
	}

	return nil
}

func validateAll(ctx context.Context, out io.Writer, workflows persistence.WorkflowStore, validator definitionValidator) error {
	all, err := workflows.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	invalid := 0

	for _, definition := range all {
		err := validator.Validate(definition)
		if err != nil {
			invalid++

			fmt.Fprintf(out, "INVALID %s: %v\n", definition.ID, err)

			continue
		}

		fmt.Fprintf(out, "ok      %s\n", definition.ID)
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidDefinitions, invalid, len(all))
	}

	return nil
}
