// Package crmactions holds the built-in action handlers, each a thin adapter
// from an action config onto one CRM collaborator call.
package crmactions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/payload"
)

var ErrRecipientMissing = errors.New("Recipient email not found in payload") //nolint:staticcheck

var triggerPrefixes = map[string]crm.EntityKind{
	"LEAD_":    crm.KindLead,
	"DEAL_":    crm.KindDeal,
	"CONTACT_": crm.KindContact,
}

type target struct {
	kind crm.EntityKind
	id   string
}

// resolveTarget finds the entity an action applies to.
func resolveTarget(config, data map[string]any, trigger string) (target, error) {
	raw, ok := payload.Resolve(data, "id")
	id := stringify(raw)

	if !ok || id == "" {
		return target{}, crm.ErrEntityIDMissing
	}

	return target{kind: entityKind(config, data, trigger), id: id}, nil
}

func entityKind(config, data map[string]any, trigger string) crm.EntityKind {
	for _, source := range []map[string]any{config, data} {
		if value, ok := source["entityType"].(string); ok {
			kind := crm.EntityKind(strings.ToLower(value))
			if kind.Valid() {
				return kind
			}
		}
	}

	for prefix, kind := range triggerPrefixes {
		if strings.HasPrefix(trigger, prefix) {
			return kind
		}
	}

	return crm.KindLead
}

// stringify renders ids that arrive as JSON numbers without a fraction.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func configString(config map[string]any, key string) string {
	return stringify(config[key])
}

// idSchema accepts both string and numeric identifiers.
func idSchema(description string) map[string]any {
	return map[string]any{
		"type":        []string{"string", "integer"},
		"description": description,
	}
}

func entityTypeSchema() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Entity kind to act on. Defaults to the payload entityType or the trigger prefix.",
		"enum":        []string{"lead", "deal", "contact", "LEAD", "DEAL", "CONTACT"},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	properties["entityType"] = entityTypeSchema()

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}
