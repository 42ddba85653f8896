package postgresql

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// toJSON encodes value for a JSONB column, mapping nil to NULL.
func toJSON(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	if rv := reflect.ValueOf(value); (rv.Kind() == reflect.Map || rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}

	return string(data), nil
}

// fromJSON decodes a nullable JSONB column into target.
func fromJSON(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}

	err := json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}

	return nil
}
