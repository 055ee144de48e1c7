package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate compiles schemaStr and checks instance against it.
func Validate(schemaStr string, instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("config.schema.json", schemaStr)
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("parsing instance: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("validating instance: %w", err)
	}
	return nil
}
