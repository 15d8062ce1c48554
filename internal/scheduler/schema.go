// schema.go implements the narrow JSON Schema subset model.SchemaDef
// documents: requires a value to be an object (when "type": "object" is
// declared) carrying every name in the schema's "required" list. No JSON
// Schema compiler appears anywhere in the retrieval pack (checked every
// go.mod), and model.SchemaDef itself is documented as "intentionally not a
// full JSON Schema compiler" — this mirrors that same narrowing rather than
// fabricating a dependency.
package scheduler

import (
	"fmt"

	"github.com/danrygg/wovenflow/internal/model"
)

func validateAgainstSchema(schema *model.SchemaDef, value interface{}, where string) error {
	if schema == nil || schema.Document == nil {
		return nil
	}
	obj, isObject := value.(map[string]interface{})
	if typ, _ := schema.Document["type"].(string); typ == "object" && !isObject {
		return fmt.Errorf("%s: expected an object, got %T", where, value)
	}
	requiredRaw, ok := schema.Document["required"].([]interface{})
	if !ok {
		return nil
	}
	if !isObject {
		if len(requiredRaw) > 0 {
			return fmt.Errorf("%s: expected an object, got %T", where, value)
		}
		return nil
	}
	for _, r := range requiredRaw {
		name, _ := r.(string)
		if name == "" {
			continue
		}
		if _, present := obj[name]; !present {
			return fmt.Errorf("%s: missing required field %q", where, name)
		}
	}
	return nil
}
