package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// datePattern accepts the strict extraction form and the normalized
// midnight-UTC form the sanitizer emits.
const datePattern = `^\d{4}-\d{2}-\d{2}(T00:00:00Z)?$`

// BuildJSONSchema returns a JSON-Schema (draft 2020-12 subset) for a template
// as a generic map. Sanitized field sets are validated against it before
// being sent to the object store; every field is optional because
// sanitization may drop any of them.
func BuildJSONSchema(def *Definition) map[string]any {
	props := make(map[string]any, len(def.Fields))
	for _, f := range def.Fields {
		switch f.Type {
		case TypeDate:
			props[f.Key] = map[string]any{"type": "string", "pattern": datePattern}
		case TypeEnum:
			if f.DefaultOnMismatch && len(f.Options) > 0 {
				props[f.Key] = map[string]any{"type": "string", "enum": f.Options}
			} else {
				// enum enforcement is advisory for un-flagged fields
				props[f.Key] = map[string]any{"type": "string"}
			}
		case TypeNumber:
			// numbers are best-effort: a failed coercion is kept as string
			props[f.Key] = map[string]any{"type": []any{"number", "string"}}
		default:
			props[f.Key] = map[string]any{"type": "string"}
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// ValidateFields validates a sanitized field set against the template's
// generated schema.
func ValidateFields(def *Definition, fields map[string]any) error {
	schemaMap := BuildJSONSchema(def)
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// Round-trip through JSON so typed values collapse to plain
	// bool/float64/string the validator understands.
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("fields do not match template %s: %w", def.TemplateKey, err)
	}
	return nil
}
