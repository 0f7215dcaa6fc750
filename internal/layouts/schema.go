package layouts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema compiles a raw JSON Schema declared by a layout or
// theme manifest. Nil input yields a nil schema, meaning "no
// validation".
func CompileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("layouts: add schema resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("layouts: compile schema %s: %w", name, err)
	}
	return schema, nil
}

// ValidateFields checks a frontmatter map against a compiled schema.
// A nil schema accepts everything.
func ValidateFields(schema *jsonschema.Schema, fields map[string]any) error {
	if schema == nil {
		return nil
	}
	normalized, err := normalizeForSchema(fields)
	if err != nil {
		return err
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("layouts: fields do not match schema: %w", err)
	}
	return nil
}

// FieldSchemas compiles both schemas a layout declares. Missing
// schemas compile to nil.
func (m *LayoutManifest) FieldSchemas() (fields, itemFields *jsonschema.Schema, err error) {
	fields, err = CompileSchema(m.ID, m.FieldsSchema)
	if err != nil {
		return nil, nil, err
	}
	itemFields, err = CompileSchema(m.ID+".items", m.ItemFieldsSchema)
	if err != nil {
		return nil, nil, err
	}
	return fields, itemFields, nil
}

// normalizeForSchema round-trips the value through encoding/json so
// YAML-decoded types (time.Time, map[any]any) validate like their
// JSON equivalents.
func normalizeForSchema(fields map[string]any) (any, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("layouts: normalize fields: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, fmt.Errorf("layouts: normalize fields: %w", err)
	}
	return normalized, nil
}
