// Package schema holds the expected-output schemas for pipeline tasks and
// validates model output against them. Schemas are static nested mappings of
// field name to type and requiredness, loaded once at process start and never
// mutated, so concurrent reads need no locking.
package schema

import (
	"fmt"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

// FieldType enumerates the JSON value types a schema field may declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field declares the type and requiredness of one output field.
type Field struct {
	Type     FieldType        `yaml:"type" json:"type"`
	Required bool             `yaml:"required" json:"required"`
	Fields   map[string]Field `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Schema is the declared output contract for one task.
type Schema struct {
	Task   string           `yaml:"task" json:"task"`
	Fields map[string]Field `yaml:"fields" json:"fields"`
}

// Keys returns the declared field names.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	return keys
}

// zeroValue returns the default value substituted for a missing optional
// field: empty array, empty string, zero, false, or empty object.
func (f Field) zeroValue() interface{} {
	switch f.Type {
	case TypeArray:
		return []interface{}{}
	case TypeString:
		return ""
	case TypeNumber:
		return float64(0)
	case TypeBoolean:
		return false
	case TypeObject:
		obj := make(map[string]interface{}, len(f.Fields))
		for name, sub := range f.Fields {
			obj[name] = sub.zeroValue()
		}
		return obj
	default:
		return nil
	}
}

// checkType reports whether v matches the declared field type.
// JSON numbers decode as float64; ints are accepted for convenience.
func (f Field) checkType(v interface{}) bool {
	switch f.Type {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeArray:
		_, ok := v.([]interface{})
		return ok
	case TypeObject:
		_, ok := v.(map[string]interface{})
		return ok
	default:
		return false
	}
}

// Conform validates parsed model output against the schema and returns a copy
// holding exactly the declared keys. Extra keys and missing required keys are
// validation failures. Missing optional keys are filled with type defaults
// (empty array, empty string, zero). Nested object fields are conformed
// recursively.
func (s Schema) Conform(parsed map[string]interface{}) (map[string]interface{}, error) {
	out, err := conformFields(s.Fields, parsed)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeSchemaValidation,
			"output does not match declared schema", errors.WithTask(s.Task))
	}
	return out, nil
}

func conformFields(fields map[string]Field, parsed map[string]interface{}) (map[string]interface{}, error) {
	for key := range parsed {
		if _, declared := fields[key]; !declared {
			return nil, fmt.Errorf("undeclared key %q", key)
		}
	}

	out := make(map[string]interface{}, len(fields))
	for name, field := range fields {
		v, present := parsed[name]
		if !present || v == nil {
			if field.Required {
				return nil, fmt.Errorf("missing required key %q", name)
			}
			out[name] = field.zeroValue()
			continue
		}
		if !field.checkType(v) {
			return nil, fmt.Errorf("key %q: expected %s, got %T", name, field.Type, v)
		}
		if field.Type == TypeObject && len(field.Fields) > 0 {
			sub, err := conformFields(field.Fields, v.(map[string]interface{}))
			if err != nil {
				return nil, fmt.Errorf("key %q: %v", name, err)
			}
			out[name] = sub
			continue
		}
		out[name] = v
	}
	return out, nil
}
