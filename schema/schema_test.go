package schema

import (
	"testing"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

func parseTaskSchema() Schema {
	return Schema{
		Task: "parse_task",
		Fields: map[string]Field{
			"name":           {Type: TypeString, Required: true},
			"skills":         {Type: TypeArray, Required: true},
			"experience":     {Type: TypeArray},
			"certifications": {Type: TypeArray},
			"summary":        {Type: TypeString},
		},
	}
}

func TestConformExactKeys(t *testing.T) {
	s := parseTaskSchema()

	out, err := s.Conform(map[string]interface{}{
		"name":           "Jordan Example",
		"skills":         []interface{}{"go", "sql"},
		"experience":     []interface{}{"backend engineer"},
		"certifications": []interface{}{},
		"summary":        "Backend engineer.",
	})
	if err != nil {
		t.Fatalf("Conform failed: %v", err)
	}

	if len(out) != len(s.Fields) {
		t.Errorf("Expected exactly %d keys, got %d", len(s.Fields), len(out))
	}
	for _, key := range s.Keys() {
		if _, ok := out[key]; !ok {
			t.Errorf("Missing declared key %q", key)
		}
	}
}

func TestConformFillsMissingOptional(t *testing.T) {
	s := parseTaskSchema()

	// Resume with no certifications: key must come back as an empty
	// array, not go missing.
	out, err := s.Conform(map[string]interface{}{
		"name":   "Jordan Example",
		"skills": []interface{}{"go"},
	})
	if err != nil {
		t.Fatalf("Conform failed: %v", err)
	}

	certs, ok := out["certifications"].([]interface{})
	if !ok {
		t.Fatalf("Expected certifications to be an array, got %T", out["certifications"])
	}
	if len(certs) != 0 {
		t.Errorf("Expected empty certifications, got %v", certs)
	}
	if out["summary"] != "" {
		t.Errorf("Expected empty string for missing summary, got %v", out["summary"])
	}
}

func TestConformRejectsExtraKeys(t *testing.T) {
	s := parseTaskSchema()

	_, err := s.Conform(map[string]interface{}{
		"name":       "Jordan Example",
		"skills":     []interface{}{},
		"confidence": 0.9,
	})
	if err == nil {
		t.Fatal("Expected failure for undeclared key")
	}
	if !errors.Is(err, errors.ErrCodeSchemaValidation) {
		t.Errorf("Expected SCHEMA_VALIDATION, got %v", err)
	}
}

func TestConformRejectsMissingRequired(t *testing.T) {
	s := parseTaskSchema()

	_, err := s.Conform(map[string]interface{}{
		"skills": []interface{}{"go"},
	})
	if err == nil {
		t.Fatal("Expected failure for missing required key")
	}
}

func TestConformTypeMismatch(t *testing.T) {
	s := parseTaskSchema()

	_, err := s.Conform(map[string]interface{}{
		"name":   42,
		"skills": []interface{}{},
	})
	if err == nil {
		t.Fatal("Expected failure for type mismatch")
	}
}

func TestConformNestedObject(t *testing.T) {
	s := Schema{
		Task: "score_task",
		Fields: map[string]Field{
			"overall_score": {Type: TypeNumber, Required: true},
			"breakdown": {
				Type: TypeObject,
				Fields: map[string]Field{
					"skills_score":     {Type: TypeNumber},
					"experience_score": {Type: TypeNumber},
				},
			},
		},
	}

	out, err := s.Conform(map[string]interface{}{
		"overall_score": float64(78),
		"breakdown": map[string]interface{}{
			"skills_score": float64(80),
		},
	})
	if err != nil {
		t.Fatalf("Conform failed: %v", err)
	}

	breakdown := out["breakdown"].(map[string]interface{})
	if breakdown["experience_score"] != float64(0) {
		t.Errorf("Expected default 0 for missing nested number, got %v", breakdown["experience_score"])
	}
}

func TestConformMissingOptionalObject(t *testing.T) {
	s := Schema{
		Task: "score_task",
		Fields: map[string]Field{
			"breakdown": {
				Type: TypeObject,
				Fields: map[string]Field{
					"skills_score": {Type: TypeNumber},
				},
			},
		},
	}

	out, err := s.Conform(map[string]interface{}{})
	if err != nil {
		t.Fatalf("Conform failed: %v", err)
	}

	breakdown, ok := out["breakdown"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object default, got %T", out["breakdown"])
	}
	if breakdown["skills_score"] != float64(0) {
		t.Errorf("Expected nested default, got %v", breakdown["skills_score"])
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(parseTaskSchema()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	s, err := r.Get("parse_task")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.Task != "parse_task" {
		t.Errorf("Expected parse_task, got %s", s.Task)
	}

	_, err = r.Get("nonexistent_task")
	if err == nil {
		t.Fatal("Expected error for unknown task")
	}
	if !errors.Is(err, errors.ErrCodeUnknownTask) {
		t.Errorf("Expected UNKNOWN_TASK, got %v", err)
	}

	if r.Has("nonexistent_task") {
		t.Error("Has should be false for unknown task")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(parseTaskSchema()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(parseTaskSchema()); err == nil {
		t.Fatal("Expected duplicate registration to fail")
	}
}

func TestRegistryNoName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Schema{}); err == nil {
		t.Fatal("Expected unnamed schema registration to fail")
	}
}
