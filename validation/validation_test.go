package validation

import (
	"strings"
	"testing"

	"github.com/skillsenselab/statekit/errors"
)

type sampleConfig struct {
	Key      string         `json:"key" validate:"required"`
	Reducers map[string]int `json:"reducers" validate:"required,min=1"`
	TTL      int            `json:"ttl" validate:"gte=0"`
}

func TestValidateStructOK(t *testing.T) {
	cfg := sampleConfig{Key: "todos", Reducers: map[string]int{"items": 1}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateStructMissingKey(t *testing.T) {
	cfg := sampleConfig{Reducers: map[string]int{"items": 1}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if !strings.Contains(err.Error(), "key") {
		t.Errorf("expected field name in error, got %q", err.Error())
	}
	if errors.CodeOf(err) != errors.ErrCodeInvalidInput {
		t.Errorf("code = %q", errors.CodeOf(err))
	}
}

func TestValidateStructEmptyMap(t *testing.T) {
	cfg := sampleConfig{Key: "todos", Reducers: map[string]int{}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty reducers map")
	}
}

func TestFluentValidator(t *testing.T) {
	v := New().Required("key", "  ").Custom(false, "replication", "node has no replicators")
	if !v.HasErrors() {
		t.Fatal("expected errors")
	}
	err := v.Validate()
	if err == nil {
		t.Fatal("expected AppError")
	}
	if !strings.Contains(err.Error(), "key: is required") {
		t.Errorf("message = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "replication") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestNonEmptyMap(t *testing.T) {
	v := New()
	NonEmptyMap(v, "reducers", map[string]int{})
	if !v.HasErrors() {
		t.Error("expected error for empty map")
	}

	v = New()
	NonEmptyMap(v, "reducers", map[string]int{"a": 1})
	if v.HasErrors() {
		t.Errorf("unexpected errors: %v", v.Errors())
	}
}

func TestValidatorNoErrors(t *testing.T) {
	if New().Required("key", "todos").Validate() != nil {
		t.Error("expected nil for valid input")
	}
}
