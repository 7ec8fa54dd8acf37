package schema

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/transito/pkg/domain"
)

// Schema is a map of context field names to their expected types.
// Example: {"count": Int(), "name": Nullable(String())}
type Schema map[string]Type

// Fields returns the declared field names in lexical order.
func (s Schema) Fields() []string {
	return slices.Sorted(maps.Keys(s))
}

// SystemFields are the snapshot attributes stored next to the context in flattened
// backends. A context field may not use any of these names.
var SystemFields = []string{"id", "state", "createdAt", "updatedAt", "created_at", "updated_at"}

// CheckDisjoint fails with domain.ErrConfiguration when a schema field collides with a
// system field.
func CheckDisjoint(s Schema) error {
	var clashes []string
	for _, f := range s.Fields() {
		if slices.Contains(SystemFields, f) {
			clashes = append(clashes, f)
		}
	}
	if len(clashes) > 0 {
		return fmt.Errorf("%w: context fields %q collide with system fields %q", domain.ErrConfiguration, clashes, SystemFields)
	}
	return nil
}

// Validate checks if data conforms to the schema.
// Every declared field must be present unless nullable, and undeclared fields are rejected.
// Returns an *AggregateError with all failures found.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var errs []error
	for _, fieldName := range schema.Fields() {
		fieldType := schema[fieldName]
		value, exists := data[fieldName]
		if !exists {
			if !IsNullable(fieldType) {
				errs = append(errs, &ValidationError{Key: fieldName, Reason: "required"})
			}
			continue
		}
		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: value})
		}
	}

	for _, key := range slices.Sorted(maps.Keys(data)) {
		if _, declared := schema[key]; !declared {
			errs = append(errs, &ValidationError{Key: key, Reason: "not declared in schema", Value: data[key]})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidateFields validates only specific fields from data against the schema.
// Missing fields are treated as an error.
func ValidateFields(schema Schema, data map[string]any, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}

	var errs []error
	for _, fieldName := range fields {
		fieldType, exists := schema[fieldName]
		if !exists {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: "not defined in schema"})
			continue
		}
		value, fieldExists := data[fieldName]
		if !fieldExists {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: "required"})
			continue
		}
		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Normalize returns a copy of data with every declared field converted to its canonical
// value. Missing nullable fields become nil; undeclared fields are dropped.
func Normalize(schema Schema, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(schema))
	var errs []error
	for _, fieldName := range schema.Fields() {
		v, err := schema[fieldName].Normalize(data[fieldName])
		if err != nil {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: data[fieldName]})
			continue
		}
		out[fieldName] = v
	}
	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}
