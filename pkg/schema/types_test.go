package schema

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestValidateByType(t *testing.T) {
	tests := []struct {
		typ     Type
		value   any
		wantErr bool
	}{
		{String(), "hello", false},
		{String(), 42, true},
		{String(), nil, true},
		{Int(), 42, false},
		{Int(), int64(42), false},
		{Int(), float64(42), false},
		{Int(), 42.5, true},
		{Int(), "42", true},
		{Float(), 3.14, false},
		{Float(), 42, false},
		{Float(), "3.14", true},
		{Bool(), true, false},
		{Bool(), 1, true},
		{Slice(String()), []string{"a", "b"}, false},
		{Slice(String()), []any{"a", 1}, true},
		{Slice(Int()), "nope", true},
		{Nullable(String()), nil, false},
		{Nullable(String()), "x", false},
		{Nullable(String()), 1, true},
	}

	for _, tt := range tests {
		err := tt.typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%#v) error = %v, wantErr %v", tt.typ.Name(), tt.value, err, tt.wantErr)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		typ   Type
		value any
		want  any
	}{
		{String(), []byte("bytes"), "bytes"},
		{Int(), 7, int64(7)},
		{Int(), float64(7), int64(7)},
		{Int(), json.Number("7"), int64(7)},
		{Float(), int64(2), float64(2)},
		{Float(), float32(0.5), float64(0.5)},
		{Bool(), int64(1), true},
		{Bool(), int64(0), false},
		{Slice(Int()), []any{float64(1), int64(2)}, []any{int64(1), int64(2)}},
		{Nullable(Int()), nil, nil},
		{Nullable(Int()), float64(3), int64(3)},
	}

	for _, tt := range tests {
		got, err := tt.typ.Normalize(tt.value)
		if err != nil {
			t.Errorf("%s.Normalize(%#v) unexpected error: %v", tt.typ.Name(), tt.value, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s.Normalize(%#v) = %#v, want %#v", tt.typ.Name(), tt.value, got, tt.want)
		}
	}
}

func TestNullableDoesNotNest(t *testing.T) {
	typ := Nullable(Nullable(String()))
	if typ.Name() != "?string" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "?string")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"string", "string", false},
		{"int", "int", false},
		{"float", "float", false},
		{"bool", "bool", false},
		{"[string]", "[string]", false},
		{"[[int]]", "[[int]]", false},
		{"?string", "?string", false},
		{" ?int ", "?int", false},
		{"?[bool]", "?[bool]", false},
		{"[?string]", "[?string]", false},
		{"date", "", true},
		{"[", "", true},
		{"?", "", true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.Name() != tt.want {
			t.Errorf("ParseType(%q).Name() = %q, want %q", tt.input, got.Name(), tt.want)
		}
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	in := Schema{"count": Int(), "name": Nullable(String()), "tags": Slice(String())}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"count":"int","name":"?string","tags":"[string]"}` {
		t.Errorf("Marshal = %s", data)
	}

	var out Schema
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, f := range in.Fields() {
		if out[f] == nil || out[f].Name() != in[f].Name() {
			t.Errorf("field %s: got %v, want %s", f, out[f], in[f].Name())
		}
	}
}
