package modules

import (
	"encoding/json"
	"testing"
)

func TestToJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{"map", map[string]string{"a": "b"}, `{"a":"b"}`, false},
		{"struct", struct {
			Name string `json:"name"`
		}{Name: "test"}, `{"name":"test"}`, false},
		{"nil", nil, "null", false},
		{"number", 42, "42", false},
		{"channel", make(chan int), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToStringSlice(t *testing.T) {
	tests := []struct {
		name  string
		input []any
		want  int
	}{
		{"all strings", []any{"a", "b", "c"}, 3},
		{"mixed types", []any{"a", 42, true, "b"}, 2},
		{"empty", []any{}, 0},
		{"no strings", []any{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToStringSlice(tt.input)
			if len(got) != tt.want {
				t.Errorf("ToStringSlice() returned %d items, want %d", len(got), tt.want)
			}
		})
	}
}

func TestArgs(t *testing.T) {
	a := Args{
		"name":     "alpha",
		"empty":    "",
		"flag":     false,
		"list":     []any{"x", "y"},
		"count":    float64(7),
		"nullable": nil,
	}

	if a.String("name") != "alpha" || a.String("missing") != "" {
		t.Error("String() mismatch")
	}
	if p := a.OptString("empty"); p == nil || *p != "" {
		t.Error("OptString() must keep an empty string")
	}
	if a.OptString("nullable") != nil {
		t.Error("OptString() must treat null as absent")
	}
	if p := a.OptBool("flag"); p == nil || *p {
		t.Error("OptBool() must keep false")
	}
	if a.OptBool("missing") != nil {
		t.Error("OptBool() must return nil when absent")
	}
	if list, ok := a.Strings("list"); !ok || len(list) != 2 {
		t.Errorf("Strings() = %v, %v", list, ok)
	}
	if _, ok := a.Strings("missing"); ok {
		t.Error("Strings() must report absence")
	}
	if n, ok := a.Int("count"); !ok || n != 7 {
		t.Errorf("Int() = %d, %v", n, ok)
	}
	if _, ok := a.Value("nullable"); ok {
		t.Error("Value() must treat null as absent")
	}
	if v, ok := a.Value("name"); !ok || v != "alpha" {
		t.Errorf("Value() = %v, %v", v, ok)
	}
}

func TestArgsInt(t *testing.T) {
	tests := []struct {
		name   string
		val    any
		want   int
		wantOK bool
	}{
		{"json integer", json.Number("42"), 42, true},
		{"json negative", json.Number("-3"), -3, true},
		{"json integral float", json.Number("7.0"), 7, true},
		{"json fractional", json.Number("7.5"), 0, false},
		{"json overflow", json.Number("123456789012345678901234567890"), 0, false},
		{"float64", float64(9), 9, true},
		{"float64 overflow", float64(1e30), 0, false},
		{"string", "9", 0, false},
		{"absent", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Args{"n": tt.val}.Int("n")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Int() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
