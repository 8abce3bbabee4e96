package workflow

import (
	"reflect"
	"testing"
)

func TestPropertyDefaultValue(t *testing.T) {
	tests := []struct {
		name string
		prop PropertyDefinition
		want interface{}
	}{
		{name: "declared string default", prop: PropertyDefinition{Kind: KindSelect, Default: "warning"}, want: "warning"},
		{name: "declared number default", prop: PropertyDefinition{Kind: KindNumber, Default: float64(60)}, want: float64(60)},
		{name: "declared bool default", prop: PropertyDefinition{Kind: KindBoolean, Default: true}, want: true},
		{name: "number zero default", prop: PropertyDefinition{Kind: KindNumber}, want: float64(0)},
		{name: "bool zero default", prop: PropertyDefinition{Kind: KindBoolean}, want: false},
		{name: "string zero default", prop: PropertyDefinition{Kind: KindString}, want: ""},
		{name: "textarea zero default", prop: PropertyDefinition{Kind: KindTextarea}, want: ""},
		{name: "array zero default", prop: PropertyDefinition{Kind: KindArray}, want: []string{}},
		{name: "multi_select zero default", prop: PropertyDefinition{Kind: KindMultiSelect}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.prop.DefaultValue()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DefaultValue() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestPropertyCoerce(t *testing.T) {
	tests := []struct {
		name string
		prop PropertyDefinition
		raw  interface{}
		want interface{}
	}{
		{
			name: "number parses",
			prop: PropertyDefinition{Key: "threshold", Kind: KindNumber},
			raw:  "92.5",
			want: 92.5,
		},
		{
			name: "number with spaces parses",
			prop: PropertyDefinition{Key: "threshold", Kind: KindNumber},
			raw:  " 80 ",
			want: float64(80),
		},
		{
			name: "unparseable number falls back to default",
			prop: PropertyDefinition{Key: "timeout_seconds", Kind: KindNumber, Default: float64(60)},
			raw:  "soon",
			want: float64(60),
		},
		{
			name: "empty number falls back to default",
			prop: PropertyDefinition{Key: "timeout_seconds", Kind: KindNumber, Default: float64(60)},
			raw:  "",
			want: float64(60),
		},
		{
			name: "boolean keeps toggle state",
			prop: PropertyDefinition{Key: "graceful", Kind: KindBoolean, Default: true},
			raw:  false,
			want: false,
		},
		{
			name: "non-bool raw falls back to default",
			prop: PropertyDefinition{Key: "graceful", Kind: KindBoolean, Default: true},
			raw:  "yes",
			want: true,
		},
		{
			name: "array drops empty rows in order",
			prop: PropertyDefinition{Key: "env", Kind: KindArray},
			raw:  []string{"A=1", "", "B=2", "   ", "C=3"},
			want: []string{"A=1", "B=2", "C=3"},
		},
		{
			name: "array of zero rows stays empty",
			prop: PropertyDefinition{Key: "env", Kind: KindArray},
			raw:  []string{},
			want: []string{},
		},
		{
			name: "multi_select keeps checked options",
			prop: PropertyDefinition{Key: "mention", Kind: KindMultiSelect, Options: []string{"@here", "@channel", "@oncall"}},
			raw:  []string{"@oncall", "@here"},
			want: []string{"@oncall", "@here"},
		},
		{
			name: "empty multi_select falls back to default",
			prop: PropertyDefinition{Key: "mention", Kind: KindMultiSelect, Options: []string{"@here"}, Default: []string{"@here"}},
			raw:  []string{},
			want: []string{"@here"},
		},
		{
			name: "string keeps raw text",
			prop: PropertyDefinition{Key: "service_name", Kind: KindString},
			raw:  "nginx",
			want: "nginx",
		},
		{
			name: "empty string falls back to default",
			prop: PropertyDefinition{Key: "severity", Kind: KindSelect, Options: []string{"info", "warning"}, Default: "warning"},
			raw:  "",
			want: "warning",
		},
		{
			name: "empty string with no default stays empty",
			prop: PropertyDefinition{Key: "run_as", Kind: KindString},
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.prop.Coerce(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Coerce(%v) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestPropertyBindValue(t *testing.T) {
	prop := PropertyDefinition{Key: "channel", Kind: KindString, Default: "#incidents"}

	if got := prop.BindValue(map[string]interface{}{"channel": "#war-room"}); got != "#war-room" {
		t.Errorf("BindValue with stored key = %v, want #war-room", got)
	}
	if got := prop.BindValue(map[string]interface{}{}); got != "#incidents" {
		t.Errorf("BindValue with absent key = %v, want default", got)
	}
	if got := prop.BindValue(nil); got != "#incidents" {
		t.Errorf("BindValue with nil data = %v, want default", got)
	}

	// Wire data decodes arrays as []interface{}; binding normalizes.
	arr := PropertyDefinition{Key: "approvers", Kind: KindArray}
	got := arr.BindValue(map[string]interface{}{"approvers": []interface{}{"alice", "bob"}})
	if !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Errorf("BindValue([]interface{}) = %v, want []string", got)
	}
}

func TestStringFieldValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "whole float drops decimal", in: float64(30), want: "30"},
		{name: "fractional float keeps digits", in: 0.75, want: "0.75"},
		{name: "string passthrough", in: "restart", want: "restart"},
		{name: "bool renders", in: true, want: "true"},
		{name: "int renders", in: 7, want: "7"},
		{name: "nil renders empty", in: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StringFieldValue(tt.in); got != tt.want {
				t.Errorf("StringFieldValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
