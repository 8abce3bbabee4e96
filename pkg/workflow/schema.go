package workflow

import (
	"strconv"
	"strings"
)

// PropertyKind enumerates the editing widget families a configuration
// property can use. Each kind owns its own binding and coercion rules; the
// form layer dispatches on the kind rather than on string comparison of
// ad-hoc field names.
type PropertyKind string

const (
	KindString      PropertyKind = "string"
	KindTextarea    PropertyKind = "textarea"
	KindNumber      PropertyKind = "number"
	KindBoolean     PropertyKind = "boolean"
	KindSelect      PropertyKind = "select"
	KindMultiSelect PropertyKind = "multi_select"
	KindArray       PropertyKind = "array"
)

// PropertyDefinition describes one configuration property of a node type:
// its storage key, display label, widget kind, and editing constraints.
// Options applies to select/multi_select; Min/Max to number.
type PropertyDefinition struct {
	Key         string
	Label       string
	Kind        PropertyKind
	Required    bool
	Default     interface{}
	Options     []string
	Min         *float64
	Max         *float64
	Description string
}

// DefaultValue returns the declared default, or the kind's zero value when
// no default is declared. Every schema key therefore always has a value.
func (p PropertyDefinition) DefaultValue() interface{} {
	if p.Default != nil {
		switch p.Kind {
		case KindArray, KindMultiSelect:
			return StringSliceValue(p.Default)
		default:
			return p.Default
		}
	}
	switch p.Kind {
	case KindNumber:
		return float64(0)
	case KindBoolean:
		return false
	case KindArray, KindMultiSelect:
		return []string{}
	default:
		return ""
	}
}

// BindValue resolves the value a form field starts from: the node's stored
// value for this key, or the default when the key is absent.
func (p PropertyDefinition) BindValue(data map[string]interface{}) interface{} {
	if data != nil {
		if v, ok := data[p.Key]; ok {
			switch p.Kind {
			case KindArray, KindMultiSelect:
				return StringSliceValue(v)
			default:
				return v
			}
		}
	}
	return p.DefaultValue()
}

// Coerce converts a raw form value into the typed value stored in node
// data, per kind:
//
//   - number: parse the text; unparseable falls back to the default
//   - boolean: the toggle's state as-is
//   - array: non-empty rows in display order
//   - multi_select: the checked options in display order
//   - string/textarea/select: the raw text, or the default when empty
//
// Coercion never fails; bad input degrades to the default.
func (p PropertyDefinition) Coerce(raw interface{}) interface{} {
	switch p.Kind {
	case KindNumber:
		s := strings.TrimSpace(StringFieldValue(raw))
		if s == "" {
			return p.DefaultValue()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p.DefaultValue()
		}
		return f

	case KindBoolean:
		if b, ok := raw.(bool); ok {
			return b
		}
		return p.DefaultValue()

	case KindArray:
		rows := StringSliceValue(raw)
		kept := make([]string, 0, len(rows))
		for _, row := range rows {
			if strings.TrimSpace(row) != "" {
				kept = append(kept, row)
			}
		}
		return kept

	case KindMultiSelect:
		selected := StringSliceValue(raw)
		if len(selected) == 0 {
			return p.DefaultValue()
		}
		kept := make([]string, 0, len(selected))
		for _, s := range selected {
			if s != "" {
				kept = append(kept, s)
			}
		}
		return kept

	default:
		s := StringFieldValue(raw)
		if s == "" {
			return p.DefaultValue()
		}
		return s
	}
}

// SchemaDefaults builds the data map a freshly added node starts with:
// exactly the schema's keys, each at its default.
func SchemaDefaults(schema []PropertyDefinition) map[string]interface{} {
	data := make(map[string]interface{}, len(schema))
	for _, prop := range schema {
		data[prop.Key] = prop.DefaultValue()
	}
	return data
}

// StringFieldValue renders an arbitrary stored value as form text. Numbers
// drop a trailing ".0" so a stored 30.0 edits as "30".
func StringFieldValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}

// NumberValue extracts a float64 from the numeric types JSON and YAML
// decoding can produce.
func NumberValue(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	default:
		return 0, false
	}
}

// StringSliceValue normalizes the slice shapes JSON and YAML decoding can
// produce into []string. Non-string elements are skipped.
func StringSliceValue(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
