package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// formField is one editable row of the property form. The widget a
// field edits with follows its kind; everything else about the field
// comes from the schema definition it was built from.
type formField struct {
	def workflow.PropertyDefinition

	text   string // string, textarea, number
	cursor int    // rune offset into text

	toggled bool // boolean

	choice int // select: index into def.Options

	picked []bool // multi_select: checked flags, parallel to def.Options
	optIdx int    // multi_select: highlighted option

	rows   []string // array: one entry per row
	rowIdx int      // array: focused row

	errText string // validation hint; display only, never blocks saving
}

// newFormField builds a field bound to the node's stored value for the
// definition's key, falling back to the schema default.
func newFormField(def workflow.PropertyDefinition, data map[string]interface{}) *formField {
	f := &formField{def: def}
	bound := def.BindValue(data)

	switch def.Kind {
	case workflow.KindBoolean:
		if b, ok := bound.(bool); ok {
			f.toggled = b
		}

	case workflow.KindSelect:
		stored := workflow.StringFieldValue(bound)
		for i, opt := range def.Options {
			if opt == stored {
				f.choice = i
				break
			}
		}

	case workflow.KindMultiSelect:
		f.picked = make([]bool, len(def.Options))
		for _, sel := range workflow.StringSliceValue(bound) {
			for i, opt := range def.Options {
				if opt == sel {
					f.picked[i] = true
				}
			}
		}

	case workflow.KindArray:
		f.rows = workflow.StringSliceValue(bound)
		if len(f.rows) == 0 {
			f.rows = []string{""}
		}

	default:
		f.text = workflow.StringFieldValue(bound)
		f.cursor = len([]rune(f.text))
	}

	f.validate()
	return f
}

// rawValue returns what this field contributes to the save. Numbers
// are clamped into the schema's range here so the typed value lands in
// bounds; parsing and defaulting stay with the coercion rules.
func (f *formField) rawValue() interface{} {
	switch f.def.Kind {
	case workflow.KindBoolean:
		return f.toggled

	case workflow.KindSelect:
		if f.choice >= 0 && f.choice < len(f.def.Options) {
			return f.def.Options[f.choice]
		}
		return ""

	case workflow.KindMultiSelect:
		selected := make([]string, 0, len(f.picked))
		for i, on := range f.picked {
			if on {
				selected = append(selected, f.def.Options[i])
			}
		}
		return selected

	case workflow.KindArray:
		return append([]string(nil), f.rows...)

	case workflow.KindNumber:
		return f.clampedNumberText()

	default:
		return f.text
	}
}

func (f *formField) clampedNumberText() string {
	s := strings.TrimSpace(f.text)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return f.text
	}
	if f.def.Min != nil && v < *f.def.Min {
		v = *f.def.Min
	}
	if f.def.Max != nil && v > *f.def.Max {
		v = *f.def.Max
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// validate refreshes the field's hint text. Hints flag problems the
// operator probably wants to fix, but saving always proceeds; bad
// values degrade through coercion instead.
func (f *formField) validate() {
	f.errText = ""

	switch f.def.Kind {
	case workflow.KindNumber:
		s := strings.TrimSpace(f.text)
		if s == "" {
			if f.def.Required {
				f.errText = "required"
			}
			return
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f.errText = "not a number; the default will be saved"
			return
		}
		if f.def.Min != nil && v < *f.def.Min {
			f.errText = fmt.Sprintf("below minimum %s; will be raised", formatBound(*f.def.Min))
		}
		if f.def.Max != nil && v > *f.def.Max {
			f.errText = fmt.Sprintf("above maximum %s; will be lowered", formatBound(*f.def.Max))
		}

	case workflow.KindString, workflow.KindTextarea:
		if f.def.Required && strings.TrimSpace(f.text) == "" {
			f.errText = "required"
			return
		}
		if f.def.Key == "expression" && strings.TrimSpace(f.text) != "" {
			// Syntax-only check; undefined variables are fine since
			// trigger data is unknown until run time.
			if _, err := expr.Compile(f.text, expr.AllowUndefinedVariables()); err != nil {
				f.errText = "invalid expression syntax"
			}
		}

	case workflow.KindArray:
		if f.def.Required && len(f.nonEmptyRows()) == 0 {
			f.errText = "required"
		}
	}
}

func (f *formField) nonEmptyRows() []string {
	kept := make([]string, 0, len(f.rows))
	for _, row := range f.rows {
		if strings.TrimSpace(row) != "" {
			kept = append(kept, row)
		}
	}
	return kept
}

// displayLabel is the label column text, with the required marker.
func (f *formField) displayLabel() string {
	if f.def.Required {
		return f.def.Label + " *"
	}
	return f.def.Label
}

// displayValue is the one-line summary shown when the field is not
// being edited.
func (f *formField) displayValue() string {
	switch f.def.Kind {
	case workflow.KindBoolean:
		if f.toggled {
			return "[x] yes"
		}
		return "[ ] no"

	case workflow.KindSelect:
		if f.choice >= 0 && f.choice < len(f.def.Options) {
			return "◂ " + f.def.Options[f.choice] + " ▸"
		}
		return "◂ ▸"

	case workflow.KindMultiSelect:
		selected := make([]string, 0, len(f.picked))
		for i, on := range f.picked {
			if on {
				selected = append(selected, f.def.Options[i])
			}
		}
		if len(selected) == 0 {
			return "(none)"
		}
		return strings.Join(selected, ", ")

	case workflow.KindArray:
		rows := f.nonEmptyRows()
		switch len(rows) {
		case 0:
			return "(empty)"
		case 1:
			return rows[0]
		default:
			return fmt.Sprintf("%s (+%d more)", rows[0], len(rows)-1)
		}

	default:
		return f.text
	}
}

// Text editing, shared by string, textarea, number, and the focused
// array row.

func (f *formField) editBuffer() (string, int) {
	if f.def.Kind == workflow.KindArray {
		if f.rowIdx >= 0 && f.rowIdx < len(f.rows) {
			return f.rows[f.rowIdx], f.cursor
		}
		return "", 0
	}
	return f.text, f.cursor
}

func (f *formField) setEditBuffer(s string, cursor int) {
	if f.def.Kind == workflow.KindArray {
		if f.rowIdx >= 0 && f.rowIdx < len(f.rows) {
			f.rows[f.rowIdx] = s
		}
	} else {
		f.text = s
	}
	f.cursor = cursor
	f.validate()
}

func (f *formField) insertRune(r rune) {
	buf, cur := f.editBuffer()
	runes := []rune(buf)
	if cur < 0 {
		cur = 0
	}
	if cur > len(runes) {
		cur = len(runes)
	}
	out := make([]rune, 0, len(runes)+1)
	out = append(out, runes[:cur]...)
	out = append(out, r)
	out = append(out, runes[cur:]...)
	f.setEditBuffer(string(out), cur+1)
}

func (f *formField) backspace() {
	buf, cur := f.editBuffer()
	runes := []rune(buf)
	if cur <= 0 || cur > len(runes) {
		return
	}
	out := append(append(make([]rune, 0, len(runes)-1), runes[:cur-1]...), runes[cur:]...)
	f.setEditBuffer(string(out), cur-1)
}

func (f *formField) moveCursor(delta int) {
	buf, cur := f.editBuffer()
	cur += delta
	if cur < 0 {
		cur = 0
	}
	if n := len([]rune(buf)); cur > n {
		cur = n
	}
	f.cursor = cur
}

// Widget-specific actions. Each is a no-op for kinds it does not
// apply to, so the panel can route keys without guarding.

func (f *formField) toggle() {
	if f.def.Kind == workflow.KindBoolean {
		f.toggled = !f.toggled
	}
	if f.def.Kind == workflow.KindMultiSelect && f.optIdx >= 0 && f.optIdx < len(f.picked) {
		f.picked[f.optIdx] = !f.picked[f.optIdx]
		f.validate()
	}
}

func (f *formField) nextOption() {
	switch f.def.Kind {
	case workflow.KindSelect:
		if len(f.def.Options) > 0 {
			f.choice = (f.choice + 1) % len(f.def.Options)
		}
	case workflow.KindMultiSelect:
		if len(f.def.Options) > 0 {
			f.optIdx = (f.optIdx + 1) % len(f.def.Options)
		}
	case workflow.KindArray:
		if f.rowIdx < len(f.rows)-1 {
			f.rowIdx++
			f.cursor = len([]rune(f.rows[f.rowIdx]))
		}
	}
}

func (f *formField) prevOption() {
	switch f.def.Kind {
	case workflow.KindSelect:
		if len(f.def.Options) > 0 {
			f.choice = (f.choice + len(f.def.Options) - 1) % len(f.def.Options)
		}
	case workflow.KindMultiSelect:
		if len(f.def.Options) > 0 {
			f.optIdx = (f.optIdx + len(f.def.Options) - 1) % len(f.def.Options)
		}
	case workflow.KindArray:
		if f.rowIdx > 0 {
			f.rowIdx--
			f.cursor = len([]rune(f.rows[f.rowIdx]))
		}
	}
}

func (f *formField) addRow() {
	if f.def.Kind != workflow.KindArray {
		return
	}
	f.rows = append(f.rows, "")
	f.rowIdx = len(f.rows) - 1
	f.cursor = 0
}

func (f *formField) removeRow() {
	if f.def.Kind != workflow.KindArray || len(f.rows) == 0 {
		return
	}
	f.rows = append(f.rows[:f.rowIdx], f.rows[f.rowIdx+1:]...)
	if len(f.rows) == 0 {
		f.rows = []string{""}
	}
	if f.rowIdx >= len(f.rows) {
		f.rowIdx = len(f.rows) - 1
	}
	f.cursor = len([]rune(f.rows[f.rowIdx]))
	f.validate()
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
