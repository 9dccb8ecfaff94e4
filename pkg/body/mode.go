package body

import (
	"fmt"
	"sort"
	"strings"
)

// modeVar is a single variable/value assignment within a Mode, kept sorted
// by Var within a Mode so that comparisons and the empty-mode check are
// cheap and deterministic.
type modeVar struct {
	Var, Value string
}

// Mode is an ordered mapping from string variable to string value. The
// empty mapping is the "empty mode". Modes are value types: copying a Mode
// copies its assignment set.
type Mode struct {
	vars []modeVar
}

// NewMode builds a Mode from a variable/value map, canonicalising key order.
func NewMode(assignment map[string]string) Mode {
	vars := make([]modeVar, 0, len(assignment))
	for k, v := range assignment {
		vars = append(vars, modeVar{Var: k, Value: v})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Var < vars[j].Var })
	return Mode{vars: vars}
}

// EmptyMode returns the mode with no variables assigned.
func EmptyMode() Mode {
	return Mode{}
}

// IsEmpty reports whether m assigns no variables.
func (m Mode) IsEmpty() bool {
	return len(m.vars) == 0
}

// KeySetMismatchError is returned when two Modes being compared do not
// share the same set of variable names — a precondition violation, since
// Modes being compared are expected to describe the same robot.
type KeySetMismatchError struct {
	A, B Mode
}

func (e *KeySetMismatchError) Error() string {
	return fmt.Sprintf("mode key sets differ: %s vs %s", e.A, e.B)
}

func sameKeySet(a, b Mode) bool {
	if len(a.vars) != len(b.vars) {
		return false
	}
	for i := range a.vars {
		if a.vars[i].Var != b.vars[i].Var {
			return false
		}
	}
	return true
}

// Equal reports whether m and other assign the same values to the same
// variables. It returns a *KeySetMismatchError when the two modes do not
// share a variable set — this is a precondition violation and must not be
// treated as "not equal" by callers.
func (m Mode) Equal(other Mode) (bool, error) {
	if !sameKeySet(m, other) {
		return false, &KeySetMismatchError{A: m, B: other}
	}
	for i := range m.vars {
		if m.vars[i].Value != other.vars[i].Value {
			return false, nil
		}
	}
	return true, nil
}

// Less implements the total order over modes: lexicographic on key, then on
// value. Like Equal, it errors on mismatched key sets.
func (m Mode) Less(other Mode) (bool, error) {
	if !sameKeySet(m, other) {
		return false, &KeySetMismatchError{A: m, B: other}
	}
	for i := range m.vars {
		if m.vars[i].Value != other.vars[i].Value {
			return m.vars[i].Value < other.vars[i].Value, nil
		}
	}
	return false, nil
}

// Key returns a canonical string usable as a map key for grouping identical
// modes; it does not participate in the KeySetMismatchError contract since
// it is only ever compared against itself.
func (m Mode) Key() string {
	var b strings.Builder
	for _, v := range m.vars {
		b.WriteString(v.Var)
		b.WriteByte('=')
		b.WriteString(v.Value)
		b.WriteByte(';')
	}
	return b.String()
}

// Value returns the value assigned to variable name and whether it is set.
func (m Mode) Value(name string) (string, bool) {
	for _, v := range m.vars {
		if v.Var == name {
			return v.Value, true
		}
	}
	return "", false
}

// Assignment returns the mode as a plain map, e.g. for JSON encoding.
func (m Mode) Assignment() map[string]string {
	out := make(map[string]string, len(m.vars))
	for _, v := range m.vars {
		out[v.Var] = v.Value
	}
	return out
}

func (m Mode) String() string {
	parts := make([]string, len(m.vars))
	for i, v := range m.vars {
		parts[i] = v.Var + "=" + v.Value
	}
	return "{" + strings.Join(parts, ",") + "}"
}
