package domain

import "fmt"

// ConditionOp selects how a Condition judges the Bus value at its key.
type ConditionOp uint8

const (
	CondTruthy    ConditionOp = iota // Value.Truthy()
	CondEquals                       // value equals Operand
	CondNotEquals                    // value differs from Operand
	CondFunc                         // custom predicate
)

// Condition gates a unit on a Bus value. It is a tagged predicate: the
// scheduler only reads Key and calls Eval, it never inspects unit-specific
// semantics.
type Condition struct {
	Key     string
	Op      ConditionOp
	Operand Value
	Fn      func(Value) bool
}

// When runs the unit while the value at key is truthy.
func When(key string) *Condition {
	return &Condition{Key: key, Op: CondTruthy}
}

// WhenEquals runs the unit while the value at key equals v.
func WhenEquals(key string, v Value) *Condition {
	return &Condition{Key: key, Op: CondEquals, Operand: v}
}

// WhenNot runs the unit while the value at key differs from v, e.g. "mode is not user".
func WhenNot(key string, v Value) *Condition {
	return &Condition{Key: key, Op: CondNotEquals, Operand: v}
}

// WhenFunc runs the unit while fn returns true for the value at key.
func WhenFunc(key string, fn func(Value) bool) *Condition {
	return &Condition{Key: key, Op: CondFunc, Fn: fn}
}

// Eval resolves the condition against the current value.
func (c *Condition) Eval(v Value) bool {
	switch c.Op {
	case CondTruthy:
		return v.Truthy()
	case CondEquals:
		return v.Equal(c.Operand)
	case CondNotEquals:
		return !v.Equal(c.Operand)
	case CondFunc:
		return c.Fn != nil && c.Fn(v)
	default:
		return false
	}
}

// String renders the condition for logs and graphs.
func (c *Condition) String() string {
	switch c.Op {
	case CondTruthy:
		return c.Key
	case CondEquals:
		return fmt.Sprintf("%s == %s", c.Key, c.Operand)
	case CondNotEquals:
		return fmt.Sprintf("%s != %s", c.Key, c.Operand)
	default:
		return fmt.Sprintf("f(%s)", c.Key)
	}
}
