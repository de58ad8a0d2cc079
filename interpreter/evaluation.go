package interpreter

import (
	"github.com/cockroachdb/errors"
)

// Evaluation is the outcome of a script that ran at least one instruction.
type Evaluation struct {
	stack []interface{}
}

// Value is the result of the last instruction.
func (e *Evaluation) Value() interface{} {
	return e.stack[len(e.stack)-1]
}

// Stack returns every instruction result, oldest first.
func (e *Evaluation) Stack() []interface{} {
	return append([]interface{}{}, e.stack...)
}

// ValueAs returns the evaluation value if it has type T.
func ValueAs[T any](e *Evaluation) (T, error) {
	var zero T
	if e == nil {
		return zero, errors.Wrap(ErrTypeMismatch, "no evaluation")
	}
	v, ok := e.Value().(T)
	if !ok {
		return zero, errors.Wrapf(ErrTypeMismatch, "want %T, have %T", zero, e.Value())
	}
	return v, nil
}
