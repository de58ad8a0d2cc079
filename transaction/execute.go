package transaction

import (
	"fmt"
	"io"
	"os"

	"github.com/OdyseeTeam/fast-ledger/interpreter"
	"github.com/OdyseeTeam/fast-ledger/script"

	"github.com/cockroachdb/errors"
)

// OpEchoCode identifies OpEcho in scripts.
const OpEchoCode = 5

// TransactionError is returned by Execute. Use errors.Is to test for a kind;
// the returned error may wrap the interpreter's own error.
type TransactionError int

const (
	// InvalidScript means the interpreter rejected the executed payload.
	InvalidScript TransactionError = iota + 1
	// InvalidEvaluation means the script produced no result or a result of
	// the wrong type.
	InvalidEvaluation
)

func (e TransactionError) Error() string {
	switch e {
	case InvalidScript:
		return "invalid script"
	case InvalidEvaluation:
		return "invalid evaluation"
	default:
		return fmt.Sprintf("transaction error %d", int(e))
	}
}

// OpEcho takes no args, produces interpreter.Unit and prints "OpEcho !!!"
// on its own line to w.
func OpEcho(w io.Writer) interpreter.OpCode {
	return interpreter.OpCode{
		Code:       OpEchoCode,
		Name:       "OpEcho",
		DecodeArgs: interpreter.NoArgs,
		Handler: func(interface{}) (interface{}, error) {
			_, err := fmt.Fprintln(w, "OpEcho !!!")
			return interpreter.Unit{}, errors.Wrap(err, "echo")
		},
	}
}

// NewInterpreter returns an interpreter knowing only OpEcho, writing to w.
func NewInterpreter(w io.Writer, opts ...interpreter.Option) *interpreter.Interpreter {
	in, err := interpreter.New([]interpreter.OpCode{OpEcho(w)}, opts...)
	if err != nil {
		// a single opcode cannot collide with itself
		panic(err)
	}
	return in
}

// Execute runs the executed script with OpEcho printing to stdout.
func (tx Transaction) Execute() error {
	return tx.ExecuteWith(NewInterpreter(os.Stdout))
}

// ExecuteWith runs the executed script on in. It succeeds only when the
// script evaluates to interpreter.Unit.
func (tx Transaction) ExecuteWith(in *interpreter.Interpreter) error {
	s, err := script.Decode(tx.ExecutedData)
	if err != nil {
		return errors.Mark(err, InvalidScript)
	}

	ev, err := in.Interpret(&s)
	if err != nil {
		return errors.Mark(err, InvalidScript)
	}
	if ev == nil {
		return InvalidEvaluation
	}

	if _, err := interpreter.ValueAs[interpreter.Unit](ev); err != nil {
		return errors.Mark(err, InvalidEvaluation)
	}
	return nil
}
