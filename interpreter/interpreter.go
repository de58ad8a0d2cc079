// Package interpreter runs scripts against a registered set of opcodes.
//
// Opcodes are values rather than types: each carries its numeric code, an
// argument decoder and a handler. The interpreter looks the code of every
// instruction up in its table, decodes the instruction's args, runs the
// handler and pushes the handler's result on the evaluation stack. The value
// on top of the stack once the script ends is the evaluation result.
package interpreter

import (
	"github.com/OdyseeTeam/fast-ledger/script"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownOpCode = errors.New("unknown opcode")
	ErrDuplicateCode = errors.New("opcode registered twice")
	ErrInvalidArgs   = errors.New("invalid opcode arguments")
	ErrHandler       = errors.New("opcode handler failed")
	ErrStepLimit     = errors.New("step limit exceeded")
	ErrTypeMismatch  = errors.New("evaluation value has unexpected type")
)

// Unit is the value of opcodes that produce nothing.
type Unit struct{}

// OpCode describes one instruction the interpreter can run.
type OpCode struct {
	Code uint32
	Name string

	// DecodeArgs turns the raw instruction args into the handler's input.
	// A nil DecodeArgs behaves like NoArgs.
	DecodeArgs func(args []byte) (interface{}, error)
	Handler    func(args interface{}) (interface{}, error)
}

// NoArgs accepts only an empty argument string and decodes it to Unit.
func NoArgs(args []byte) (interface{}, error) {
	if len(args) != 0 {
		return nil, errors.Newf("expected no args, got %d bytes", len(args))
	}
	return Unit{}, nil
}

// Step is passed to BeforeStep and AfterStep hooks. Result is only set for
// AfterStep.
type Step struct {
	Index       int
	Instruction script.Instruction
	Name        string
	Result      interface{}
}

type Interpreter struct {
	ops map[uint32]OpCode

	beforeStep []func(Step)
	afterStep  []func(Step)
	stepLimit  int
}

// New builds an interpreter holding ops. Two ops sharing a code is an error.
func New(ops []OpCode, opts ...Option) (*Interpreter, error) {
	in := &Interpreter{ops: make(map[uint32]OpCode, len(ops))}
	for _, op := range ops {
		if _, ok := in.ops[op.Code]; ok {
			return nil, errors.Wrapf(ErrDuplicateCode, "code %d (%s)", op.Code, op.Name)
		}
		if op.Handler == nil {
			return nil, errors.Newf("opcode %d (%s) has no handler", op.Code, op.Name)
		}
		if op.DecodeArgs == nil {
			op.DecodeArgs = NoArgs
		}
		in.ops[op.Code] = op
	}
	for _, o := range opts {
		o.apply(in)
	}
	return in, nil
}

// Names maps every registered code to its opcode name, for Script.Disasm.
func (in *Interpreter) Names() map[uint32]string {
	names := make(map[uint32]string, len(in.ops))
	for code, op := range in.ops {
		names[code] = op.Name
	}
	return names
}

// Interpret runs s. A script with no instructions evaluates to nothing and
// Interpret returns a nil Evaluation and a nil error.
func (in *Interpreter) Interpret(s *script.Script) (*Evaluation, error) {
	var stack []interface{}

	for i, ins := range s.Instructions() {
		if in.stepLimit > 0 && i >= in.stepLimit {
			return nil, errors.Wrapf(ErrStepLimit, "limit %d", in.stepLimit)
		}

		op, ok := in.ops[ins.Code]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownOpCode, "instruction %d: code %d", i, ins.Code)
		}

		step := Step{Index: i, Instruction: ins, Name: op.Name}
		for _, h := range in.beforeStep {
			h(step)
		}

		args, err := op.DecodeArgs(ins.Args)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "instruction %d (%s)", i, op.Name), ErrInvalidArgs)
		}

		logrus.Debugf("interpreter: step %d %s", i, op.Name)

		res, err := op.Handler(args)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "instruction %d (%s)", i, op.Name), ErrHandler)
		}
		stack = append(stack, res)

		step.Result = res
		for _, h := range in.afterStep {
			h(step)
		}
	}

	if len(stack) == 0 {
		return nil, nil
	}
	return &Evaluation{stack: stack}, nil
}
