// Package script holds the script format carried in transaction payloads.
// A script is an ordered list of opcode references, each with an opaque
// argument string that the opcode's own decoder interprets.
package script

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/OdyseeTeam/fast-ledger/compact"

	"github.com/cockroachdb/errors"
)

const (
	// MaxInstructions bounds the instruction count a decoded script may claim.
	MaxInstructions = 1 << 16
	// MaxArgsSize bounds a single instruction's argument string.
	MaxArgsSize = 1 << 20
)

var ErrMalformed = errors.New("malformed script")

type Instruction struct {
	Code uint32
	Args []byte
}

// Script is built with New and Push:
//
//	s := script.New().Push(5, nil)
type Script struct {
	instructions []Instruction
}

func New() Script {
	return Script{}
}

// Push returns a copy of s with one more instruction appended.
func (s Script) Push(code uint32, args []byte) Script {
	out := s.Clone()
	out.instructions = append(out.instructions, Instruction{Code: code, Args: cloneBytes(args)})
	return out
}

func (s Script) Len() int { return len(s.instructions) }

// Instructions returns the instructions in execution order. The slice is a
// copy; callers may modify it freely.
func (s Script) Instructions() []Instruction {
	return s.Clone().instructions
}

func (s Script) Clone() Script {
	if s.instructions == nil {
		return Script{}
	}
	out := make([]Instruction, len(s.instructions))
	for i, in := range s.instructions {
		out[i] = Instruction{Code: in.Code, Args: cloneBytes(in.Args)}
	}
	return Script{instructions: out}
}

// Encode returns compact(count) followed by compact(code) and the
// length-prefixed args of every instruction.
func (s Script) Encode() []byte {
	b := compact.Append(nil, uint64(len(s.instructions)))
	for _, in := range s.instructions {
		b = compact.Append(b, uint64(in.Code))
		b = compact.AppendBytes(b, in.Args)
	}
	return b
}

// Decode parses an encoded script. Trailing bytes are an error.
func Decode(b []byte) (Script, error) {
	r := bytes.NewReader(b)

	count, err := compact.Read(r)
	if err != nil {
		return Script{}, errors.Mark(errors.Wrap(err, "instruction count"), ErrMalformed)
	}
	if count > MaxInstructions {
		return Script{}, errors.Wrapf(ErrMalformed, "%d instructions", count)
	}

	var s Script
	for i := uint64(0); i < count; i++ {
		code, err := compact.ReadUint32(r)
		if err != nil {
			return Script{}, errors.Mark(errors.Wrapf(err, "instruction %d code", i), ErrMalformed)
		}
		args, err := compact.ReadBytes(r, MaxArgsSize)
		if err != nil {
			return Script{}, errors.Mark(errors.Wrapf(err, "instruction %d args", i), ErrMalformed)
		}
		s.instructions = append(s.instructions, Instruction{Code: code, Args: args})
	}

	if r.Len() > 0 {
		return Script{}, errors.Wrapf(ErrMalformed, "%d trailing bytes", r.Len())
	}
	return s, nil
}

// Disasm renders the script one instruction per token, using names to label
// known codes.
func (s Script) Disasm(names map[uint32]string) string {
	parts := make([]string, 0, len(s.instructions))
	for _, in := range s.instructions {
		name, ok := names[in.Code]
		if !ok {
			name = fmt.Sprintf("op(%d)", in.Code)
		}
		if len(in.Args) > 0 {
			name += " " + ToHex(in.Args).String()
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

func (s Script) String() string {
	return s.Disasm(nil)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
