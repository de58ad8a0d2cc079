package interpreter

import (
	"encoding/binary"
	"testing"

	"github.com/OdyseeTeam/fast-ledger/script"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitOp(code uint32, name string, calls *int) OpCode {
	return OpCode{
		Code: code,
		Name: name,
		Handler: func(interface{}) (interface{}, error) {
			*calls++
			return Unit{}, nil
		},
	}
}

// pushU32 decodes a 4-byte little-endian argument and returns it.
var pushU32 = OpCode{
	Code: 7,
	Name: "PushU32",
	DecodeArgs: func(args []byte) (interface{}, error) {
		if len(args) != 4 {
			return nil, errors.Newf("want 4 bytes, got %d", len(args))
		}
		return binary.LittleEndian.Uint32(args), nil
	},
	Handler: func(args interface{}) (interface{}, error) {
		return args.(uint32), nil
	},
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestInterpretUnit(t *testing.T) {
	var calls int
	in, err := New([]OpCode{unitOp(5, "OpEcho", &calls)})
	require.NoError(t, err)

	s := script.New().Push(5, nil)
	ev, err := in.Interpret(&s)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, 1, calls)

	_, err = ValueAs[Unit](ev)
	assert.NoError(t, err)
}

func TestInterpretEmptyScript(t *testing.T) {
	in, err := New(nil)
	require.NoError(t, err)

	s := script.New()
	ev, err := in.Interpret(&s)
	require.NoError(t, err)
	assert.Nil(t, ev)

	_, err = ValueAs[Unit](ev)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestInterpretUnknownOpCode(t *testing.T) {
	var calls int
	in, err := New([]OpCode{unitOp(5, "OpEcho", &calls)})
	require.NoError(t, err)

	s := script.New().Push(5, nil).Push(6, nil)
	_, err = in.Interpret(&s)
	assert.True(t, errors.Is(err, ErrUnknownOpCode))
	assert.Equal(t, 1, calls)
}

func TestInterpretInvalidArgs(t *testing.T) {
	var calls int
	in, err := New([]OpCode{unitOp(5, "OpEcho", &calls), pushU32})
	require.NoError(t, err)

	s := script.New().Push(5, []byte{1})
	_, err = in.Interpret(&s)
	assert.True(t, errors.Is(err, ErrInvalidArgs))
	assert.Zero(t, calls)

	s = script.New().Push(7, []byte{1, 2})
	_, err = in.Interpret(&s)
	assert.True(t, errors.Is(err, ErrInvalidArgs))
}

func TestInterpretHandlerError(t *testing.T) {
	boom := errors.New("boom")
	in, err := New([]OpCode{{
		Code:    1,
		Name:    "Fail",
		Handler: func(interface{}) (interface{}, error) { return nil, boom },
	}})
	require.NoError(t, err)

	s := script.New().Push(1, nil)
	_, err = in.Interpret(&s)
	assert.True(t, errors.Is(err, ErrHandler))
	assert.True(t, errors.Is(err, boom))
}

func TestValueAsTypeMismatch(t *testing.T) {
	var calls int
	in, err := New([]OpCode{unitOp(5, "OpEcho", &calls), pushU32})
	require.NoError(t, err)

	s := script.New().Push(5, nil).Push(7, u32(42))
	ev, err := in.Interpret(&s)
	require.NoError(t, err)

	_, err = ValueAs[Unit](ev)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	v, err := ValueAs[uint32](ev)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
	assert.Equal(t, []interface{}{Unit{}, uint32(42)}, ev.Stack())
}

func TestDuplicateCode(t *testing.T) {
	var calls int
	_, err := New([]OpCode{unitOp(5, "a", &calls), unitOp(5, "b", &calls)})
	assert.True(t, errors.Is(err, ErrDuplicateCode))
}

func TestMissingHandler(t *testing.T) {
	_, err := New([]OpCode{{Code: 1, Name: "Nothing"}})
	assert.Error(t, err)
}

func TestHooks(t *testing.T) {
	var calls int
	var before, after []string
	in, err := New(
		[]OpCode{unitOp(5, "OpEcho", &calls), pushU32},
		BeforeStep(func(s Step) { before = append(before, s.Name) }),
		AfterStep(func(s Step) {
			after = append(after, s.Name)
			if s.Name == "PushU32" {
				assert.Equal(t, uint32(3), s.Result)
			}
		}),
	)
	require.NoError(t, err)

	s := script.New().Push(5, nil).Push(7, u32(3))
	_, err = in.Interpret(&s)
	require.NoError(t, err)
	assert.Equal(t, []string{"OpEcho", "PushU32"}, before)
	assert.Equal(t, []string{"OpEcho", "PushU32"}, after)
}

func TestStepLimit(t *testing.T) {
	var calls int
	in, err := New([]OpCode{unitOp(5, "OpEcho", &calls)}, WithStepLimit(2))
	require.NoError(t, err)

	s := script.New().Push(5, nil).Push(5, nil).Push(5, nil)
	_, err = in.Interpret(&s)
	assert.True(t, errors.Is(err, ErrStepLimit))
	assert.Equal(t, 2, calls)
}

func TestNames(t *testing.T) {
	var calls int
	in, err := New([]OpCode{unitOp(5, "OpEcho", &calls), pushU32})
	require.NoError(t, err)
	assert.Equal(t, map[uint32]string{5: "OpEcho", 7: "PushU32"}, in.Names())
}
