package script

import (
	"encoding/hex"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSingleOp(t *testing.T) {
	s := New().Push(5, nil)
	assert.Equal(t, "041400", hex.EncodeToString(s.Encode()))
}

func TestEncodeEmpty(t *testing.T) {
	assert.Equal(t, []byte{0x00}, New().Encode())
}

func TestEncodeWithArgs(t *testing.T) {
	s := New().Push(5, nil).Push(64, []byte{0xaa, 0xbb})
	assert.Equal(t, "081400010108aabb", hex.EncodeToString(s.Encode()))
}

func TestDecodeRoundTrip(t *testing.T) {
	s := New().Push(5, nil).Push(1<<20, []byte("hello")).Push(0, []byte{})

	decoded, err := Decode(s.Encode())
	require.NoError(t, err)
	require.Equal(t, 3, decoded.Len())
	assert.Equal(t, s.Encode(), decoded.Encode())

	ins := decoded.Instructions()
	assert.Equal(t, uint32(5), ins[0].Code)
	assert.Equal(t, uint32(1<<20), ins[1].Code)
	assert.Equal(t, []byte("hello"), ins[1].Args)
}

func TestDecodeErrors(t *testing.T) {
	for name, h := range map[string]string{
		"empty":          "",
		"missing op":     "04",
		"missing args":   "0414",
		"short args":     "04140c0102",
		"trailing bytes": "04140000",
		"code overflow":  "04" + "07000000000100",
	} {
		b, _ := hex.DecodeString(h)
		_, err := Decode(b)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrMalformed), "%s: %v", name, err)
	}
}

func TestPushDoesNotAlias(t *testing.T) {
	base := New().Push(5, nil)
	a := base.Push(6, nil)
	b := base.Push(7, nil)

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, uint32(6), a.Instructions()[1].Code)
	assert.Equal(t, uint32(7), b.Instructions()[1].Code)

	args := []byte{1}
	c := New().Push(1, args)
	args[0] = 2
	assert.Equal(t, []byte{1}, c.Instructions()[0].Args)
}

func TestDisasm(t *testing.T) {
	s := New().Push(5, nil).Push(9, []byte{0x01, 0xff})
	assert.Equal(t, "op(5) op(9) 01ff", s.String())
	assert.Equal(t, "OpEcho op(9) 01ff", s.Disasm(map[uint32]string{5: "OpEcho"}))
}

func TestID(t *testing.T) {
	assert.Equal(t, "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb", IDString(nil))
	assert.NotEqual(t, IDString([]byte{0}), IDString([]byte{1}))
}
