// Package compact implements the two-bit-tag compact integer encoding used by
// the transaction codec. The low two bits of the first byte select the mode:
//
//	00  v < 2^6    1 byte   v<<2
//	01  v < 2^14   2 bytes  (v<<2)|1, little-endian
//	10  v < 2^30   4 bytes  (v<<2)|2, little-endian
//	11  v >= 2^30  ((n-4)<<2)|3 followed by n little-endian value bytes
package compact

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"
)

const (
	maxSingleByte = 1<<6 - 1
	maxTwoByte    = 1<<14 - 1
	maxFourByte   = 1<<30 - 1

	modeSingle = 0x00
	modeTwo    = 0x01
	modeFour   = 0x02
	modeBig    = 0x03
)

var (
	ErrTruncated    = errors.New("compact: truncated input")
	ErrNonCanonical = errors.New("compact: non-canonical encoding")
	ErrOverflow     = errors.New("compact: value overflows target type")
	ErrTooLarge     = errors.New("compact: byte string exceeds limit")
)

// Size returns the number of bytes Append would emit for v.
func Size(v uint64) int {
	switch {
	case v <= maxSingleByte:
		return 1
	case v <= maxTwoByte:
		return 2
	case v <= maxFourByte:
		return 4
	default:
		return 1 + valueBytes(v)
	}
}

// valueBytes is the minimum number of bytes needed to hold v, never less
// than four since mode 11 starts where mode 10 ends.
func valueBytes(v uint64) int {
	n := (bits.Len64(v) + 7) / 8
	if n < 4 {
		n = 4
	}
	return n
}

// Append appends the compact image of v to dst.
func Append(dst []byte, v uint64) []byte {
	switch {
	case v <= maxSingleByte:
		return append(dst, byte(v<<2)|modeSingle)
	case v <= maxTwoByte:
		return append(dst, byte(v<<2)|modeTwo, byte(v>>6))
	case v <= maxFourByte:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v<<2)|modeFour)
		return append(dst, b[:]...)
	default:
		n := valueBytes(v)
		dst = append(dst, byte((n-4)<<2)|modeBig)
		for i := 0; i < n; i++ {
			dst = append(dst, byte(v>>(8*i)))
		}
		return dst
	}
}

// Write writes the compact image of v to w.
func Write(w io.Writer, v uint64) error {
	var scratch [9]byte
	_, err := w.Write(Append(scratch[:0], v))
	return errors.Wrap(err, "write compact")
}

// WriteBytes writes b prefixed by its compact length.
func WriteBytes(w io.Writer, b []byte) error {
	err := Write(w, uint64(len(b)))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "write bytes")
}

// AppendBytes appends b prefixed by its compact length.
func AppendBytes(dst []byte, b []byte) []byte {
	return append(Append(dst, uint64(len(b))), b...)
}

// Read reads one compact integer from r. Images that use a wider mode than
// the value needs are rejected so every value has exactly one encoding.
func Read(r io.Reader) (uint64, error) {
	first, err := readByte(r)
	if err != nil {
		return 0, err
	}

	switch first & 0x03 {
	case modeSingle:
		return uint64(first >> 2), nil

	case modeTwo:
		rest, err := read(r, 1)
		if err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint16([]byte{first, rest[0]}) >> 2)
		if v <= maxSingleByte {
			return 0, errors.Wrapf(ErrNonCanonical, "value %d in two-byte mode", v)
		}
		return v, nil

	case modeFour:
		rest, err := read(r, 3)
		if err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint32(append([]byte{first}, rest...)) >> 2)
		if v <= maxTwoByte {
			return 0, errors.Wrapf(ErrNonCanonical, "value %d in four-byte mode", v)
		}
		return v, nil

	default:
		n := int(first>>2) + 4
		if n > 8 {
			return 0, errors.Wrapf(ErrOverflow, "%d value bytes", n)
		}
		buf, err := read(r, n)
		if err != nil {
			return 0, err
		}
		if buf[n-1] == 0 {
			return 0, errors.Wrap(ErrNonCanonical, "zero high byte in big mode")
		}
		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(buf[i])
		}
		if v <= maxFourByte {
			return 0, errors.Wrapf(ErrNonCanonical, "value %d in big mode", v)
		}
		return v, nil
	}
}

// ReadUint32 reads a compact integer that must fit in 32 bits.
func ReadUint32(r io.Reader) (uint32, error) {
	v, err := Read(r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, errors.Wrapf(ErrOverflow, "%d does not fit in uint32", v)
	}
	return uint32(v), nil
}

// ReadBytes reads a compact length followed by that many bytes. A length
// above max is rejected before anything is allocated.
func ReadBytes(r io.Reader, max uint64) ([]byte, error) {
	size, err := Read(r)
	if err != nil {
		return nil, err
	}
	if size > max {
		return nil, errors.Wrapf(ErrTooLarge, "length %d, limit %d", size, max)
	}
	if size == 0 {
		return []byte{}, nil
	}
	return read(r, int(size))
}

func readByte(r io.Reader) (byte, error) {
	buf, err := read(r, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func read(r io.Reader, numBytes int) ([]byte, error) {
	b := make([]byte, numBytes)
	n, err := io.ReadFull(r, b)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrapf(ErrTruncated, "expected to read %d bytes, only got %d", numBytes, n)
		}
		return nil, errors.Wrap(err, "read")
	}
	return b, nil
}
