package transaction

import (
	"bytes"
	"io"

	"github.com/OdyseeTeam/fast-ledger/compact"

	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
)

// MaxPayloadSize bounds each script payload accepted by Decode.
const MaxPayloadSize = 1 << 24

var (
	ErrDecode       = errors.New("transaction decode failed")
	ErrTrailingData = errors.New("trailing bytes after transaction")
)

// EncodedSize is len(tx.Encode()).
func (tx Transaction) EncodedSize() int {
	return compact.Size(uint64(tx.Version)) +
		compact.Size(tx.Timestamp) +
		compact.Size(uint64(len(tx.ExecutedData))) + len(tx.ExecutedData) +
		compact.Size(uint64(len(tx.ConditionData))) + len(tx.ConditionData)
}

// Encode returns the canonical image:
//
//	compact(version) compact(timestamp)
//	compact(len(executed)) executed
//	compact(len(condition)) condition
func (tx Transaction) Encode() []byte {
	return tx.appendTo(make([]byte, 0, tx.EncodedSize()))
}

func (tx Transaction) appendTo(b []byte) []byte {
	b = compact.Append(b, uint64(tx.Version))
	b = compact.Append(b, tx.Timestamp)
	b = compact.AppendBytes(b, tx.ExecutedData)
	b = compact.AppendBytes(b, tx.ConditionData)
	return b
}

// EncodeTo writes the canonical image to w through a pooled scratch buffer.
func (tx Transaction) EncodeTo(w io.Writer) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = tx.appendTo(buf.B[:0])
	_, err := w.Write(buf.B)
	return errors.Wrap(err, "write transaction")
}

// Decode parses exactly one transaction from b. Every failure, including
// bytes left over after the condition payload, matches ErrDecode.
func Decode(b []byte) (Transaction, error) {
	r := bytes.NewReader(b)
	tx, err := DecodeFrom(r)
	if err != nil {
		return Transaction{}, err
	}
	if r.Len() > 0 {
		return Transaction{}, errors.Mark(errors.Wrapf(ErrTrailingData, "%d bytes", r.Len()), ErrDecode)
	}
	return tx, nil
}

// DecodeFrom reads one transaction from r and leaves r positioned after it.
func DecodeFrom(r io.Reader) (Transaction, error) {
	var (
		tx  Transaction
		err error
	)

	tx.Version, err = compact.ReadUint32(r)
	if err != nil {
		return Transaction{}, decodeErr(err, "version")
	}

	tx.Timestamp, err = compact.Read(r)
	if err != nil {
		return Transaction{}, decodeErr(err, "timestamp")
	}

	tx.ExecutedData, err = compact.ReadBytes(r, MaxPayloadSize)
	if err != nil {
		return Transaction{}, decodeErr(err, "executed data")
	}

	tx.ConditionData, err = compact.ReadBytes(r, MaxPayloadSize)
	if err != nil {
		return Transaction{}, decodeErr(err, "condition data")
	}

	return tx, nil
}

func decodeErr(err error, field string) error {
	return errors.Mark(errors.Wrap(err, field), ErrDecode)
}
