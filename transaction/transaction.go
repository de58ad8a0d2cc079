// Package transaction implements the ledger's transaction record: a version,
// a timestamp and two script payloads bound together by a canonical byte
// encoding and the SHA-256 hash of that encoding.
package transaction

import (
	"bytes"

	"github.com/OdyseeTeam/fast-ledger/script"
)

// Transaction is immutable once built; methods never modify the receiver and
// the payload slices must not be written to by callers.
type Transaction struct {
	Version       uint32
	Timestamp     uint64
	ExecutedData  []byte
	ConditionData []byte
}

// New returns a version 0 transaction whose executed script is a single
// OpEcho and whose condition script is empty.
func New(timestamp uint64) Transaction {
	return NewWithScripts(0, timestamp, script.New().Push(OpEchoCode, nil), script.New())
}

// NewWithScripts encodes both scripts into a new transaction.
func NewWithScripts(version uint32, timestamp uint64, executed, condition script.Script) Transaction {
	return Transaction{
		Version:       version,
		Timestamp:     timestamp,
		ExecutedData:  executed.Encode(),
		ConditionData: condition.Encode(),
	}
}

// Equal compares all four fields. A nil payload equals an empty one since
// both encode identically.
func (tx Transaction) Equal(other Transaction) bool {
	return tx.Version == other.Version &&
		tx.Timestamp == other.Timestamp &&
		bytes.Equal(tx.ExecutedData, other.ExecutedData) &&
		bytes.Equal(tx.ConditionData, other.ConditionData)
}

func (tx Transaction) Clone() Transaction {
	out := tx
	out.ExecutedData = append([]byte{}, tx.ExecutedData...)
	out.ConditionData = append([]byte{}, tx.ConditionData...)
	return out
}

func (tx Transaction) String() string {
	return "transaction hash: (" + tx.Hash().String() + ")"
}
