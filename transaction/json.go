package transaction

import (
	"encoding/hex"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

type jsonTransaction struct {
	Hash          *Hash  `json:"hash,omitempty"`
	Version       uint32 `json:"version"`
	Timestamp     uint64 `json:"timestamp"`
	ExecutedData  string `json:"executed_data"`
	ConditionData string `json:"condition_data"`
}

// MarshalJSON renders payloads as hex and includes the hash.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	h := tx.Hash()
	return json.Marshal(jsonTransaction{
		Hash:          &h,
		Version:       tx.Version,
		Timestamp:     tx.Timestamp,
		ExecutedData:  hex.EncodeToString(tx.ExecutedData),
		ConditionData: hex.EncodeToString(tx.ConditionData),
	})
}

// UnmarshalJSON accepts the MarshalJSON form. A hash, when present, must
// match the decoded fields.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var j jsonTransaction
	if err := json.Unmarshal(data, &j); err != nil {
		return errors.WithStack(err)
	}

	executed, err := hex.DecodeString(j.ExecutedData)
	if err != nil {
		return errors.Wrap(err, "executed_data")
	}
	condition, err := hex.DecodeString(j.ConditionData)
	if err != nil {
		return errors.Wrap(err, "condition_data")
	}

	out := Transaction{
		Version:       j.Version,
		Timestamp:     j.Timestamp,
		ExecutedData:  executed,
		ConditionData: condition,
	}
	if j.Hash != nil && *j.Hash != out.Hash() {
		return errors.Newf("hash %s does not match fields (%s)", j.Hash, out.Hash())
	}
	*tx = out
	return nil
}
