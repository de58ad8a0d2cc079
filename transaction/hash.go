package transaction

import (
	"encoding/hex"

	"github.com/cockroachdb/errors"
	"github.com/lbryio/lbcd/chaincfg/chainhash"
	"github.com/valyala/bytebufferpool"
)

const HashSize = chainhash.HashSize

// Hash is a SHA-256 digest. Unlike chainhash.Hash it prints in natural byte
// order.
type Hash [HashSize]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }
func (h Hash) Bytes() []byte  { return append([]byte{}, h[:]...) }

func HashFromString(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrap(err, "hash hex")
	}
	if len(b) != HashSize {
		return h, errors.Newf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromString(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func sum(b []byte) Hash {
	return Hash(chainhash.HashH(b))
}

// Hash is the SHA-256 of the canonical encoding.
func (tx Transaction) Hash() Hash {
	return sum(tx.Encode())
}

// RootHash is the SHA-256 of the transaction hashes concatenated in the
// given order. An empty list hashes the empty string.
func RootHash(txs []Transaction) Hash {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, tx := range txs {
		h := tx.Hash()
		buf.B = append(buf.B, h[:]...)
	}
	return sum(buf.B)
}

// MerkleRoot reduces the transaction hashes pairwise into a binary Merkle
// root, duplicating the last node of odd levels. It returns the zero hash
// for no transactions and the transaction hash itself for one.
func MerkleRoot(txs []Transaction) Hash {
	if len(txs) == 0 {
		return Hash{}
	}

	level := make([]Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash()
	}

	var pair [2 * HashSize]byte
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			copy(pair[:HashSize], level[i][:])
			copy(pair[HashSize:], level[i+1][:])
			next = append(next, sum(pair[:]))
		}
		level = next
	}
	return level[0]
}
