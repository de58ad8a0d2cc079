package script

import (
	"encoding/hex"

	"github.com/lbryio/lbcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"
)

type Hex struct {
	bytes []byte
	hex   string
}

func ToHex(b []byte) *Hex {
	return &Hex{
		bytes: b,
		hex:   hex.EncodeToString(b),
	}
}

func (h Hex) String() string {
	return h.hex
}

func (h Hex) Bytes() []byte {
	return h.bytes
}

// ID returns RIPEMD160(SHA256(b)), a short identifier for an encoded script.
func ID(b []byte) [ripemd160.Size]byte {
	r := ripemd160.New()
	r.Write(chainhash.HashB(b))

	var id [ripemd160.Size]byte
	copy(id[:], r.Sum(nil))
	return id
}

// IDString is the lowercase hex form of ID.
func IDString(b []byte) string {
	id := ID(b)
	return hex.EncodeToString(id[:])
}
