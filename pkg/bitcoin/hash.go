// Package bitcoin implements the consensus-layer deserializers and
// classifiers: hashing, varints, addresses, scripts, transactions, merkle
// trees, and the blk/rev file formats.
package bitcoin

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// Hash256 computes Bitcoin's double-SHA256: sha256(sha256(data)).
func Hash256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Hash160 computes ripemd160(sha256(data)), used for P2PKH/P2SH/P2WPKH
// pubkey and script hashes.
func Hash160(data []byte) []byte {
	sh := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sh[:])
	return r.Sum(nil)
}

// ReverseBytes returns a new slice with b's bytes in reverse order. Used at
// the internal/display byte-order boundary for txids, block hashes, and
// merkle roots.
func ReverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
