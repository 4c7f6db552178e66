package bitcoin

import (
	"encoding/hex"
	"strings"
)

// ComputeMerkleRoot reconstructs a block's merkle root from its ordered list
// of display-order (reversed) txid hex strings. Internally it works in
// natural (non-reversed) byte order, duplicating the last hash of any odd
// level, and returns the reversed display-order hex string. An empty list
// yields the all-zero root.
func ComputeMerkleRoot(txids []string) (string, error) {
	if len(txids) == 0 {
		return strings.Repeat("00", 32), nil
	}

	hashes := make([][]byte, len(txids))
	for i, txid := range txids {
		b, err := hex.DecodeString(txid)
		if err != nil {
			return "", err
		}
		hashes[i] = ReverseBytes(b)
	}

	for len(hashes) > 1 {
		if len(hashes)%2 == 1 {
			hashes = append(hashes, hashes[len(hashes)-1])
		}
		next := make([][]byte, 0, len(hashes)/2)
		for i := 0; i < len(hashes); i += 2 {
			combined := append(append([]byte{}, hashes[i]...), hashes[i+1]...)
			next = append(next, Hash256(combined))
		}
		hashes = next
	}

	return hex.EncodeToString(ReverseBytes(hashes[0])), nil
}
