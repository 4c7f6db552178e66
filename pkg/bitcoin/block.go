package bitcoin

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// BlockHeader is a decoded 80-byte Bitcoin block header.
type BlockHeader struct {
	Version       int32
	PrevBlockHash string
	MerkleRoot    string
	Timestamp     uint32
	Bits          string
	Nonce         uint32
	BlockHash     string
}

// ParseBlockHeader decodes the fixed 80-byte block header: version,
// previous block hash, merkle root, timestamp, difficulty bits, and nonce
// — all stored internally little-endian, hashes displayed byte-reversed.
func ParseBlockHeader(data []byte) (*BlockHeader, error) {
	if len(data) < 80 {
		return nil, fmt.Errorf("block header: too short (%d bytes)", len(data))
	}

	h := &BlockHeader{
		Version:       int32(binary.LittleEndian.Uint32(data[0:4])),
		PrevBlockHash: hex.EncodeToString(ReverseBytes(data[4:36])),
		MerkleRoot:    hex.EncodeToString(ReverseBytes(data[36:68])),
		Timestamp:     binary.LittleEndian.Uint32(data[68:72]),
		Bits:          hex.EncodeToString(ReverseBytes(data[72:76])),
		Nonce:         binary.LittleEndian.Uint32(data[76:80]),
		BlockHash:     hex.EncodeToString(ReverseBytes(Hash256(data[:80]))),
	}
	return h, nil
}

// scanOneTransaction walks a structurally valid transaction starting at pos
// without copying, returning the exclusive end offset. Used to slice out
// each transaction's raw bytes from a block body for ParseTransaction.
func scanOneTransaction(data []byte, pos int) (end int, err error) {
	start := pos
	if pos+4 > len(data) {
		return 0, fmt.Errorf("block: truncated tx version at %d", start)
	}
	pos += 4

	isSegwit := pos+2 <= len(data) && data[pos] == 0x00 && data[pos+1] == 0x01
	if isSegwit {
		pos += 2
	}

	inputCount, newPos, err := ReadCompactSize(data, pos)
	if err != nil {
		return 0, fmt.Errorf("block: tx at %d: input count: %w", start, err)
	}
	pos = newPos

	for i := uint64(0); i < inputCount; i++ {
		pos += 36 // outpoint: txid(32) + vout(4)
		scriptLen, newPos, err := ReadCompactSize(data, pos)
		if err != nil {
			return 0, fmt.Errorf("block: tx at %d: input %d script length: %w", start, i, err)
		}
		n, err := checkedLength(scriptLen, newPos, len(data))
		if err != nil {
			return 0, fmt.Errorf("block: tx at %d: input %d overruns block data: %w", start, i, err)
		}
		pos = newPos + n + 4 // scriptSig + sequence
		if pos > len(data) {
			return 0, fmt.Errorf("block: tx at %d: input %d overruns block data", start, i)
		}
	}

	outputCount, newPos, err := ReadCompactSize(data, pos)
	if err != nil {
		return 0, fmt.Errorf("block: tx at %d: output count: %w", start, err)
	}
	pos = newPos

	for i := uint64(0); i < outputCount; i++ {
		pos += 8
		scriptLen, newPos, err := ReadCompactSize(data, pos)
		if err != nil {
			return 0, fmt.Errorf("block: tx at %d: output %d script length: %w", start, i, err)
		}
		n, err := checkedLength(scriptLen, newPos, len(data))
		if err != nil {
			return 0, fmt.Errorf("block: tx at %d: output %d overruns block data: %w", start, i, err)
		}
		pos = newPos + n
	}

	if isSegwit {
		for i := uint64(0); i < inputCount; i++ {
			itemCount, newPos, err := ReadCompactSize(data, pos)
			if err != nil {
				return 0, fmt.Errorf("block: tx at %d: input %d witness count: %w", start, i, err)
			}
			pos = newPos
			for j := uint64(0); j < itemCount; j++ {
				itemLen, newPos, err := ReadCompactSize(data, pos)
				if err != nil {
					return 0, fmt.Errorf("block: tx at %d: input %d witness item %d length: %w", start, i, j, err)
				}
				n, err := checkedLength(itemLen, newPos, len(data))
				if err != nil {
					return 0, fmt.Errorf("block: tx at %d: input %d witness item %d overruns block data: %w", start, i, j, err)
				}
				pos = newPos + n
			}
		}
	}

	pos += 4 // locktime
	if pos > len(data) {
		return 0, fmt.Errorf("block: tx at %d: truncated locktime", start)
	}

	return pos, nil
}

// ScanTransactions slices out each transaction's raw bytes from a block
// body (header + tx-count + transactions), starting right after the
// tx-count varint at pos, without re-serializing any of them.
func ScanTransactions(data []byte, pos int, count uint64) ([][]byte, error) {
	txs := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		end, err := scanOneTransaction(data, pos)
		if err != nil {
			return nil, fmt.Errorf("block: transaction %d: %w", i, err)
		}
		txs = append(txs, data[pos:end])
		pos = end
	}
	return txs, nil
}

// DecodeBIP34Height reads the block height a coinbase commits to, per BIP34:
// the first scriptSig push is the height, encoded little-endian.
func DecodeBIP34Height(scriptSig []byte) int64 {
	if len(scriptSig) == 0 {
		return 0
	}
	pushLen := int(scriptSig[0])
	if pushLen == 0 || pushLen > len(scriptSig)-1 {
		return 0
	}

	var height int64
	for i, b := range scriptSig[1 : 1+pushLen] {
		height |= int64(b) << (8 * i)
	}
	return height
}
