package bitcoin

import (
	"encoding/hex"
	"fmt"
)

// UndoPrevout is one recovered prevout from a block's undo (rev*.dat) data:
// the value and scriptPubKey of an output an input in the block spent.
type UndoPrevout struct {
	ValueSats       int64
	ScriptPubkeyHex string
}

// blockMagic is Bitcoin mainnet's blk/rev file record magic.
var blockMagic = [4]byte{0xf9, 0xbe, 0xb4, 0xd9}

// XORDecode reverses Bitcoin Core's whole-file XOR obfuscation of blk*.dat
// and rev*.dat (introduced to deter naive antivirus heuristics). An all-zero
// key is a documented no-op.
func XORDecode(data, key []byte) []byte {
	allZero := true
	for _, k := range key {
		if k != 0 {
			allZero = false
			break
		}
	}
	if allZero || len(key) == 0 {
		return data
	}

	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// findRecord locates the first magic+size delimited record at or after pos
// and returns its data range [start, end) within data.
func findRecord(data []byte, pos int) (start, end int, ok bool) {
	idx := indexMagic(data, pos)
	if idx == -1 || idx+8 > len(data) {
		return 0, 0, false
	}
	size := int(uint32(data[idx+4]) | uint32(data[idx+5])<<8 | uint32(data[idx+6])<<16 | uint32(data[idx+7])<<24)
	dataStart := idx + 8
	if dataStart+size > len(data) {
		return 0, 0, false
	}
	return dataStart, dataStart + size, true
}

func indexMagic(data []byte, from int) int {
	for i := from; i+4 <= len(data); i++ {
		if data[i] == blockMagic[0] && data[i+1] == blockMagic[1] && data[i+2] == blockMagic[2] && data[i+3] == blockMagic[3] {
			return i
		}
	}
	return -1
}

// allRecordLocations finds every magic+size delimited record in data. When
// hasTrailingHash is set (rev*.dat records end with a 32-byte CBlockUndo
// hash that is not part of the size-prefixed body), that trailer is skipped
// between records.
func allRecordLocations(data []byte, hasTrailingHash bool) [][2]int {
	var records [][2]int
	pos := 0
	for pos+8 <= len(data) {
		start, end, ok := findRecord(data, pos)
		if !ok {
			break
		}
		records = append(records, [2]int{start, end})
		pos = end
		if hasTrailingHash {
			pos += 32
		}
	}
	return records
}

// peekCompactSize reads a CompactSize at pos without requiring the caller to
// track position advancement; returns -1 if the value can't be determined
// from the available bytes.
func peekCompactSize(data []byte, pos int) int64 {
	v, _, err := ReadCompactSize(data, pos)
	if err != nil {
		return -1
	}
	return int64(v)
}

// ParseUndoData decodes a single block's CBlockUndo payload (the record body
// between a rev*.dat magic+size header and its trailing hash) into one
// prevout list per non-coinbase transaction, in block order.
func ParseUndoData(data []byte) ([][]UndoPrevout, error) {
	pos := 0

	numTxUndos, newPos, err := ReadCompactSize(data, pos)
	if err != nil {
		return nil, fmt.Errorf("undo: tx undo count: %w", err)
	}
	pos = newPos

	allPrevouts := make([][]UndoPrevout, 0, numTxUndos)
	for t := uint64(0); t < numTxUndos; t++ {
		numCoins, newPos, err := ReadCompactSize(data, pos)
		if err != nil {
			return nil, fmt.Errorf("undo: tx %d coin count: %w", t, err)
		}
		pos = newPos

		prevouts := make([]UndoPrevout, 0, numCoins)
		for c := uint64(0); c < numCoins; c++ {
			nCode, newPos, err := ReadCoreVarInt(data, pos)
			if err != nil {
				return nil, fmt.Errorf("undo: tx %d coin %d nCode: %w", t, c, err)
			}
			pos = newPos
			height := nCode >> 1

			if height > 0 {
				_, newPos, err := ReadCoreVarInt(data, pos)
				if err != nil {
					return nil, fmt.Errorf("undo: tx %d coin %d version dummy: %w", t, c, err)
				}
				pos = newPos
			}

			compressedAmount, newPos, err := ReadCoreVarInt(data, pos)
			if err != nil {
				return nil, fmt.Errorf("undo: tx %d coin %d amount: %w", t, c, err)
			}
			pos = newPos
			valueSats := DecompressAmount(compressedAmount)

			nSize, newPos, err := ReadCoreVarInt(data, pos)
			if err != nil {
				return nil, fmt.Errorf("undo: tx %d coin %d script size: %w", t, c, err)
			}
			pos = newPos

			scriptLen, err := checkedLength(scriptPayloadLen(nSize), pos, len(data))
			if err != nil {
				return nil, fmt.Errorf("undo: tx %d coin %d script truncated at %d: %w", t, c, pos, err)
			}
			script, err := DecompressScript(nSize, data[pos:pos+scriptLen])
			if err != nil {
				return nil, fmt.Errorf("undo: tx %d coin %d: %w", t, c, err)
			}
			pos += scriptLen

			prevouts = append(prevouts, UndoPrevout{
				ValueSats:       int64(valueSats),
				ScriptPubkeyHex: hex.EncodeToString(script),
			})
		}
		allPrevouts = append(allPrevouts, prevouts)
	}

	return allPrevouts, nil
}

// scriptPayloadLen returns how many undo-data bytes follow nSize before the
// next field, matching DecompressScript's nSize cases. Returned as uint64
// (not int) because nSize is attacker-controlled and the default case's
// nSize-6 must stay widened until checkedLength has validated it against
// the remaining buffer.
func scriptPayloadLen(nSize uint64) uint64 {
	switch nSize {
	case 0, 1:
		return 20
	case 2, 3, 4, 5:
		return 32
	default:
		return nSize - 6
	}
}

// ExtractFirstBlockRecord returns the body of the first blk*.dat record
// after XOR decoding.
func ExtractFirstBlockRecord(blkData []byte) ([]byte, error) {
	start, end, ok := findRecord(blkData, 0)
	if !ok {
		return nil, fmt.Errorf("block: no valid block record found")
	}
	return blkData[start:end], nil
}

// MatchUndoRecord finds the rev*.dat record whose tx-undo CompactSize count
// equals expectedCount. If none matches, it falls back to the first record
// in the file (documented behavior for single-block fixtures where blk/rev
// ordering across file boundaries can't otherwise be resolved), reporting
// usedFallback so callers can surface it.
func MatchUndoRecord(revData []byte, expectedCount uint64) (record []byte, usedFallback bool, err error) {
	locations := allRecordLocations(revData, true)
	if len(locations) == 0 {
		return nil, false, fmt.Errorf("undo: no valid undo records found")
	}

	for _, loc := range locations {
		count := peekCompactSize(revData, loc[0])
		if count == int64(expectedCount) {
			return revData[loc[0]:loc[1]], false, nil
		}
	}

	return revData[locations[0][0]:locations[0][1]], true, nil
}
