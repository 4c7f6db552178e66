package bitcoin

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// TxInput is a single parsed transaction input.
type TxInput struct {
	Txid         string
	Vout         uint32
	ScriptSigHex string
	ScriptSig    []byte
	Sequence     uint32
	Witness      []string
	WitnessRaw   [][]byte
}

// TxOutput is a single parsed transaction output.
type TxOutput struct {
	N               int
	ValueSats       int64
	ScriptPubkeyHex string
	ScriptPubkey    []byte
}

// Transaction is a fully parsed legacy or BIP141 SegWit transaction, with
// enough retained byte-range bookkeeping to compute weight/vbytes without
// re-serializing.
type Transaction struct {
	Raw       []byte
	Version   int32
	IsSegwit  bool
	Inputs    []TxInput
	Outputs   []TxOutput
	Locktime  uint32

	witnessStart int
	witnessEnd   int
}

// ParseTransaction decodes a raw transaction byte slice per BIP141: a 4-byte
// version, an optional 0x00 0x01 marker+flag pair signaling SegWit, inputs,
// outputs, witness stacks (if segwit), and a 4-byte locktime. No trailing
// bytes are permitted.
func ParseTransaction(raw []byte) (*Transaction, error) {
	tx := &Transaction{Raw: raw}
	pos := 0

	if len(raw) < 4 {
		return nil, fmt.Errorf("transaction: too short for version field (%d bytes)", len(raw))
	}
	tx.Version = int32(binary.LittleEndian.Uint32(raw[pos : pos+4]))
	pos += 4

	if pos+2 <= len(raw) && raw[pos] == 0x00 {
		if raw[pos+1] != 0x01 {
			return nil, fmt.Errorf("transaction: invalid segwit flag 0x%02x", raw[pos+1])
		}
		tx.IsSegwit = true
		pos += 2
	}

	inputCount, newPos, err := ReadCompactSize(raw, pos)
	if err != nil {
		return nil, fmt.Errorf("transaction: input count: %w", err)
	}
	pos = newPos

	tx.Inputs = make([]TxInput, 0, inputCount)
	for i := uint64(0); i < inputCount; i++ {
		if pos+36 > len(raw) {
			return nil, fmt.Errorf("transaction: truncated input %d outpoint", i)
		}
		txidInternal := raw[pos : pos+32]
		txid := hex.EncodeToString(ReverseBytes(txidInternal))
		pos += 32
		vout := binary.LittleEndian.Uint32(raw[pos : pos+4])
		pos += 4

		scriptLen, newPos, err := ReadCompactSize(raw, pos)
		if err != nil {
			return nil, fmt.Errorf("transaction: input %d script length: %w", i, err)
		}
		pos = newPos
		n, err := checkedLength(scriptLen, pos, len(raw))
		if err != nil {
			return nil, fmt.Errorf("transaction: input %d scriptSig truncated: %w", i, err)
		}
		scriptSig := raw[pos : pos+n]
		pos += n

		if pos+4 > len(raw) {
			return nil, fmt.Errorf("transaction: input %d missing sequence", i)
		}
		sequence := binary.LittleEndian.Uint32(raw[pos : pos+4])
		pos += 4

		tx.Inputs = append(tx.Inputs, TxInput{
			Txid:         txid,
			Vout:         vout,
			ScriptSigHex: hex.EncodeToString(scriptSig),
			ScriptSig:    scriptSig,
			Sequence:     sequence,
		})
	}

	outputCount, newPos, err := ReadCompactSize(raw, pos)
	if err != nil {
		return nil, fmt.Errorf("transaction: output count: %w", err)
	}
	pos = newPos

	tx.Outputs = make([]TxOutput, 0, outputCount)
	for i := uint64(0); i < outputCount; i++ {
		if pos+8 > len(raw) {
			return nil, fmt.Errorf("transaction: output %d truncated value", i)
		}
		value := int64(binary.LittleEndian.Uint64(raw[pos : pos+8]))
		pos += 8

		scriptLen, newPos, err := ReadCompactSize(raw, pos)
		if err != nil {
			return nil, fmt.Errorf("transaction: output %d script length: %w", i, err)
		}
		pos = newPos
		n, err := checkedLength(scriptLen, pos, len(raw))
		if err != nil {
			return nil, fmt.Errorf("transaction: output %d scriptPubKey truncated: %w", i, err)
		}
		scriptPubkey := raw[pos : pos+n]
		pos += n

		tx.Outputs = append(tx.Outputs, TxOutput{
			N:               int(i),
			ValueSats:       value,
			ScriptPubkeyHex: hex.EncodeToString(scriptPubkey),
			ScriptPubkey:    scriptPubkey,
		})
	}

	if tx.IsSegwit {
		tx.witnessStart = pos
		for i := range tx.Inputs {
			itemCount, newPos, err := ReadCompactSize(raw, pos)
			if err != nil {
				return nil, fmt.Errorf("transaction: input %d witness item count: %w", i, err)
			}
			pos = newPos

			items := make([]string, 0, itemCount)
			rawItems := make([][]byte, 0, itemCount)
			for j := uint64(0); j < itemCount; j++ {
				itemLen, newPos, err := ReadCompactSize(raw, pos)
				if err != nil {
					return nil, fmt.Errorf("transaction: input %d witness item %d length: %w", i, j, err)
				}
				pos = newPos
				n, err := checkedLength(itemLen, pos, len(raw))
				if err != nil {
					return nil, fmt.Errorf("transaction: input %d witness item %d truncated: %w", i, j, err)
				}
				item := raw[pos : pos+n]
				pos += n
				items = append(items, hex.EncodeToString(item))
				rawItems = append(rawItems, item)
			}
			tx.Inputs[i].Witness = items
			tx.Inputs[i].WitnessRaw = rawItems
		}
		tx.witnessEnd = pos
	}

	if pos+4 > len(raw) {
		return nil, fmt.Errorf("transaction: missing locktime")
	}
	tx.Locktime = binary.LittleEndian.Uint32(raw[pos : pos+4])
	pos += 4

	if pos != len(raw) {
		return nil, fmt.Errorf("transaction: %d extra bytes after transaction", len(raw)-pos)
	}

	return tx, nil
}

// Txid returns the non-witness double-SHA256 of the transaction, reversed
// to display byte order.
func (tx *Transaction) Txid() string {
	if !tx.IsSegwit {
		return hex.EncodeToString(ReverseBytes(Hash256(tx.Raw)))
	}
	return hex.EncodeToString(ReverseBytes(Hash256(tx.nonWitnessSerialize())))
}

// Wtxid returns the full-serialization double-SHA256, reversed to display
// byte order. Undefined (empty string) for legacy transactions.
func (tx *Transaction) Wtxid() string {
	if !tx.IsSegwit {
		return ""
	}
	return hex.EncodeToString(ReverseBytes(Hash256(tx.Raw)))
}

// nonWitnessSerialize rebuilds the marker/flag/witness-free serialization
// used to compute txid for segwit transactions.
func (tx *Transaction) nonWitnessSerialize() []byte {
	var buf []byte
	var tmp4 [4]byte

	binary.LittleEndian.PutUint32(tmp4[:], uint32(tx.Version))
	buf = append(buf, tmp4[:]...)

	buf = WriteCompactSize(buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		txidBytes, _ := hex.DecodeString(in.Txid)
		buf = append(buf, ReverseBytes(txidBytes)...)
		binary.LittleEndian.PutUint32(tmp4[:], in.Vout)
		buf = append(buf, tmp4[:]...)
		buf = WriteCompactSize(buf, uint64(len(in.ScriptSig)))
		buf = append(buf, in.ScriptSig...)
		binary.LittleEndian.PutUint32(tmp4[:], in.Sequence)
		buf = append(buf, tmp4[:]...)
	}

	buf = WriteCompactSize(buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		var tmp8 [8]byte
		binary.LittleEndian.PutUint64(tmp8[:], uint64(out.ValueSats))
		buf = append(buf, tmp8[:]...)
		buf = WriteCompactSize(buf, uint64(len(out.ScriptPubkey)))
		buf = append(buf, out.ScriptPubkey...)
	}

	binary.LittleEndian.PutUint32(tmp4[:], tx.Locktime)
	buf = append(buf, tmp4[:]...)
	return buf
}

// SizeBytes returns the total serialized size.
func (tx *Transaction) SizeBytes() int {
	return len(tx.Raw)
}

// NonWitnessBytes returns the byte count outside the witness section
// (marker and flag excluded for segwit transactions).
func (tx *Transaction) NonWitnessBytes() int {
	if !tx.IsSegwit {
		return len(tx.Raw)
	}
	return len(tx.Raw) - (tx.witnessEnd - tx.witnessStart) - 2
}

// WitnessBytes returns the witness section byte count, including the
// 2-byte marker+flag. Zero for legacy transactions.
func (tx *Transaction) WitnessBytes() int {
	if !tx.IsSegwit {
		return 0
	}
	return (tx.witnessEnd - tx.witnessStart) + 2
}

// Weight computes BIP141 weight: 4 * non-witness bytes + witness bytes.
func (tx *Transaction) Weight() int {
	return tx.NonWitnessBytes()*4 + tx.WitnessBytes()
}

// Vbytes computes virtual size: ceil(weight / 4).
func (tx *Transaction) Vbytes() int {
	return (tx.Weight() + 3) / 4
}

var nullTxid = strings.Repeat("00", 32)

// IsCoinbase reports whether the transaction has exactly one input spending
// the null outpoint (all-zero txid, vout 0xFFFFFFFF).
func (tx *Transaction) IsCoinbase() bool {
	if len(tx.Inputs) != 1 {
		return false
	}
	in := tx.Inputs[0]
	return in.Vout == 0xFFFFFFFF && in.Txid == nullTxid
}

// IsRBFSignaling reports BIP125 opt-in replace-by-fee: any input sequence
// below 0xFFFFFFFE.
func (tx *Transaction) IsRBFSignaling() bool {
	for _, in := range tx.Inputs {
		if in.Sequence < 0xfffffffe {
			return true
		}
	}
	return false
}
