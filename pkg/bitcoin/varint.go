package bitcoin

import (
	"encoding/binary"
	"fmt"
)

// ReadCompactSize reads a Bitcoin CompactSize integer from buf starting at
// pos: 1 byte if < 0xFD, else a 0xFD/0xFE/0xFF marker followed by a
// 2/4/8-byte little-endian value. Used for transaction and block-file
// framing — never for undo data.
func ReadCompactSize(buf []byte, pos int) (uint64, int, error) {
	if pos >= len(buf) {
		return 0, pos, fmt.Errorf("compact-size: unexpected end of data at offset %d", pos)
	}
	first := buf[pos]
	pos++

	switch first {
	case 0xfd:
		if pos+2 > len(buf) {
			return 0, pos, fmt.Errorf("compact-size: truncated 0xfd value at offset %d", pos)
		}
		v := binary.LittleEndian.Uint16(buf[pos : pos+2])
		return uint64(v), pos + 2, nil
	case 0xfe:
		if pos+4 > len(buf) {
			return 0, pos, fmt.Errorf("compact-size: truncated 0xfe value at offset %d", pos)
		}
		v := binary.LittleEndian.Uint32(buf[pos : pos+4])
		return uint64(v), pos + 4, nil
	case 0xff:
		if pos+8 > len(buf) {
			return 0, pos, fmt.Errorf("compact-size: truncated 0xff value at offset %d", pos)
		}
		v := binary.LittleEndian.Uint64(buf[pos : pos+8])
		return v, pos + 8, nil
	default:
		return uint64(first), pos, nil
	}
}

// checkedLength validates that a CompactSize/core-varint length field (fully
// attacker-controlled) has enough remaining buffer behind it before it is
// ever converted to an int. Casting a huge uint64 (e.g. 0xFFFFFFFFFFFFFFFF,
// from a 0xff-prefixed CompactSize) straight to int wraps negative on a
// 64-bit build, which defeats a naive "pos+int(length) > len(buf)" bounds
// check and panics the subsequent slice instead of returning an error.
func checkedLength(length uint64, pos, total int) (int, error) {
	if pos < 0 || pos > total {
		return 0, fmt.Errorf("length check: invalid position %d (total %d)", pos, total)
	}
	if length > uint64(total-pos) {
		return 0, fmt.Errorf("declared length %d exceeds %d remaining bytes", length, total-pos)
	}
	return int(length), nil
}

// WriteCompactSize appends val encoded as CompactSize to buf.
func WriteCompactSize(buf []byte, val uint64) []byte {
	switch {
	case val < 0xfd:
		return append(buf, byte(val))
	case val <= 0xffff:
		buf = append(buf, 0xfd)
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(val))
		return append(buf, tmp[:]...)
	case val <= 0xffffffff:
		buf = append(buf, 0xfe)
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(val))
		return append(buf, tmp[:]...)
	default:
		buf = append(buf, 0xff)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], val)
		return append(buf, tmp[:]...)
	}
}

// ReadCoreVarInt reads Bitcoin Core's continuation-bit varint (serialize.h's
// CVarInt), used exclusively in undo (rev*.dat) data. Distinct from
// CompactSize: each byte contributes its low 7 bits, and every continuation
// byte (high bit set) adds 1 to the accumulator before the next shift. This
// +1 carry is the source of most undo-parsing bugs and must never be
// dropped.
func ReadCoreVarInt(buf []byte, pos int) (uint64, int, error) {
	var n uint64
	for {
		if pos >= len(buf) {
			return 0, pos, fmt.Errorf("core-varint: unexpected end of data at offset %d", pos)
		}
		c := buf[pos]
		pos++
		n = (n << 7) | uint64(c&0x7f)
		if c&0x80 != 0 {
			n++
			continue
		}
		return n, pos, nil
	}
}
