package bitcoin

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// DecompressAmount reverses Bitcoin Core's CTxOutCompressor amount
// compression (serialize.h CompressAmount/DecompressAmount) used in undo
// data. 0 maps to 0; otherwise the value was encoded as a digit string in
// base 10 with trailing zeros and one decimal digit removed.
func DecompressAmount(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	var n uint64
	if e < 9 {
		d := x%9 + 1
		x /= 9
		n = x*10 + d
	} else {
		n = x + 1
	}
	for i := uint64(0); i < e; i++ {
		n *= 10
	}
	return n
}

var secp256k1FieldPrime = btcec.S256().P

// decompressPubKey reconstructs a 65-byte uncompressed public key from a
// 33-byte compressed form (prefix 0x02/0x03) by solving the secp256k1 curve
// equation y^2 = x^3 + 7 (mod p) for y via modular exponentiation and
// selecting the root whose parity matches the prefix.
func decompressPubKey(prefix byte, xBytes []byte) ([]byte, error) {
	if len(xBytes) != 32 {
		return nil, fmt.Errorf("compress: compressed pubkey x must be 32 bytes, got %d", len(xBytes))
	}

	p := secp256k1FieldPrime
	x := new(big.Int).SetBytes(xBytes)

	// y^2 = x^3 + 7 mod p
	x3 := new(big.Int).Exp(x, big.NewInt(3), p)
	ySq := new(big.Int).Add(x3, big.NewInt(7))
	ySq.Mod(ySq, p)

	// p % 4 == 3 for secp256k1, so y = ySq^((p+1)/4) mod p is a square root.
	exp := new(big.Int).Add(p, big.NewInt(1))
	exp.Div(exp, big.NewInt(4))
	y := new(big.Int).Exp(ySq, exp, p)

	wantOdd := prefix == 0x03
	yOdd := y.Bit(0) == 1
	if wantOdd != yOdd {
		y.Sub(p, y)
	}

	out := make([]byte, 65)
	out[0] = 0x04
	xb := x.Bytes()
	copy(out[1+32-len(xb):33], xb)
	yb := y.Bytes()
	copy(out[33+32-len(yb):65], yb)
	return out, nil
}

// DecompressScript reverses Bitcoin Core's CScriptCompressor encoding used in
// undo data: nSize 0/1 are P2PKH/P2SH hash templates, 2/3/4/5 are pubkey
// forms (2/3 compressed as-is, 4/5 compressed-but-originally-uncompressed,
// requiring point decompression), and nSize>=6 is a raw script of length
// nSize-6.
func DecompressScript(nSize uint64, data []byte) ([]byte, error) {
	switch nSize {
	case 0:
		if len(data) != 20 {
			return nil, fmt.Errorf("compress: p2pkh template needs 20 bytes, got %d", len(data))
		}
		out := make([]byte, 0, 25)
		out = append(out, 0x76, 0xa9, 0x14)
		out = append(out, data...)
		out = append(out, 0x88, 0xac)
		return out, nil
	case 1:
		if len(data) != 20 {
			return nil, fmt.Errorf("compress: p2sh template needs 20 bytes, got %d", len(data))
		}
		out := make([]byte, 0, 23)
		out = append(out, 0xa9, 0x14)
		out = append(out, data...)
		out = append(out, 0x87)
		return out, nil
	case 2, 3:
		if len(data) != 32 {
			return nil, fmt.Errorf("compress: compressed pubkey template needs 32 bytes, got %d", len(data))
		}
		prefix := byte(0x02)
		if nSize == 3 {
			prefix = 0x03
		}
		out := make([]byte, 0, 35)
		out = append(out, 0x21, prefix)
		out = append(out, data...)
		out = append(out, 0xac)
		return out, nil
	case 4, 5:
		if len(data) != 32 {
			return nil, fmt.Errorf("compress: uncompressed-origin pubkey template needs 32 bytes, got %d", len(data))
		}
		prefix := byte(0x02)
		if nSize == 5 {
			prefix = 0x03
		}
		pubkey, err := decompressPubKey(prefix, data)
		if err != nil {
			return nil, fmt.Errorf("compress: decompress pubkey: %w", err)
		}
		out := make([]byte, 0, 67)
		out = append(out, 0x41)
		out = append(out, pubkey...)
		out = append(out, 0xac)
		return out, nil
	default:
		n := int(nSize) - 6
		if n < 0 || n > len(data) {
			return nil, fmt.Errorf("compress: raw script length %d exceeds available %d bytes", n, len(data))
		}
		return data[:n], nil
	}
}
