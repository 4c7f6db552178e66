package bitcoin

import (
	"math/big"
	"strings"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58BigRadix = big.NewInt(58)

// Base58Encode encodes payload using Bitcoin's base-58 alphabet. Each
// leading zero byte of payload becomes one leading '1' in the output; the
// remaining bytes are encoded as one big-endian big integer in base 58.
func Base58Encode(payload []byte) string {
	n := new(big.Int).SetBytes(payload)
	zero := big.NewInt(0)
	mod := new(big.Int)

	var out []byte
	for n.Cmp(zero) > 0 {
		n.DivMod(n, base58BigRadix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}

	// Leading zero bytes in the payload become leading '1's, prepended
	// before reversing (since we built `out` least-significant digit first).
	for _, b := range payload {
		if b != 0x00 {
			break
		}
		out = append(out, base58Alphabet[0])
	}

	// Reverse: out was built least-significant-digit-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Base58CheckEncode encodes version||payload||checksum where checksum is
// the first 4 bytes of hash256(version||payload).
func Base58CheckEncode(version byte, payload []byte) string {
	body := make([]byte, 0, 1+len(payload)+4)
	body = append(body, version)
	body = append(body, payload...)
	checksum := Hash256(body)[:4]
	body = append(body, checksum...)
	return Base58Encode(body)
}

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var bech32Generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

const (
	bech32Const  = 1
	bech32mConst = 0x2bc830a3
)

func bech32Polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 != 0 {
				chk ^= bech32Generator[i]
			}
		}
	}
	return chk
}

func bech32HRPExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&0x1f)
	}
	return out
}

func bech32CreateChecksum(hrp string, data []byte, constant uint32) []byte {
	values := append(bech32HRPExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := bech32Polymod(values) ^ constant

	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return checksum
}

// convertBits regroups a bit string from `fromBits`-bit groups to
// `toBits`-bit groups, padding the final group with zero bits when pad is
// true. Used to convert an 8-bit witness program into 5-bit bech32 symbols.
func convertBits(data []byte, fromBits, toBits uint, pad bool) []byte {
	var acc uint32
	var bits uint
	var out []byte
	maxv := uint32(1)<<toBits - 1

	for _, b := range data {
		acc = (acc << fromBits) | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad && bits > 0 {
		out = append(out, byte((acc<<(toBits-bits))&maxv))
	}
	return out
}

// bech32Encode encodes hrp + witver + program into a bech32 (witver==0) or
// bech32m (witver>=1) address string per BIP173/BIP350.
func bech32Encode(hrp string, witver byte, program []byte) string {
	constant := uint32(bech32Const)
	if witver != 0 {
		constant = bech32mConst
	}

	data := make([]byte, 0, 1+len(program))
	data = append(data, witver)
	data = append(data, convertBits(program, 8, 5, true)...)

	checksum := bech32CreateChecksum(hrp, data, constant)
	combined := append(data, checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, d := range combined {
		sb.WriteByte(bech32Charset[d])
	}
	return sb.String()
}

func hrpForNetwork(network string) string {
	switch network {
	case "testnet", "testnet3":
		return "tb"
	case "regtest":
		return "bcrt"
	case "signet":
		return "tb"
	default:
		return "bc"
	}
}

func base58VersionForNetwork(network string, isScriptHash bool) byte {
	testnet := network == "testnet" || network == "testnet3" || network == "regtest" || network == "signet"
	if isScriptHash {
		if testnet {
			return 0xc4
		}
		return 0x05
	}
	if testnet {
		return 0x6f
	}
	return 0x00
}

// AddressFromScript derives a display address from scriptPubKey per the
// exact-length pattern table in spec §4.3. Returns nil when the script has
// no canonical address (OP_RETURN, unknown, etc).
func AddressFromScript(scriptPubKey []byte, network string) *string {
	scriptType := ClassifyOutputScript(scriptPubKey)

	var addr string
	switch scriptType {
	case "p2pkh":
		addr = Base58CheckEncode(base58VersionForNetwork(network, false), scriptPubKey[3:23])
	case "p2sh":
		addr = Base58CheckEncode(base58VersionForNetwork(network, true), scriptPubKey[2:22])
	case "p2wpkh":
		addr = bech32Encode(hrpForNetwork(network), 0, scriptPubKey[2:22])
	case "p2wsh":
		addr = bech32Encode(hrpForNetwork(network), 0, scriptPubKey[2:34])
	case "p2tr":
		addr = bech32Encode(hrpForNetwork(network), 1, scriptPubKey[2:34])
	default:
		return nil
	}
	return &addr
}
