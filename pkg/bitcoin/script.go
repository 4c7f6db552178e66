package bitcoin

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ClassifyOutputScript pattern-matches scriptPubKey against the exact-length
// address taxonomy in spec §4.3/§4.4.
func ClassifyOutputScript(scriptPubKey []byte) string {
	n := len(scriptPubKey)
	if n == 0 {
		return "unknown"
	}

	switch {
	case n == 25 && scriptPubKey[0] == 0x76 && scriptPubKey[1] == 0xa9 && scriptPubKey[2] == 0x14 &&
		scriptPubKey[23] == 0x88 && scriptPubKey[24] == 0xac:
		return "p2pkh"
	case n == 23 && scriptPubKey[0] == 0xa9 && scriptPubKey[1] == 0x14 && scriptPubKey[22] == 0x87:
		return "p2sh"
	case n == 22 && scriptPubKey[0] == 0x00 && scriptPubKey[1] == 0x14:
		return "p2wpkh"
	case n == 34 && scriptPubKey[0] == 0x00 && scriptPubKey[1] == 0x20:
		return "p2wsh"
	case n == 34 && scriptPubKey[0] == 0x51 && scriptPubKey[1] == 0x20:
		return "p2tr"
	case scriptPubKey[0] == 0x6a:
		return "op_return"
	default:
		return "unknown"
	}
}

// lastPush walks a push-only scriptSig and returns the final recorded push
// (the P2SH redeem-script candidate), or nil if the scriptSig is empty or
// the final element was not a push. A non-push opcode invalidates ("resets")
// the running candidate, per spec §4.4.
func lastPush(scriptSig []byte) []byte {
	var last []byte
	i := 0
	for i < len(scriptSig) {
		op := scriptSig[i]
		i++
		switch {
		case op == 0x00:
			last = []byte{}
		case op >= 0x01 && op <= 0x4b:
			n := int(op)
			if i+n > len(scriptSig) {
				return last
			}
			last = scriptSig[i : i+n]
			i += n
		case op == 0x4c:
			if i >= len(scriptSig) {
				return last
			}
			n := int(scriptSig[i])
			i++
			if i+n > len(scriptSig) {
				return last
			}
			last = scriptSig[i : i+n]
			i += n
		case op == 0x4d:
			if i+2 > len(scriptSig) {
				return last
			}
			n := int(binary.LittleEndian.Uint16(scriptSig[i : i+2]))
			i += 2
			if i+n > len(scriptSig) {
				return last
			}
			last = scriptSig[i : i+n]
			i += n
		case op == 0x4e:
			if i+4 > len(scriptSig) {
				return last
			}
			n := int(binary.LittleEndian.Uint32(scriptSig[i : i+4]))
			i += 4
			if i+n > len(scriptSig) {
				return last
			}
			last = scriptSig[i : i+n]
			i += n
		default:
			last = nil
		}
	}
	return last
}

// ClassifyInputScript determines an input's spend type from the triple
// (scriptSig, witness, prevout scriptPubKey) per the table in spec §4.4.
func ClassifyInputScript(scriptSig []byte, witness [][]byte, prevoutScript []byte) string {
	prevoutType := ClassifyOutputScript(prevoutScript)
	scriptSigEmpty := len(scriptSig) == 0
	hasWitness := len(witness) > 0

	switch prevoutType {
	case "p2wpkh":
		if scriptSigEmpty && hasWitness {
			return "p2wpkh"
		}
	case "p2wsh":
		if scriptSigEmpty && hasWitness {
			return "p2wsh"
		}
	case "p2tr":
		if scriptSigEmpty {
			if len(witness) >= 2 {
				last := witness[len(witness)-1]
				if len(last) >= 33 && last[0]&0xfe == 0xc0 {
					return "p2tr_scriptpath"
				}
			}
			return "p2tr_keypath"
		}
	case "p2pkh":
		return "p2pkh"
	case "p2sh":
		if !scriptSigEmpty {
			redeem := lastPush(scriptSig)
			if redeem != nil {
				if len(redeem) == 22 && redeem[0] == 0x00 && redeem[1] == 0x14 {
					return "p2sh-p2wpkh"
				}
				if len(redeem) == 34 && redeem[0] == 0x00 && redeem[1] == 0x20 {
					return "p2sh-p2wsh"
				}
			}
		}
		return "unknown"
	}

	return "unknown"
}

// DisassembleScript renders script bytes as conventional ASM text: pushes
// become "OP_PUSHBYTES_<n> <hex>"/OP_PUSHDATAn <hex>, and other bytes become
// their mnemonic or OP_UNKNOWN_0x<nn>.
func DisassembleScript(script []byte) string {
	if len(script) == 0 {
		return ""
	}

	var parts []string
	i := 0
	for i < len(script) {
		op := script[i]
		i++

		switch {
		case op == 0x00:
			parts = append(parts, "OP_0")

		case op >= 0x01 && op <= 0x4b:
			n := int(op)
			if i+n > len(script) {
				parts = append(parts, fmt.Sprintf("OP_PUSHBYTES_%d", n))
				i = len(script)
				break
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHBYTES_%d %s", n, hex.EncodeToString(script[i:i+n])))
			i += n

		case op == 0x4c:
			if i >= len(script) {
				parts = append(parts, "OP_PUSHDATA1")
				break
			}
			n := int(script[i])
			i++
			if i+n > len(script) {
				n = len(script) - i
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHDATA1 %s", hex.EncodeToString(script[i:i+n])))
			i += n

		case op == 0x4d:
			if i+1 >= len(script) {
				parts = append(parts, "OP_PUSHDATA2")
				break
			}
			n := int(binary.LittleEndian.Uint16(script[i : i+2]))
			i += 2
			if i+n > len(script) {
				n = len(script) - i
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHDATA2 %s", hex.EncodeToString(script[i:i+n])))
			i += n

		case op == 0x4e:
			if i+3 >= len(script) {
				parts = append(parts, "OP_PUSHDATA4")
				break
			}
			n := int(binary.LittleEndian.Uint32(script[i : i+4]))
			i += 4
			if i+n > len(script) {
				n = len(script) - i
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHDATA4 %s", hex.EncodeToString(script[i:i+n])))
			i += n

		default:
			parts = append(parts, opcodeName(op))
		}
	}

	return strings.Join(parts, " ")
}

// opcodeName returns the canonical mnemonic for a non-push opcode byte,
// per Bitcoin Core's script/script.h opcode table.
func opcodeName(op byte) string {
	switch op {
	case 0x4f:
		return "OP_1NEGATE"
	case 0x50:
		return "OP_RESERVED"
	case 0x51:
		return "OP_1"
	case 0x52:
		return "OP_2"
	case 0x53:
		return "OP_3"
	case 0x54:
		return "OP_4"
	case 0x55:
		return "OP_5"
	case 0x56:
		return "OP_6"
	case 0x57:
		return "OP_7"
	case 0x58:
		return "OP_8"
	case 0x59:
		return "OP_9"
	case 0x5a:
		return "OP_10"
	case 0x5b:
		return "OP_11"
	case 0x5c:
		return "OP_12"
	case 0x5d:
		return "OP_13"
	case 0x5e:
		return "OP_14"
	case 0x5f:
		return "OP_15"
	case 0x60:
		return "OP_16"
	case 0x61:
		return "OP_NOP"
	case 0x62:
		return "OP_VER"
	case 0x63:
		return "OP_IF"
	case 0x64:
		return "OP_NOTIF"
	case 0x65:
		return "OP_VERIF"
	case 0x66:
		return "OP_VERNOTIF"
	case 0x67:
		return "OP_ELSE"
	case 0x68:
		return "OP_ENDIF"
	case 0x69:
		return "OP_VERIFY"
	case 0x6a:
		return "OP_RETURN"
	case 0x6b:
		return "OP_TOALTSTACK"
	case 0x6c:
		return "OP_FROMALTSTACK"
	case 0x6d:
		return "OP_2DROP"
	case 0x6e:
		return "OP_2DUP"
	case 0x6f:
		return "OP_3DUP"
	case 0x70:
		return "OP_2OVER"
	case 0x71:
		return "OP_2ROT"
	case 0x72:
		return "OP_2SWAP"
	case 0x73:
		return "OP_IFDUP"
	case 0x74:
		return "OP_DEPTH"
	case 0x75:
		return "OP_DROP"
	case 0x76:
		return "OP_DUP"
	case 0x77:
		return "OP_NIP"
	case 0x78:
		return "OP_OVER"
	case 0x79:
		return "OP_PICK"
	case 0x7a:
		return "OP_ROLL"
	case 0x7b:
		return "OP_ROT"
	case 0x7c:
		return "OP_SWAP"
	case 0x7d:
		return "OP_TUCK"
	case 0x7e:
		return "OP_CAT"
	case 0x7f:
		return "OP_SUBSTR"
	case 0x80:
		return "OP_LEFT"
	case 0x81:
		return "OP_RIGHT"
	case 0x82:
		return "OP_SIZE"
	case 0x83:
		return "OP_INVERT"
	case 0x84:
		return "OP_AND"
	case 0x85:
		return "OP_OR"
	case 0x86:
		return "OP_XOR"
	case 0x87:
		return "OP_EQUAL"
	case 0x88:
		return "OP_EQUALVERIFY"
	case 0x89:
		return "OP_RESERVED1"
	case 0x8a:
		return "OP_RESERVED2"
	case 0x8b:
		return "OP_1ADD"
	case 0x8c:
		return "OP_1SUB"
	case 0x8d:
		return "OP_2MUL"
	case 0x8e:
		return "OP_2DIV"
	case 0x8f:
		return "OP_NEGATE"
	case 0x90:
		return "OP_ABS"
	case 0x91:
		return "OP_NOT"
	case 0x92:
		return "OP_0NOTEQUAL"
	case 0x93:
		return "OP_ADD"
	case 0x94:
		return "OP_SUB"
	case 0x95:
		return "OP_MUL"
	case 0x96:
		return "OP_DIV"
	case 0x97:
		return "OP_MOD"
	case 0x98:
		return "OP_LSHIFT"
	case 0x99:
		return "OP_RSHIFT"
	case 0x9a:
		return "OP_BOOLAND"
	case 0x9b:
		return "OP_BOOLOR"
	case 0x9c:
		return "OP_NUMEQUAL"
	case 0x9d:
		return "OP_NUMEQUALVERIFY"
	case 0x9e:
		return "OP_NUMNOTEQUAL"
	case 0x9f:
		return "OP_LESSTHAN"
	case 0xa0:
		return "OP_GREATERTHAN"
	case 0xa1:
		return "OP_LESSTHANOREQUAL"
	case 0xa2:
		return "OP_GREATERTHANOREQUAL"
	case 0xa3:
		return "OP_MIN"
	case 0xa4:
		return "OP_MAX"
	case 0xa5:
		return "OP_WITHIN"
	case 0xa6:
		return "OP_RIPEMD160"
	case 0xa7:
		return "OP_SHA1"
	case 0xa8:
		return "OP_SHA256"
	case 0xa9:
		return "OP_HASH160"
	case 0xaa:
		return "OP_HASH256"
	case 0xab:
		return "OP_CODESEPARATOR"
	case 0xac:
		return "OP_CHECKSIG"
	case 0xad:
		return "OP_CHECKSIGVERIFY"
	case 0xae:
		return "OP_CHECKMULTISIG"
	case 0xaf:
		return "OP_CHECKMULTISIGVERIFY"
	case 0xb0:
		return "OP_NOP1"
	case 0xb1:
		return "OP_CHECKLOCKTIMEVERIFY"
	case 0xb2:
		return "OP_CHECKSEQUENCEVERIFY"
	case 0xb3:
		return "OP_NOP4"
	case 0xb4:
		return "OP_NOP5"
	case 0xb5:
		return "OP_NOP6"
	case 0xb6:
		return "OP_NOP7"
	case 0xb7:
		return "OP_NOP8"
	case 0xb8:
		return "OP_NOP9"
	case 0xb9:
		return "OP_NOP10"
	case 0xba:
		return "OP_CHECKSIGADD"
	case 0xfd:
		return "OP_PUBKEYHASH"
	case 0xfe:
		return "OP_PUBKEY"
	case 0xff:
		return "OP_INVALIDOPCODE"
	}
	return fmt.Sprintf("OP_UNKNOWN_0x%02x", op)
}

// ParseOpReturn extracts and concatenates the data pushes following
// OP_RETURN, detects a known protocol by hex prefix, and attempts a UTF-8
// decode (absent on failure, never a lossy replacement).
func ParseOpReturn(script []byte) (dataHex string, dataUTF8 *string, protocol string) {
	if len(script) == 0 || script[0] != 0x6a {
		return "", nil, "unknown"
	}

	var data []byte
	i := 1
	for i < len(script) {
		op := script[i]
		i++

		var n int
		switch {
		case op >= 0x01 && op <= 0x4b:
			n = int(op)
		case op == 0x4c:
			if i >= len(script) {
				i = len(script)
				continue
			}
			n = int(script[i])
			i++
		case op == 0x4d:
			if i+2 > len(script) {
				i = len(script)
				continue
			}
			n = int(binary.LittleEndian.Uint16(script[i : i+2]))
			i += 2
		case op == 0x4e:
			if i+4 > len(script) {
				i = len(script)
				continue
			}
			n = int(binary.LittleEndian.Uint32(script[i : i+4]))
			i += 4
		default:
			i = len(script)
			continue
		}

		if i+n > len(script) {
			break
		}
		data = append(data, script[i:i+n]...)
		i += n
	}

	dataHex = hex.EncodeToString(data)

	if len(data) > 0 && utf8.Valid(data) {
		s := string(data)
		dataUTF8 = &s
	}

	switch {
	case bytes.HasPrefix(data, []byte{0x6f, 0x6d, 0x6e, 0x69}):
		protocol = "omni"
	case bytes.HasPrefix(data, []byte{0x01, 0x09, 0xf9, 0x11, 0x02}):
		protocol = "opentimestamps"
	default:
		protocol = "unknown"
	}

	return dataHex, dataUTF8, protocol
}
