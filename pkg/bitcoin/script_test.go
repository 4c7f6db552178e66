package bitcoin

import "testing"

func TestClassifyOutputScript(t *testing.T) {
	p2pkh := append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...)
	p2pkh = append(p2pkh, 0x88, 0xac)
	p2sh := append([]byte{0xa9, 0x14}, make([]byte, 20)...)
	p2sh = append(p2sh, 0x87)
	p2wpkh := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	p2wsh := append([]byte{0x00, 0x20}, make([]byte, 32)...)
	p2tr := append([]byte{0x51, 0x20}, make([]byte, 32)...)
	opReturn := []byte{0x6a, 0x04, 0xde, 0xad, 0xbe, 0xef}

	tests := []struct {
		name   string
		script []byte
		want   string
	}{
		{"p2pkh", p2pkh, "p2pkh"},
		{"p2sh", p2sh, "p2sh"},
		{"p2wpkh", p2wpkh, "p2wpkh"},
		{"p2wsh", p2wsh, "p2wsh"},
		{"p2tr", p2tr, "p2tr"},
		{"op_return", opReturn, "op_return"},
		{"empty", []byte{}, "unknown"},
		{"garbage", []byte{0x01, 0x02, 0x03}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyOutputScript(tt.script); got != tt.want {
				t.Errorf("ClassifyOutputScript() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyInputScript(t *testing.T) {
	p2wpkhPrevout := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	p2trPrevout := append([]byte{0x51, 0x20}, make([]byte, 32)...)
	p2pkhPrevout := append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...)
	p2pkhPrevout = append(p2pkhPrevout, 0x88, 0xac)
	p2shPrevout := append([]byte{0xa9, 0x14}, make([]byte, 20)...)
	p2shPrevout = append(p2shPrevout, 0x87)

	wrappedWitnessProgram := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	redeemPush := append([]byte{byte(len(wrappedWitnessProgram))}, wrappedWitnessProgram...)

	controlBlock := make([]byte, 33)
	controlBlock[0] = 0xc0

	tests := []struct {
		name          string
		scriptSig     []byte
		witness       [][]byte
		prevoutScript []byte
		want          string
	}{
		{"p2pkh", []byte{0x47, 0x01, 0x02}, nil, p2pkhPrevout, "p2pkh"},
		{"p2wpkh", nil, [][]byte{{0x01}, {0x02}}, p2wpkhPrevout, "p2wpkh"},
		{"p2tr keypath", nil, [][]byte{{0x01}}, p2trPrevout, "p2tr_keypath"},
		{"p2tr scriptpath", nil, [][]byte{{0x01}, {0x02}, controlBlock}, p2trPrevout, "p2tr_scriptpath"},
		{"p2sh-p2wpkh", redeemPush, [][]byte{{0x01}, {0x02}}, p2shPrevout, "p2sh-p2wpkh"},
		{"p2sh unknown redeem", []byte{0x01, 0xaa}, nil, p2shPrevout, "unknown"},
		{"unknown prevout", nil, nil, []byte{0x6a}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyInputScript(tt.scriptSig, tt.witness, tt.prevoutScript)
			if got != tt.want {
				t.Errorf("ClassifyInputScript() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDisassembleScript(t *testing.T) {
	tests := []struct {
		name   string
		script []byte
		want   string
	}{
		{"OP_0", []byte{0x00}, "OP_0"},
		{"single push", []byte{0x01, 0xaa}, "OP_PUSHBYTES_1 aa"},
		{"OP_1 numeric", []byte{0x51}, "OP_1"},
		{"OP_RETURN then push", []byte{0x6a, 0x02, 0xbe, 0xef}, "OP_RETURN OP_PUSHBYTES_2 beef"},
		{"named high opcode", []byte{0xba}, "OP_CHECKSIGADD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisassembleScript(tt.script); got != tt.want {
				t.Errorf("DisassembleScript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpcodeName_UnknownFallback(t *testing.T) {
	got := opcodeName(0xbb)
	if got != "OP_UNKNOWN_0xbb" {
		t.Errorf("opcodeName(0xbb) = %s, want OP_UNKNOWN_0xbb", got)
	}
}

func TestParseOpReturn(t *testing.T) {
	t.Run("omni protocol", func(t *testing.T) {
		script := []byte{0x6a, 0x04, 0x6f, 0x6d, 0x6e, 0x69}
		dataHex, dataUTF8, protocol := ParseOpReturn(script)
		if dataHex != "6f6d6e69" {
			t.Errorf("dataHex = %s, want 6f6d6e69", dataHex)
		}
		if protocol != "omni" {
			t.Errorf("protocol = %s, want omni", protocol)
		}
		if dataUTF8 == nil || *dataUTF8 != "omni" {
			t.Errorf("dataUTF8 = %v, want omni", dataUTF8)
		}
	})

	t.Run("invalid utf8 leaves dataUTF8 nil", func(t *testing.T) {
		script := []byte{0x6a, 0x02, 0xff, 0xfe}
		_, dataUTF8, protocol := ParseOpReturn(script)
		if dataUTF8 != nil {
			t.Errorf("expected nil dataUTF8 for invalid utf8, got %v", *dataUTF8)
		}
		if protocol != "unknown" {
			t.Errorf("protocol = %s, want unknown", protocol)
		}
	})

	t.Run("not an op_return script", func(t *testing.T) {
		_, _, protocol := ParseOpReturn([]byte{0x51})
		if protocol != "unknown" {
			t.Errorf("protocol = %s, want unknown", protocol)
		}
	})
}
