package bitcoin

import "testing"

func TestBase58CheckEncode(t *testing.T) {
	tests := []struct {
		name    string
		version byte
		payload []byte
		want    string
	}{
		{name: "p2pkh all-zero hash160", version: 0x00, payload: make([]byte, 20), want: "1111111111111111111114oLvT2"},
		{name: "p2sh all-zero hash160", version: 0x05, payload: make([]byte, 20), want: "31h1vYVSYuKP6AhS86fbRdMw9XHieotbST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Base58CheckEncode(tt.version, tt.payload)
			if got != tt.want {
				t.Errorf("Base58CheckEncode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBech32Encode(t *testing.T) {
	tests := []struct {
		name    string
		hrp     string
		witver  byte
		program []byte
		want    string
	}{
		{name: "p2wpkh all-zero program", hrp: "bc", witver: 0, program: make([]byte, 20), want: "bc1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq9e75rs"},
		{name: "p2wsh all-zero program", hrp: "bc", witver: 0, program: make([]byte, 32), want: "bc1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqthqst8"},
		{name: "p2tr all-zero program uses bech32m", hrp: "bc", witver: 1, program: make([]byte, 32), want: "bc1pqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqpqqenm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bech32Encode(tt.hrp, tt.witver, tt.program)
			if got != tt.want {
				t.Errorf("bech32Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAddressFromScript(t *testing.T) {
	p2pkh := append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...)
	p2pkh = append(p2pkh, 0x88, 0xac)

	p2wpkh := append([]byte{0x00, 0x14}, make([]byte, 20)...)

	opReturn := []byte{0x6a, 0x04, 0xde, 0xad, 0xbe, 0xef}

	tests := []struct {
		name   string
		script []byte
		want   *string
	}{
		{name: "p2pkh", script: p2pkh, want: strPtr("1111111111111111111114oLvT2")},
		{name: "p2wpkh", script: p2wpkh, want: strPtr("bc1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq9e75rs")},
		{name: "op_return has no address", script: opReturn, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddressFromScript(tt.script, "mainnet")
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil address, got %s", *got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("got %v, want %s", got, *tt.want)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
