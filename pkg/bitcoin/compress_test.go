package bitcoin

import (
	"encoding/hex"
	"testing"
)

func TestDecompressAmount(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want uint64
	}{
		{"zero", 0, 0},
		{"one satoshi", 1, 1},
		{"one bitcoin", 9, 100000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecompressAmount(tt.in); got != tt.want {
				t.Errorf("DecompressAmount(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecompressPubKey_Generator(t *testing.T) {
	// secp256k1 base point G, a well-known fixed test vector.
	gx, err := hex.DecodeString("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	if err != nil {
		t.Fatal(err)
	}

	pubkey, err := decompressPubKey(0x02, gx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "0479be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"
	got := hex.EncodeToString(pubkey)
	if got != want {
		t.Errorf("decompressPubKey() = %s, want %s", got, want)
	}
}

func TestDecompressPubKey_WrongLength(t *testing.T) {
	_, err := decompressPubKey(0x02, make([]byte, 10))
	if err == nil {
		t.Fatal("expected error for short x coordinate")
	}
}

func TestDecompressScript(t *testing.T) {
	t.Run("p2pkh template", func(t *testing.T) {
		hash160 := make([]byte, 20)
		script, err := DecompressScript(0, hash160)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ClassifyOutputScript(script) != "p2pkh" {
			t.Errorf("expected reconstructed script to classify as p2pkh")
		}
	})

	t.Run("p2sh template", func(t *testing.T) {
		hash160 := make([]byte, 20)
		script, err := DecompressScript(1, hash160)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ClassifyOutputScript(script) != "p2sh" {
			t.Errorf("expected reconstructed script to classify as p2sh")
		}
	})

	t.Run("compressed pubkey template", func(t *testing.T) {
		x := make([]byte, 32)
		x[31] = 0x01
		script, err := DecompressScript(2, x)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(script) != 35 || script[0] != 0x21 || script[1] != 0x02 || script[34] != 0xac {
			t.Errorf("unexpected compressed-pubkey script: %x", script)
		}
	})

	t.Run("raw script with length from nSize", func(t *testing.T) {
		raw := []byte{0x51, 0x52, 0x53}
		script, err := DecompressScript(6+uint64(len(raw)), raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(script) != string(raw) {
			t.Errorf("got %x, want %x", script, raw)
		}
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := DecompressScript(0, make([]byte, 5))
		if err == nil {
			t.Fatal("expected error for wrong p2pkh hash length")
		}
	})
}
