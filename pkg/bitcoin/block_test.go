package bitcoin

import (
	"strings"
	"testing"
)

func TestParseBlockHeader(t *testing.T) {
	header := mustDecodeHex(t, "01000000"+strings.Repeat("00", 32)+strings.Repeat("00", 32)+
		"00000000"+"00000000"+"00000000")

	h, err := ParseBlockHeader(header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.Version != 1 {
		t.Errorf("Version = %d, want 1", h.Version)
	}
	if h.PrevBlockHash != strings.Repeat("00", 32) {
		t.Errorf("PrevBlockHash = %s, want all-zero", h.PrevBlockHash)
	}
	wantHash := "4ddd9f0855d58a375be5a763e5f51ece853d30525fcd9a3e477c2194fedb549f"
	if h.BlockHash != wantHash {
		t.Errorf("BlockHash = %s, want %s", h.BlockHash, wantHash)
	}
}

func TestParseBlockHeader_TooShort(t *testing.T) {
	if _, err := ParseBlockHeader(make([]byte, 79)); err == nil {
		t.Fatal("expected error for 79-byte header")
	}
}

func TestScanTransactions(t *testing.T) {
	tx1 := mustDecodeHex(t, "0100000001"+strings.Repeat("00", 32)+"00000000"+"00"+"ffffffff"+
		"01"+"00e1f50500000000"+"1976a914"+strings.Repeat("00", 20)+"88ac"+"00000000")

	body := append([]byte{}, tx1...)
	body = append(body, tx1...)

	txs, err := ScanTransactions(body, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if len(txs[0]) != len(tx1) || len(txs[1]) != len(tx1) {
		t.Errorf("scanned transaction lengths = %d/%d, want %d each", len(txs[0]), len(txs[1]), len(tx1))
	}
}

func TestScanTransactions_TruncatedErrors(t *testing.T) {
	tx1 := mustDecodeHex(t, "0100000001"+strings.Repeat("00", 32)+"00000000"+"00"+"ffffffff"+
		"01"+"00e1f50500000000"+"1976a914"+strings.Repeat("00", 20)+"88ac"+"00000000")

	truncated := tx1[:len(tx1)-5]
	if _, err := ScanTransactions(truncated, 0, 1); err == nil {
		t.Fatal("expected error scanning a truncated transaction")
	}
}

func TestDecodeBIP34Height(t *testing.T) {
	tests := []struct {
		name      string
		scriptSig []byte
		want      int64
	}{
		{"three-byte push for height 500000", []byte{0x03, 0x20, 0xa1, 0x07}, 500000},
		{"single-byte push", []byte{0x01, 0x0a}, 10},
		{"empty scriptSig", []byte{}, 0},
		{"push length exceeds script", []byte{0x05, 0x01}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeBIP34Height(tt.scriptSig); got != tt.want {
				t.Errorf("DecodeBIP34Height(%x) = %d, want %d", tt.scriptSig, got, tt.want)
			}
		})
	}
}
