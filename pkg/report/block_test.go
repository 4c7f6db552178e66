package report

import (
	"encoding/hex"
	"testing"
)

// blkHexCoinbaseOnly is a single-block blk*.dat record containing one
// coinbase transaction (no XOR obfuscation) and a matching rev*.dat record
// with a zero tx-undo count, built to the same byte layout as a real
// blk*.dat/rev*.dat pair.
const blkHexCoinbaseOnly = "f9beb4d9a800000001000000000000000000000000000000000000000000000000000000000000000000000063bb809e36b8e8ca5332639076711f4a3fb2c371a3df5abff9cb6658b8dea572000000001d00ffff000000000101000000010000000000000000000000000000000000000000000000000000000000000000ffffffff02ffffffffffff0100e1f505000000001976a914000000000000000000000000000000000000000088ac00000000"

const revHexCoinbaseOnly = "f9beb4d90100000000000000000000000000000000000000000000000000000000000000000000000000"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test hex: %v", err)
	}
	return b
}

func TestParseBlock_CoinbaseOnly(t *testing.T) {
	blk := mustHex(t, blkHexCoinbaseOnly)
	rev := mustHex(t, revHexCoinbaseOnly)

	out, err := ParseBlock(blk, rev, nil, "mainnet", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !out.OK || out.Mode != "block" {
		t.Errorf("expected ok=true mode=block, got ok=%v mode=%s", out.OK, out.Mode)
	}
	if !out.BlockHeader.MerkleRootValid {
		t.Error("expected merkle root to validate for a single-tx block")
	}
	if out.TxCount != 1 {
		t.Errorf("TxCount = %d, want 1", out.TxCount)
	}
	if len(out.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(out.Transactions))
	}
	if out.Coinbase.TotalOutputSats != 100000000 {
		t.Errorf("coinbase TotalOutputSats = %d, want 100000000", out.Coinbase.TotalOutputSats)
	}
	if out.BlockStats.TotalFeesSats != 0 {
		t.Errorf("a coinbase-only block must have zero total fees, got %d", out.BlockStats.TotalFeesSats)
	}
	if out.BlockStats.TotalWeight == 0 {
		t.Error("expected a non-zero total weight including the coinbase")
	}
	if out.BlockStats.ScriptTypeSummary["p2pkh"] != 1 {
		t.Errorf("expected 1 p2pkh output in the script type summary, got %v", out.BlockStats.ScriptTypeSummary)
	}
}

func TestParseBlock_CorruptMagicIsInvalidBlock(t *testing.T) {
	_, err := ParseBlock([]byte{0x00, 0x01, 0x02}, nil, nil, "mainnet", nil)
	if err == nil {
		t.Fatal("expected error for a block buffer with no valid record")
	}
	if code := codedErrorCode(t, err); code != "INVALID_BLOCK" {
		t.Errorf("error code = %s, want INVALID_BLOCK", code)
	}
}

func TestParseBlock_MerkleMismatch(t *testing.T) {
	blk := mustHex(t, blkHexCoinbaseOnly)
	// Flip a byte inside the stored merkle root so it no longer matches the
	// root recomputed from the block's own transactions.
	blk[50] ^= 0xff
	rev := mustHex(t, revHexCoinbaseOnly)

	_, err := ParseBlock(blk, rev, nil, "mainnet", nil)
	if err == nil {
		t.Fatal("expected a merkle root mismatch error")
	}
	if code := codedErrorCode(t, err); code != "MERKLE_ROOT_MISMATCH" {
		t.Errorf("error code = %s, want MERKLE_ROOT_MISMATCH", code)
	}
}
