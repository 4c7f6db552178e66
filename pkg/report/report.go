// Package report composes pkg/bitcoin's raw deserializers and pkg/analyzer's
// derived facts into the JSON report shapes defined in pkg/types. It is the
// only package that knows about the external request/response contracts;
// pkg/bitcoin stays free of any notion of "report" or "fixture".
package report

import (
	"encoding/hex"
	"fmt"
	"math"

	"go.uber.org/zap"

	"chainlens/pkg/analyzer"
	"chainlens/pkg/apperr"
	"chainlens/pkg/bitcoin"
	"chainlens/pkg/types"
)

func isCoinbaseOutpoint(txid string, vout uint32) bool {
	return vout == 0xffffffff && len(txid) == 64 && allZeroHex(txid)
}

func allZeroHex(s string) bool {
	for _, c := range s {
		if c != '0' {
			return false
		}
	}
	return true
}

// ParseTransaction builds a TransactionOutput from a fixture's raw_tx hex
// and its declared prevouts, matching every input (other than the coinbase
// null outpoint) to exactly one prevout by (txid, vout).
func ParseTransaction(fixture types.Fixture) (*types.TransactionOutput, error) {
	rawTx, err := hex.DecodeString(fixture.RawTx)
	if err != nil {
		return nil, apperr.InvalidFixture("raw_tx is not valid hex: %v", err)
	}

	tx, err := bitcoin.ParseTransaction(rawTx)
	if err != nil {
		return nil, apperr.InvalidTx("%v", err)
	}

	prevoutMap := make(map[string]types.PrevoutInput, len(fixture.Prevouts))
	for _, p := range fixture.Prevouts {
		key := fmt.Sprintf("%s:%d", p.Txid, p.Vout)
		if _, exists := prevoutMap[key]; exists {
			return nil, apperr.InvalidFixture("duplicate prevout %s", key)
		}
		prevoutMap[key] = p
	}

	for _, in := range tx.Inputs {
		if isCoinbaseOutpoint(in.Txid, in.Vout) {
			continue
		}
		key := fmt.Sprintf("%s:%d", in.Txid, in.Vout)
		if _, exists := prevoutMap[key]; !exists {
			return nil, apperr.InvalidFixture("missing prevout for input %s", key)
		}
	}

	lookup := func(txid string, vout uint32) types.PrevoutInput {
		if isCoinbaseOutpoint(txid, vout) {
			return types.PrevoutInput{}
		}
		return prevoutMap[fmt.Sprintf("%s:%d", txid, vout)]
	}

	return buildTransactionReport(tx, fixture.Network, lookup)
}

// prevoutLookup resolves an input's (txid, vout) to its spent output.
type prevoutLookup func(txid string, vout uint32) types.PrevoutInput

func buildTransactionReport(tx *bitcoin.Transaction, network string, lookup prevoutLookup) (*types.TransactionOutput, error) {
	isCoinbase := tx.IsCoinbase()

	var totalInputSats int64
	var sequences []uint32
	vin := make([]types.Input, 0, len(tx.Inputs))

	for _, in := range tx.Inputs {
		prevout := lookup(in.Txid, in.Vout)
		if !isCoinbaseOutpoint(in.Txid, in.Vout) {
			totalInputSats += prevout.ValueSats
		}

		prevoutScript, _ := hex.DecodeString(prevout.ScriptPubkeyHex)

		var scriptType string
		var address *string
		if isCoinbaseOutpoint(in.Txid, in.Vout) {
			scriptType = "unknown"
		} else {
			scriptType = bitcoin.ClassifyInputScript(in.ScriptSig, in.WitnessRaw, prevoutScript)
			address = bitcoin.AddressFromScript(prevoutScript, network)
		}

		witness := in.Witness
		if witness == nil {
			witness = []string{}
		}

		var witnessScriptAsm *string
		if (scriptType == "p2wsh" || scriptType == "p2sh-p2wsh") && len(in.WitnessRaw) > 0 {
			last := in.WitnessRaw[len(in.WitnessRaw)-1]
			if len(last) > 0 {
				asm := bitcoin.DisassembleScript(last)
				witnessScriptAsm = &asm
			}
		}

		rt := analyzer.ParseRelativeTimelock(in.Sequence)
		sequences = append(sequences, in.Sequence)

		vin = append(vin, types.Input{
			Txid:             in.Txid,
			Vout:             in.Vout,
			Sequence:         in.Sequence,
			ScriptSigHex:     in.ScriptSigHex,
			ScriptAsm:        bitcoin.DisassembleScript(in.ScriptSig),
			Witness:          witness,
			WitnessScriptAsm: witnessScriptAsm,
			ScriptType:       scriptType,
			Address:          address,
			Prevout: types.Prevout{
				ValueSats:       prevout.ValueSats,
				ScriptPubkeyHex: prevout.ScriptPubkeyHex,
			},
			RelativeTimelock: types.RelativeTimelock{
				Enabled: rt.Enabled,
				Type:    rt.Type,
				Value:   rt.Value,
			},
		})
	}

	var totalOutputSats int64
	vout := make([]types.Output, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		totalOutputSats += out.ValueSats
		scriptType := bitcoin.ClassifyOutputScript(out.ScriptPubkey)
		address := bitcoin.AddressFromScript(out.ScriptPubkey, network)

		o := types.Output{
			N:               out.N,
			ValueSats:       out.ValueSats,
			ScriptPubkeyHex: out.ScriptPubkeyHex,
			ScriptAsm:       bitcoin.DisassembleScript(out.ScriptPubkey),
			ScriptType:      scriptType,
			Address:         address,
		}

		if scriptType == "op_return" {
			dataHex, dataUTF8, protocol := bitcoin.ParseOpReturn(out.ScriptPubkey)
			o.OpReturnDataHex = dataHex
			o.OpReturnDataUtf8 = dataUTF8
			o.OpReturnProtocol = protocol
		}

		vout = append(vout, o)
	}

	var feeSats int64
	if !isCoinbase {
		feeSats = totalInputSats - totalOutputSats
		if feeSats < 0 {
			return nil, apperr.InvalidTx("negative fee: inputs=%d outputs=%d", totalInputSats, totalOutputSats)
		}
	}

	vbytes := tx.Vbytes()
	var feeRate float64
	if vbytes > 0 {
		feeRate = roundTo2(float64(feeSats) / float64(vbytes))
	}

	var wtxid *string
	if tx.IsSegwit {
		w := tx.Wtxid()
		wtxid = &w
	}

	var segwitSavings *types.SegwitSavings
	if tx.IsSegwit && tx.WitnessBytes() > 0 {
		weightIfLegacy := tx.SizeBytes() * 4
		savingsPct := (1.0 - float64(tx.Weight())/float64(weightIfLegacy)) * 100
		segwitSavings = &types.SegwitSavings{
			WitnessBytes:    tx.WitnessBytes(),
			NonWitnessBytes: tx.NonWitnessBytes(),
			TotalBytes:      tx.SizeBytes(),
			WeightActual:    tx.Weight(),
			WeightIfLegacy:  weightIfLegacy,
			SavingsPct:      roundTo2(savingsPct),
		}
	}

	voutScriptTypes := make([]string, len(vout))
	for i, o := range vout {
		voutScriptTypes[i] = o.ScriptType
	}

	rbfSignaling := analyzer.IsRBFSignaling(sequences)
	warnings := analyzer.GenerateWarnings(feeSats, feeRate, rbfSignaling, vout)

	return &types.TransactionOutput{
		OK:              true,
		Network:         network,
		Segwit:          tx.IsSegwit,
		Txid:            tx.Txid(),
		Wtxid:           wtxid,
		Version:         tx.Version,
		Locktime:        tx.Locktime,
		SizeBytes:       tx.SizeBytes(),
		Weight:          tx.Weight(),
		Vbytes:          vbytes,
		FeeSats:         feeSats,
		FeeRateSatVb:    feeRate,
		TotalInputSats:  totalInputSats,
		TotalOutputSats: totalOutputSats,
		RbfSignaling:    rbfSignaling,
		LocktimeType:    analyzer.LocktimeType(tx.Locktime),
		LocktimeValue:   tx.Locktime,
		VinCount:        len(vin),
		VoutCount:       len(vout),
		VoutScriptTypes: voutScriptTypes,
		SegwitSavings:   segwitSavings,
		Vin:             vin,
		Vout:            vout,
		Warnings:        warnings,
	}, nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseBlock decodes the first block in a blk*.dat buffer, validates its
// merkle root, recovers non-coinbase prevouts from the matching rev*.dat
// undo record, and returns the assembled block report. logger may be nil.
func ParseBlock(blkData, revData, xorKey []byte, network string, logger *zap.Logger) (*types.BlockOutput, error) {
	blkDecoded := bitcoin.XORDecode(blkData, xorKey)
	revDecoded := bitcoin.XORDecode(revData, xorKey)

	blockData, err := bitcoin.ExtractFirstBlockRecord(blkDecoded)
	if err != nil {
		return nil, apperr.InvalidBlock("%v", err)
	}

	header, err := bitcoin.ParseBlockHeader(blockData[:80])
	if err != nil {
		return nil, apperr.InvalidBlock("%v", err)
	}

	txCount, pos, err := bitcoin.ReadCompactSize(blockData, 80)
	if err != nil {
		return nil, apperr.InvalidBlock("tx count: %v", err)
	}

	rawTxs, err := bitcoin.ScanTransactions(blockData, pos, txCount)
	if err != nil {
		return nil, apperr.InvalidBlock("%v", err)
	}

	txs := make([]*bitcoin.Transaction, 0, len(rawTxs))
	for i, raw := range rawTxs {
		tx, err := bitcoin.ParseTransaction(raw)
		if err != nil {
			return nil, apperr.InvalidBlock("transaction %d: %v", i, err)
		}
		txs = append(txs, tx)
	}

	txids := make([]string, len(txs))
	for i, tx := range txs {
		txids[i] = tx.Txid()
	}
	computedMerkle, err := bitcoin.ComputeMerkleRoot(txids)
	if err != nil {
		return nil, apperr.InvalidBlock("merkle computation: %v", err)
	}

	merkleValid := computedMerkle == header.MerkleRoot
	if !merkleValid {
		return nil, apperr.MerkleRootMismatch(header.MerkleRoot, computedMerkle)
	}

	expectedUndoCount := uint64(0)
	if len(txs) > 0 {
		expectedUndoCount = uint64(len(txs) - 1)
	}
	undoRecord, usedFallback, err := bitcoin.MatchUndoRecord(revDecoded, expectedUndoCount)
	if err != nil {
		return nil, apperr.UndoDataError("%v", err)
	}
	if usedFallback && logger != nil {
		logger.Warn("undo record matched by fallback, not by count",
			zap.Uint64("expected_undo_count", expectedUndoCount))
	}

	undoPrevouts, err := bitcoin.ParseUndoData(undoRecord)
	if err != nil {
		return nil, apperr.UndoDataError("%v", err)
	}

	var coinbaseScriptHex string
	var coinbaseTotalOutput int64
	var bip34Height int64
	if len(txs) > 0 {
		coinbaseScriptHex = txs[0].Inputs[0].ScriptSigHex
		bip34Height = bitcoin.DecodeBIP34Height(txs[0].Inputs[0].ScriptSig)
		for _, out := range txs[0].Outputs {
			coinbaseTotalOutput += out.ValueSats
		}
	}

	txReports := make([]types.TransactionOutput, 0, len(txs))
	undoIdx := 0
	var totalFees int64
	var totalWeight int
	var totalVbytes int
	scriptTypeSummary := make(map[string]int)

	for i, tx := range txs {
		isCoinbase := i == 0

		var lookup prevoutLookup
		if isCoinbase {
			lookup = func(string, uint32) types.PrevoutInput { return types.PrevoutInput{} }
		} else {
			prevouts := undoPrevouts[undoIdx]
			undoIdx++
			idx := 0
			lookup = func(string, uint32) types.PrevoutInput {
				p := prevouts[idx]
				idx++
				return types.PrevoutInput{ValueSats: p.ValueSats, ScriptPubkeyHex: p.ScriptPubkeyHex}
			}
		}

		report, err := buildTransactionReport(tx, network, lookup)
		if err != nil {
			return nil, apperr.InvalidBlock("transaction %d: %v", i, err)
		}
		txReports = append(txReports, *report)

		if !isCoinbase {
			totalFees += report.FeeSats
			totalVbytes += report.Vbytes
		}
		totalWeight += report.Weight
		for _, out := range report.Vout {
			scriptTypeSummary[out.ScriptType]++
		}
	}

	var avgFeeRate float64
	if totalVbytes > 0 {
		avgFeeRate = roundTo2(float64(totalFees) / float64(totalVbytes))
	}

	return &types.BlockOutput{
		OK:   true,
		Mode: "block",
		BlockHeader: types.BlockHeader{
			Version:         header.Version,
			PrevBlockHash:   header.PrevBlockHash,
			MerkleRoot:      header.MerkleRoot,
			MerkleRootValid: merkleValid,
			Timestamp:       header.Timestamp,
			Bits:            header.Bits,
			Nonce:           header.Nonce,
			BlockHash:       header.BlockHash,
		},
		TxCount: int(txCount),
		Coinbase: types.CoinbaseInfo{
			Bip34Height:       bip34Height,
			CoinbaseScriptHex: coinbaseScriptHex,
			TotalOutputSats:   coinbaseTotalOutput,
		},
		Transactions: txReports,
		BlockStats: types.BlockStats{
			TotalFeesSats:     totalFees,
			TotalWeight:       totalWeight,
			AvgFeeRateSatVb:   avgFeeRate,
			ScriptTypeSummary: scriptTypeSummary,
		},
	}, nil
}
