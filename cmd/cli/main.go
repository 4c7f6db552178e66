package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"chainlens/pkg/apperr"
	"chainlens/pkg/logging"
	"chainlens/pkg/report"
	"chainlens/pkg/types"
)

type options struct {
	Fixture string `short:"f" long:"fixture" description:"transaction fixture JSON file"`
	Block   string `long:"block" description:"blk*.dat file (requires --rev and --xor-key)"`
	Rev     string `long:"rev" description:"rev*.dat undo file"`
	XorKey  string `long:"xor-key" description:"8-byte XOR obfuscation key file"`
	Network string `short:"n" long:"network" default:"mainnet" description:"address network (mainnet, testnet, regtest, signet)"`
	OutDir  string `short:"o" long:"out" default:"out" description:"output directory for the JSON report"`
	Debug   bool   `short:"v" long:"verbose" description:"enable debug-level logging"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger, err := logging.New(opts.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if opts.Block != "" {
		runBlockMode(opts, logger)
		return
	}
	if opts.Fixture != "" {
		runTransactionMode(opts, logger)
		return
	}

	printError(apperr.InvalidFixture("specify either --fixture or --block/--rev/--xor-key"))
	os.Exit(1)
}

func runTransactionMode(opts options, logger *zap.Logger) {
	fixtureData, err := os.ReadFile(opts.Fixture)
	if err != nil {
		printError(apperr.InvalidFixture("failed to read fixture: %v", err))
		os.Exit(1)
	}

	var fixture types.Fixture
	if err := json.Unmarshal(fixtureData, &fixture); err != nil {
		printError(apperr.InvalidFixture("failed to parse fixture JSON: %v", err))
		os.Exit(1)
	}
	if fixture.Network == "" {
		fixture.Network = opts.Network
	}

	result, err := report.ParseTransaction(fixture)
	if err != nil {
		logger.Error("transaction analysis failed", zap.Error(err))
		printError(err)
		os.Exit(1)
	}

	writeReport(opts.OutDir, result.Txid, result, logger)
	emit(result)
}

func runBlockMode(opts options, logger *zap.Logger) {
	if opts.Rev == "" || opts.XorKey == "" {
		printError(apperr.InvalidFixture("--block requires --rev and --xor-key"))
		os.Exit(1)
	}

	blkData, err := os.ReadFile(opts.Block)
	if err != nil {
		printError(apperr.InvalidBlock("failed to read block file: %v", err))
		os.Exit(1)
	}
	revData, err := os.ReadFile(opts.Rev)
	if err != nil {
		printError(apperr.InvalidBlock("failed to read undo file: %v", err))
		os.Exit(1)
	}
	xorKey, err := os.ReadFile(opts.XorKey)
	if err != nil {
		printError(apperr.InvalidBlock("failed to read xor key: %v", err))
		os.Exit(1)
	}

	result, err := report.ParseBlock(blkData, revData, xorKey, opts.Network, logger)
	if err != nil {
		logger.Error("block analysis failed", zap.Error(err))
		printError(err)
		os.Exit(1)
	}

	writeReport(opts.OutDir, result.BlockHeader.BlockHash, result, logger)
	emit(result)
}

func writeReport(outDir, name string, v any, logger *zap.Logger) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.Warn("failed to create output directory", zap.Error(err))
		return
	}
	outputJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Warn("failed to marshal report", zap.Error(err))
		return
	}
	outputPath := filepath.Join(outDir, name+".json")
	if err := os.WriteFile(outputPath, outputJSON, 0o644); err != nil {
		logger.Warn("failed to write report file", zap.Error(err), zap.String("path", outputPath))
	}
}

func emit(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func printError(err error) {
	code := "INVALID_FIXTURE"
	var coded *apperr.CodedError
	if ce, ok := err.(*apperr.CodedError); ok {
		coded = ce
		code = coded.Code
	}

	out := struct {
		OK    bool             `json:"ok"`
		Error *types.ErrorInfo `json:"error"`
	}{
		OK: false,
		Error: &types.ErrorInfo{
			Code:    code,
			Message: err.Error(),
		},
	}
	data, _ := json.Marshal(out)
	fmt.Println(string(data))
}
