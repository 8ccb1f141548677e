// ====================================
// File: cmd/liquidator/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/bot"
	"github.com/rovshanmuradov/aave-liquidator/internal/config"
	"github.com/rovshanmuradov/aave-liquidator/internal/export"
	"github.com/rovshanmuradov/aave-liquidator/internal/utils/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to the JSON config")
	modeName := flag.String("mode", string(bot.ModeServe), "once, watch or serve")
	formatName := flag.String("format", string(export.FormatJSON), "once mode output: json or csv")
	outDir := flag.String("out", "", "once mode: write a timestamped file to this directory instead of stdout")
	onlyLiquidatable := flag.Bool("liquidatable", false, "once mode: export only candidates with health factor below 1")
	flag.Parse()

	mode, err := bot.ParseMode(*modeName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("Starting liquidator", zap.String("mode", string(mode)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := bot.NewRunner(cfg, log)
	runner.SetExport(export.ExportOptions{
		Format:           format,
		OnlyLiquidatable: *onlyLiquidatable,
		OutputDir:        *outDir,
	})
	if err := runner.Initialize(ctx); err != nil {
		log.LogError("Failed to initialize liquidator", err)
		runner.Shutdown()
		os.Exit(1)
	}

	err = runner.Run(ctx, mode)
	runner.Shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "liquidator: %v\n", err)
		os.Exit(1)
	}
}
