// ====================================
// File: cmd/limelightd/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/logger"
	"github.com/limelight-labs/limelight-core/internal/service"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logCfg := logger.DefaultConfig()
	logCfg.Development = *debug
	log, err := logger.New(logCfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("Starting limelightd")

	runner := service.NewRunner(log.Logger)
	if err := runner.Initialize(*configPath); err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Runtime error", zap.Error(err))
	}
}
