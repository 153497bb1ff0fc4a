// Package main is the entry point for the keyboard-driven simple3d viewer
// without widgets.
package main

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/app"
	"github.com/Faultbox/simple3d/internal/config"
	"github.com/Faultbox/simple3d/internal/logger"
)

func main() {
	runtime.LockOSThread()

	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== simple3d viewer (lite) ===")
	logger.Debug("config loaded", zap.Any("config", cfg))

	if err := app.RunLite(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
