package main

import (
	"github.com/OFFIS-RIT/castnet/internal/config"
	"github.com/OFFIS-RIT/castnet/internal/server"
	"github.com/OFFIS-RIT/castnet/internal/util"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
	"github.com/OFFIS-RIT/castnet/pkg/logger/console"
)

func main() {
	util.LoadEnv()
	cfg := config.Load()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.App.Debug,
		Format: cfg.App.LogFormat,
	})
	logger.Init(consoleLogger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	server.Init(cfg)
}
