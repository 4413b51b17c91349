package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/bot"
	"github.com/you/sol-arb-bot/internal/config"
)

func parseFlags() (cfgPath string, dryRun bool) {
	path := flag.String("config", "./config.yaml", "path to config file")
	dry := flag.Bool("dry-run", false, "log routes without sending transactions")
	flag.Parse()
	return *path, *dry
}

func main() {
	cfgPath, dryRun := parseFlags()

	logger, err := bot.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if dryRun {
		cfg.DryRun = true
	}

	if err := bot.New(cfg, logger).Run(context.Background()); err != nil {
		logger.Fatal("bot failed", zap.Error(err))
	}
}
