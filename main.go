package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ftchann/uniswap-custodian/lib/config"
	"github.com/ftchann/uniswap-custodian/lib/executor"
	ent "github.com/ftchann/uniswap-custodian/lib/transaction"
)

func main() {
	configPath := flag.String("config", "config.yaml", "deployment and scenario description")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// the scenario path is relative to the config file
	scenarioPath := cfg.Scenario
	if !filepath.IsAbs(scenarioPath) {
		scenarioPath = filepath.Join(filepath.Dir(configPath), scenarioPath)
	}
	transactions, err := ent.Load(scenarioPath)
	if err != nil {
		return err
	}
	logger.Info("scenario loaded", "path", scenarioPath, "transactions", len(transactions))

	env, err := executor.NewEnvironment(cfg, logger, time.Now)
	if err != nil {
		return err
	}
	execution := executor.CreateExecution(env, transactions, logger)
	runErr := execution.Run()
	logger.Info("scenario finished", "summary", execution.String())

	// the report is written even when the run stopped early
	data, err := json.MarshalIndent(execution.Result(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Output, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	logger.Info("result written", "path", cfg.Output)
	return runErr
}
