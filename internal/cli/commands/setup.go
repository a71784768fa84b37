// Package commands implements the strata subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/strata/internal/cli/config"
	"github.com/leapstack-labs/strata/internal/engine"
)

// Command-scoped state set by the root command's PersistentPreRunE.
// Cobra contexts are rebuilt per Execute; a keyed map avoids threading
// context values through every helper.
var (
	mu      sync.Mutex
	cfgs    = map[*cobra.Command]*config.Config{}
	loggers = map[*cobra.Command]*slog.Logger{}
)

// SetConfig stores the loaded configuration for cmd's command tree.
func SetConfig(cmd *cobra.Command, cfg *config.Config) {
	mu.Lock()
	defer mu.Unlock()
	cfgs[cmd.Root()] = cfg
}

// SetLogger stores the logger for cmd's command tree.
func SetLogger(cmd *cobra.Command, logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	loggers[cmd.Root()] = logger
}

// getConfig returns the configuration loaded for this invocation.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	mu.Lock()
	defer mu.Unlock()
	cfg, ok := cfgs[cmd.Root()]
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// getLogger returns the logger for this invocation.
func getLogger(cmd *cobra.Command) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger, ok := loggers[cmd.Root()]; ok {
		return logger
	}
	return slog.Default()
}

// openEngine opens the configured database as a full strata engine.
func openEngine(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Path:          cfg.DatabasePath,
		EncryptionKey: cfg.EncryptionKey,
		BusyTimeout:   cfg.BusyTimeout,
		Logger:        getLogger(cmd),
	})
}
