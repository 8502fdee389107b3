// Command probedge runs the intraday decision engine: classify each
// symbol's opening session, build one locked plan at the OT cutover, and
// paper-execute it against live or replayed ticks.
package main

import (
	"fmt"
	"os"

	"probedge/internal/cli"
	"probedge/internal/config"
	"probedge/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir, _ := parseConfigFlag(os.Args[1:])

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probedge: loading config: %v\n", err)
		return 1
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    true,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	})

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// parseConfigFlag scans argv for "--config <dir>" ahead of running cobra,
// since config.Load must happen before the root command (and its
// persistent flags) exist.
func parseConfigFlag(args []string) (string, bool) {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}
