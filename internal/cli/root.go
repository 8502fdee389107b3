// Package cli provides the command-line interface for probedge.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"probedge/internal/config"
	"probedge/internal/logging"
)

// Version information.
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-06"
)

// App holds the dependencies every subcommand needs.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{Config: cfg, Logger: logger}

	rootCmd := &cobra.Command{
		Use:   "probedge",
		Short: "probedge - intraday paper-trading decision engine",
		Long: `probedge runs a deterministic intraday decision pipeline for the Indian
cash equities market: classify each symbol's opening session, look up a
frequency-table pick, build one locked plan at 09:40, and paper-execute it
through SL/TP1/TP2 against live or replayed ticks.

Use 'probedge help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/probedge)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newReplayCmd(app))
	rootCmd.AddCommand(newPlanCmd(app))
	rootCmd.AddCommand(newKillCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version, "build_date": BuildDate})
			} else {
				output.Printf("probedge v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Symbols")
	output.Printf("  %d symbols: %s\n", len(cfg.Symbols), joinTruncated(cfg.Symbols, 10))
	output.Println()

	output.Bold("Paths")
	output.Printf("  Intraday: %s\n", cfg.Paths.Intraday)
	output.Printf("  Masters:  %s\n", cfg.Paths.Masters)
	output.Printf("  Journal:  %s\n", cfg.Paths.Journal)
	output.Printf("  State:    %s\n", cfg.Paths.State)
	output.Println()

	output.Bold("Risk")
	output.Printf("  Daily Rs:     %s\n", FormatIndianCurrency(cfg.Risk.DailyRs))
	output.Printf("  Per-Trade Rs: %s\n", FormatIndianCurrency(cfg.Risk.PerTradeRs))
	output.Printf("  R-ATR Mult:   %.2f\n", cfg.Risk.RATRMult)
	output.Println()

	output.Bold("Cutovers (IST)")
	output.Printf("  PDC:         %s\n", cfg.Cutovers.PDC)
	output.Printf("  OL:          %s\n", cfg.Cutovers.OL)
	output.Printf("  OT:          %s\n", cfg.Cutovers.OT)
	output.Printf("  EOD Flatten: %s\n", cfg.Cutovers.EODFlatten)
	output.Println()

	output.Bold("Picker")
	output.Printf("  Nmin L3/L2/L1:    %d / %d / %d\n", cfg.Picker.NminL3, cfg.Picker.NminL2, cfg.Picker.NminL1)
	output.Printf("  Conf Min:         %s\n", FormatPercent(cfg.Picker.ConfMin*100))
	output.Printf("  TR Guard Conf:    %s\n", FormatPercent(cfg.Picker.TRGuardConf*100))
	output.Printf("  Opening Trend %%:  %.2f\n", cfg.Picker.OpeningTrendThreshPct)
	output.Println()

	output.Bold("HTTP")
	output.Printf("  Addr: %s\n", cfg.HTTP.Addr)
	output.Println()

	output.Bold("Mode")
	output.Printf("  %s\n", cfg.Mode)

	return nil
}

func joinTruncated(items []string, max int) string {
	if len(items) <= max {
		return fmt.Sprintf("%v", items)
	}
	return fmt.Sprintf("%v... (+%d more)", items[:max], len(items)-max)
}
