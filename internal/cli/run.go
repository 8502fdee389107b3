package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"probedge/internal/broker"
	"probedge/internal/clock"
	"probedge/internal/config"
	"probedge/internal/httpapi"
	"probedge/internal/journal"
	"probedge/internal/logging"
	"probedge/internal/models"
	"probedge/internal/runtime"
	"probedge/internal/statestore"
	"probedge/internal/ticksource"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the live or paper trading session for today",
		Long: `run connects to the configured tick source (LIVE broker feed in LIVE
mode, disabled in PAPER mode pending a quote feed), builds today's plan at
the OT cutover, and paper-executes it until the EOD flatten cutover or
SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd.Context(), app)
		},
	}
}

func runLive(parent context.Context, app *App) error {
	cfg := app.Config
	logger := logging.WithComponent(app.Logger, "cli")

	if cfg.Mode != "LIVE" && cfg.Mode != "PAPER" {
		return fmt.Errorf("run: mode %q is not supported by 'probedge run'; use 'probedge replay' for SIM", cfg.Mode)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	jrnl, err := journal.Open(cfg.Paths.Journal)
	if err != nil {
		return fmt.Errorf("run: opening journal: %w", err)
	}
	defer jrnl.Close()

	clk := clock.NewWallClock()
	today := clock.DateString(clk.Now())
	store := statestore.New(runModeOf(cfg.Mode), today, false, cfg.Paths.State, clk, logger)

	src, err := buildLiveSource(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("run: building tick source: %w", err)
	}
	defer src.Close()

	rt, err := runtime.New(cfg, logger, clk, src, store, jrnl)
	if err != nil {
		return fmt.Errorf("run: building runtime: %w", err)
	}

	httpSrv := httpapi.New(cfg.HTTP.Addr, store, logger)
	httpDone := make(chan error, 1)
	go func() { httpDone <- httpSrv.Run(ctx) }()

	logger.Info().Str("mode", cfg.Mode).Str("date", today).Str("http_addr", cfg.HTTP.Addr).Msg("starting probedge run")
	rt.Run(ctx)

	if err := <-httpDone; err != nil {
		logger.Error().Err(err).Msg("httpapi server exited with error")
	}
	return nil
}

// buildLiveSource resolves instrument tokens and opens a broker WebSocket
// feed for LIVE mode. PAPER mode has no quote feed configured yet (the
// LIVE broker credentials it would need are optional in PAPER per
// config.Validate), so it fails fast rather than running a silently idle
// pipeline.
func buildLiveSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ticksource.Source, error) {
	if cfg.Mode != "LIVE" {
		return nil, fmt.Errorf("tick source: mode %q has no configured feed; run 'probedge replay' instead", cfg.Mode)
	}

	b := broker.NewZerodhaBroker(broker.ZerodhaConfig{
		APIKey:      cfg.Broker.APIKey,
		AccessToken: cfg.Broker.AccessToken,
	})

	tokens, err := broker.ResolveTokens(ctx, b, cfg.Symbols, models.NSE)
	if err != nil {
		return nil, fmt.Errorf("resolving instrument tokens: %w", err)
	}

	ticker := broker.NewZerodhaTicker(broker.ZerodhaTickerConfig{
		APIKey:      cfg.Broker.APIKey,
		AccessToken: cfg.Broker.AccessToken,
	})

	src, err := ticksource.NewLive(ctx, ticker, ticksource.LiveConfig{
		Symbols:      cfg.Symbols,
		SymbolTokens: tokens,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting live tick stream: %w", err)
	}
	logger.Info().Int("symbols", len(tokens)).Msg("live tick source connected")
	return src, nil
}

func runModeOf(mode string) models.RunMode {
	switch mode {
	case "LIVE":
		return models.ModeLive
	case "SIM":
		return models.ModeSim
	default:
		return models.ModePaper
	}
}
