package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"probedge/internal/clock"
	"probedge/internal/httpapi"
	"probedge/internal/journal"
	"probedge/internal/logging"
	"probedge/internal/models"
	"probedge/internal/runtime"
	"probedge/internal/statestore"
	"probedge/internal/ticksource"
)

func newReplayCmd(app *App) *cobra.Command {
	var seed int64
	var date string

	cmd := &cobra.Command{
		Use:   "replay <dir>",
		Short: "Replay a day's 5-minute OHLCV CSVs through the full pipeline",
		Long: `replay synthesizes a deterministic tick sequence from per-symbol
"<symbol>.csv" files under <dir> and drives the same classify/plan/execute
pipeline as 'probedge run', but in SIM mode against a virtual clock that
advances only as fast as the synthesized ticks do. The same input and seed
always produce the same output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), app, args[0], date, seed)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for tick synthesis order within each bar")
	cmd.Flags().StringVar(&date, "date", "", "trading date (YYYY-MM-DD) for the snapshot; defaults to today")

	return cmd
}

func runReplay(parent context.Context, app *App, dir, date string, seed int64) error {
	cfg := app.Config
	logger := logging.WithComponent(app.Logger, "cli")

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := ticksource.NewReplay(ticksource.ReplayConfig{
		Dir:     dir,
		Symbols: cfg.Symbols,
		Seed:    seed,
	})
	if err != nil {
		return fmt.Errorf("replay: building replay source: %w", err)
	}
	defer src.Close()

	if date == "" {
		date = clock.DateString(clock.NewWallClock().Now())
	}
	dateRef, err := time.ParseInLocation("2006-01-02", date, clock.IST)
	if err != nil {
		return fmt.Errorf("replay: parsing --date %q: %w", date, err)
	}
	start, err := clock.AtCutover(dateRef, cfg.Cutovers.PDC)
	if err != nil {
		return fmt.Errorf("replay: parsing PDC cutover for %s: %w", date, err)
	}
	clk := clock.NewReplayClock(start)

	jrnl, err := journal.Open(cfg.Paths.Journal)
	if err != nil {
		return fmt.Errorf("replay: opening journal: %w", err)
	}
	defer jrnl.Close()

	store := statestore.New(models.ModeSim, date, true, cfg.Paths.State, clk, logger)

	rt, err := runtime.New(cfg, logger, clk, src, store, jrnl)
	if err != nil {
		return fmt.Errorf("replay: building runtime: %w", err)
	}

	httpSrv := httpapi.New(cfg.HTTP.Addr, store, logger)
	httpDone := make(chan error, 1)
	go func() { httpDone <- httpSrv.Run(ctx) }()

	logger.Info().Str("dir", dir).Str("date", date).Int64("seed", seed).Msg("starting probedge replay")
	rt.Run(ctx)

	if err := <-httpDone; err != nil {
		logger.Error().Err(err).Msg("httpapi server exited with error")
	}
	return nil
}
