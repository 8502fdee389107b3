package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"probedge/internal/clock"
	"probedge/internal/statestore"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect the locked daily plan snapshot",
	}

	var date string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the locked plan snapshot for a trading date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPlan(cmd, app, date)
		},
	}
	show.Flags().StringVar(&date, "date", "", "trading date (YYYY-MM-DD); defaults to today")
	cmd.AddCommand(show)

	return cmd
}

func showPlan(cmd *cobra.Command, app *App, date string) error {
	if date == "" {
		date = clock.DateString(clock.NewWallClock().Now())
	}

	snap, err := statestore.ReadPlanSnapshot(app.Config.Paths.State, date)
	if err != nil {
		return fmt.Errorf("plan show: no plan snapshot found for %s: %w", date, err)
	}

	output := NewOutput(cmd)
	if output.IsJSON() {
		return output.JSON(snap)
	}

	output.Bold("Plan Snapshot — %s", snap.Date)
	output.Printf("Mode: %s   Status: %s   Locked: %v\n", snap.Mode, snap.Status, snap.Locked)
	output.Println()

	plan := snap.PortfolioPlan
	output.Printf("Daily Risk: %s   Per-Trade Risk: %s   Planned Risk: %s   Active Trades: %d\n",
		FormatIndianCurrency(plan.DailyRiskRs), FormatIndianCurrency(plan.RiskPerTradeRs),
		FormatIndianCurrency(plan.TotalPlannedRiskRs), plan.ActiveTrades)
	output.Println()

	symbols := make([]string, 0, len(plan.Plans))
	for symbol := range plan.Plans {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	table := NewTable(output, "Symbol", "Pick", "Level", "Conf", "Entry", "Stop", "TP1", "TP2", "Qty", "Abstain")
	for _, symbol := range symbols {
		row := plan.Plans[symbol]
		table.AddRow(
			symbol,
			string(row.Pick),
			string(row.Level),
			FormatConfidence(row.Confidence),
			FormatPrice(row.Entry),
			FormatPrice(row.Stop),
			FormatPrice(row.TP1),
			FormatPrice(row.TP2),
			fmt.Sprintf("%d", row.Qty),
			row.AbstainReason,
		)
	}
	table.Render()

	return nil
}
