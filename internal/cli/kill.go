package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"probedge/internal/runtime"
)

func newKillCmd(app *App) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Trip or reset the kill-switch sentinel file",
		Long: `kill drops (or, with --reset, removes) the sentinel file a running
'probedge run'/'probedge replay' process polls every paper-execution cycle.
Tripping it blocks new trade entries and forces a flatten on the next tick;
it does not stop the process itself.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks := runtime.NewKillSwitch(app.Config.Paths.State)
			output := NewOutput(cmd)

			if reset {
				if err := ks.Reset(); err != nil {
					return fmt.Errorf("kill: resetting: %w", err)
				}
				if output.IsJSON() {
					return output.JSON(map[string]bool{"tripped": false})
				}
				output.Success("Kill-switch reset")
				return nil
			}

			if err := ks.Trip(); err != nil {
				return fmt.Errorf("kill: tripping: %w", err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"tripped": true})
			}
			output.Warning("Kill-switch tripped: new trade entries are now blocked")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "remove the kill-switch sentinel instead of creating it")

	return cmd
}
