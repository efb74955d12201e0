package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/acectl/internal/driver"
	"github.com/muurk/acectl/internal/ui"
)

func (a *app) newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show live unit status",
		Long: `Poll get_status on an interval and redraw the unit status,
including a progress bar while the dryer runs.

Press r to refresh immediately and q to quit.`,
		Example: `  acectl watch
  acectl watch --interval 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			drv, err := a.connect()
			if err != nil {
				return a.fail(driver.MethodGetStatus, err)
			}
			defer a.disconnect(drv)

			poll := func(ctx context.Context) (any, error) {
				return drv.Run(ctx, driver.GetStatus())
			}
			model := ui.NewWatchModel(cmd.Context(), drv.Target(), interval, poll)
			return ui.RunWatch(cmd.Context(), model)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", ui.DefaultWatchInterval, "Time between status polls")
	return cmd
}
