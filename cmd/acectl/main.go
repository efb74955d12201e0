// Acectl talks to an ACE filament-handling unit over its USB serial link.
//
// It sends one framed JSON-RPC request per invocation (status queries,
// feeding, retracting, feed assist, drying) and prints the unit's response.
// A websocket bridge can stand in for the serial port by passing a ws://
// URL to --port.
//
// Usage:
//
//	acectl [command] [flags]
//
// See 'acectl --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/muurk/acectl/internal/logging"
	"github.com/muurk/acectl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		// Failures already rendered by the printer only need the exit code.
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Detailed())
		},
	}
}
