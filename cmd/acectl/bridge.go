package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/acectl/internal/bridge"
	"github.com/muurk/acectl/internal/transport"
)

func (a *app) newBridgeCmd() *cobra.Command {
	cfg := bridge.Config{Port: 8080}

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Share the unit over a websocket",
		Long: `Serve the configured unit to websocket clients until interrupted.

Other machines can then reach the unit with --port ws://HOST:PORT/ace.
Requests from all clients are sent to the unit one at a time. Pass
--cert and --key to serve wss:// instead.`,
		Example: `  # Share the local unit on port 8080
  acectl bridge

  # Record every relayed frame for protocol analysis
  acectl bridge --listen-port 9000 --capture-dir ./captures`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			var unit transport.Channel
			if a.dryRun {
				unit = newEmulator()
			} else {
				unit = a.newChannel(a.cfg)
			}
			cfg.ReadTimeout = a.cfg.Serial.ReadTimeout
			cfg.WriteTimeout = a.cfg.Serial.WriteTimeout

			srv, err := bridge.New(cfg, unit)
			if err != nil {
				return err
			}
			scheme := "ws"
			if cfg.CertPath != "" {
				scheme = "wss"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at %s://%s%s (Ctrl+C to stop)\n", unit, scheme, srv.Addr(), cfg.Path)
			return srv.Start(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Host, "listen-host", "", "Address to listen on (empty = all interfaces)")
	flags.IntVar(&cfg.Port, "listen-port", cfg.Port, "Port to listen on")
	flags.StringVar(&cfg.Path, "path", bridge.DefaultPath, "Websocket endpoint path")
	flags.StringVar(&cfg.CertPath, "cert", "", "TLS certificate file (PEM)")
	flags.StringVar(&cfg.KeyPath, "key", "", "TLS private key file (PEM)")
	flags.StringVar(&cfg.CaptureDir, "capture-dir", "", "Directory to write JSONL frame captures")
	return cmd
}
