package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/acectl/internal/config"
	"github.com/muurk/acectl/internal/driver"
	"github.com/muurk/acectl/internal/logging"
	"github.com/muurk/acectl/internal/transport"
	"github.com/muurk/acectl/internal/ui"
	"github.com/muurk/acectl/internal/version"
)

// skipSetup marks commands that run without loading the config file
const skipSetup = "acectl/skip-setup"

// reportedError is an error the printer has already shown to the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// app holds the global flags and the state shared by all subcommands
type app struct {
	// Persistent flags
	configPath string
	port       string
	baud       int
	retries    int
	retryDelay time.Duration
	logLevel   string
	format     string
	dryRun     bool

	cfg     *config.Config
	printer *ui.Printer

	// newChannel builds the channel for the configured target
	newChannel func(cfg *config.Config) transport.Channel
}

func newRootCmd() *cobra.Command {
	return (&app{newChannel: defaultChannel}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "acectl",
		Short: "ACE filament unit control utility",
		Long: `Control an ACE filament-handling unit over its USB serial link.

Every command opens the port, sends one request, prints the unit's
response and closes the port again. Requests that time out are retried;
corrupted responses fail immediately.

Settings come from ~/.config/acectl/config.yaml (or --config), and the
global flags below override the file.`,
		Version: version.Version,
		Example: `  # Query the unit
  acectl status

  # Feed 100mm of filament from slot 0 at 25mm/s
  acectl feed 0 100 25

  # Dry filament at 50°C for 4 hours
  acectl start-drying 50 240

  # Try the commands without hardware
  acectl --dry-run --format pretty status`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	// Disable automatic completion command generation
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (.yaml or .toml; default ~/.config/acectl/config.yaml)")
	flags.StringVarP(&a.port, "port", "p", "", "Serial port or ws:// bridge URL")
	flags.IntVar(&a.baud, "baud", 0, "Serial baud rate")
	flags.IntVar(&a.retries, "retries", 0, "Attempts per command")
	flags.DurationVar(&a.retryDelay, "retry-delay", 0, "Delay between attempts (e.g., 500ms, 2s)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); logs go to stderr")
	flags.StringVarP(&a.format, "format", "f", "json", "Output format (json, pretty, auto)")
	flags.BoolVar(&a.dryRun, "dry-run", false, "Talk to a built-in emulator instead of the unit")

	root.AddCommand(a.deviceCommands()...)
	root.AddCommand(a.newWatchCmd())
	root.AddCommand(a.newBridgeCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// setup loads the config, applies flag overrides and prepares logging and output
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = a.port
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = a.baud
	}
	if flags.Changed("retries") {
		cfg.Retry.Attempts = a.retries
	}
	if flags.Changed("retry-delay") {
		cfg.Retry.Delay = a.retryDelay
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := logging.Initialize(cfg.Log.Level); err != nil {
		return err
	}

	format, err := ui.ParseFormat(a.format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.printer = ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), format)

	logging.Debug("Settings loaded",
		zap.String("port", cfg.Serial.Port),
		zap.Int("baud", cfg.Serial.Baud),
		zap.Int("attempts", cfg.Retry.Attempts),
		zap.Duration("retry_delay", cfg.Retry.Delay),
		zap.Bool("dry_run", a.dryRun),
	)
	return nil
}

func defaultChannel(cfg *config.Config) transport.Channel {
	return transport.New(cfg.Serial.Port, transport.Options{BaudRate: cfg.Serial.Baud})
}

// connect opens a driver on the configured channel
func (a *app) connect() (*driver.Driver, error) {
	var ch transport.Channel
	if a.dryRun {
		ch = newEmulator()
	} else {
		ch = a.newChannel(a.cfg)
	}

	drv := driver.New(ch,
		driver.WithRetry(a.cfg.Retry.Attempts, a.cfg.Retry.Delay),
		driver.WithTimeouts(a.cfg.Serial.WriteTimeout, a.cfg.Serial.ReadTimeout),
	)
	if err := drv.Connect(); err != nil {
		return nil, err
	}
	return drv, nil
}

func (a *app) disconnect(drv *driver.Driver) {
	if err := drv.Disconnect(); err != nil {
		logging.Warn("Disconnect failed", zap.String("target", drv.Target()), zap.Error(err))
	}
}

// execute runs a single command and prints its response
func (a *app) execute(ctx context.Context, c driver.Command) error {
	drv, err := a.connect()
	if err != nil {
		return a.fail(c.Method, err)
	}
	defer a.disconnect(drv)

	resp, err := drv.Run(ctx, c)
	if err != nil {
		return a.fail(c.Method, err)
	}
	return a.printer.PrintResponse(c.Method, resp)
}

// fail prints err and marks it as reported
func (a *app) fail(method string, err error) error {
	a.printer.PrintError(method, err)
	return &reportedError{err: err}
}

// commandRunner adapts a command builder to a cobra RunE
func (a *app) commandRunner(build func(args []string) (driver.Command, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		// Suppress usage on execution errors (we're past argument parsing)
		cmd.SilenceUsage = true

		c, err := build(args)
		if err != nil {
			return a.fail(cmd.Name(), err)
		}
		return a.execute(cmd.Context(), c)
	}
}

// intArg parses a positional integer argument
func intArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", name, value)
	}
	return n, nil
}

// floatArg parses a positional decimal argument
func floatArg(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a number", name, value)
	}
	return f, nil
}

// intArgs parses positional integers in order
func intArgs(names []string, values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := intArg(names[i], v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
