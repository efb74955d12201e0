package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/acectl/internal/driver"
)

// deviceCommands returns one subcommand per unit operation
func (a *app) deviceCommands() []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "status",
			Short: "Show unit status",
			Long: `Query the unit status: slot states, dryer state, temperature
and feed assist counters.`,
			Args: cobra.NoArgs,
			RunE: a.commandRunner(func([]string) (driver.Command, error) {
				return driver.GetStatus(), nil
			}),
		},
		a.slotCmd("filament-info", "Show filament info for a slot", driver.GetFilamentInfo),
		a.slotCmd("park-to-toolhead", "Park filament from a slot at the toolhead", driver.ParkToToolhead),
		{
			Use:   "feed SLOT LENGTH [SPEED]",
			Short: "Feed filament from a slot",
			Long: `Feed LENGTH millimetres of filament from SLOT at SPEED mm/s.
SPEED defaults to defaults.feed_speed from the config file.`,
			Example: `  acectl feed 0 100
  acectl feed 2 50 10`,
			Args: cobra.RangeArgs(2, 3),
			RunE: a.commandRunner(func(args []string) (driver.Command, error) {
				slot, length, speed, err := a.motionArgs(args, a.cfg.Defaults.FeedSpeed)
				if err != nil {
					return driver.Command{}, err
				}
				return driver.Feed(slot, length, speed)
			}),
		},
		{
			Use:   "retract SLOT LENGTH [SPEED]",
			Short: "Retract filament into a slot",
			Long: `Retract LENGTH millimetres of filament into SLOT at SPEED mm/s.
SPEED defaults to defaults.retract_speed from the config file.`,
			Args: cobra.RangeArgs(2, 3),
			RunE: a.commandRunner(func(args []string) (driver.Command, error) {
				slot, length, speed, err := a.motionArgs(args, a.cfg.Defaults.RetractSpeed)
				if err != nil {
					return driver.Command{}, err
				}
				return driver.Retract(slot, length, speed)
			}),
		},
		a.slotCmd("stop-feed", "Stop feeding a slot", driver.StopFeed),
		a.slotCmd("stop-retract", "Stop retracting a slot", driver.StopRetract),
		a.speedCmd("update-feed-speed", "Change the speed of a running feed", driver.UpdateFeedSpeed),
		a.speedCmd("update-retract-speed", "Change the speed of a running retract", driver.UpdateRetractSpeed),
		a.slotCmd("enable-feed-assist", "Enable feed assist for a slot", driver.EnableFeedAssist),
		a.slotCmd("disable-feed-assist", "Disable feed assist for a slot", driver.DisableFeedAssist),
		{
			Use:   "start-drying TEMP DURATION",
			Short: "Start the filament dryer",
			Long: `Run the dryer at TEMP °C for DURATION minutes. TEMP may not exceed
defaults.max_dryer_temperature from the config file.`,
			Example: "  acectl start-drying 50 240",
			Args:    cobra.ExactArgs(2),
			RunE: a.commandRunner(func(args []string) (driver.Command, error) {
				n, err := intArgs([]string{"TEMP", "DURATION"}, args)
				if err != nil {
					return driver.Command{}, err
				}
				limits := driver.Limits{MaxDryerTemperature: a.cfg.Defaults.MaxDryerTemperature}
				return limits.StartDrying(n[0], n[1])
			}),
		},
		{
			Use:   "stop-drying",
			Short: "Stop the filament dryer",
			Args:  cobra.NoArgs,
			RunE: a.commandRunner(func([]string) (driver.Command, error) {
				return driver.StopDrying(), nil
			}),
		},
		{
			Use:   "debug-send METHOD",
			Short: "Send a bare method name",
			Long: `Send METHOD with no parameters and print whatever the unit answers.
Useful for probing firmware for undocumented methods.`,
			Example: "  acectl debug-send get_info",
			Args:    cobra.ExactArgs(1),
			RunE: a.commandRunner(func(args []string) (driver.Command, error) {
				return driver.RawMethod(args[0])
			}),
		},
		{
			Use:   "call METHOD [JSON-PARAMS]",
			Short: "Send a method with JSON parameters",
			Long: `Send METHOD with an optional JSON object as its parameters.
No argument checking is done beyond parsing the JSON.`,
			Example: `  acectl call get_filament_info '{"slot": 1}'`,
			Args:    cobra.RangeArgs(1, 2),
			RunE: a.commandRunner(func(args []string) (driver.Command, error) {
				c, err := driver.RawMethod(args[0])
				if err != nil || len(args) == 1 {
					return c, err
				}
				params, err := parseParams(args[1])
				if err != nil {
					return driver.Command{}, err
				}
				c.Params = params
				return c, nil
			}),
		},
	}
}

// slotCmd builds a command that takes a single SLOT argument
func (a *app) slotCmd(use, short string, build func(slot int) (driver.Command, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SLOT",
		Short: short,
		Long:  fmt.Sprintf("%s. SLOT is 0 to %d.", short, driver.SlotCount-1),
		Args:  cobra.ExactArgs(1),
		RunE: a.commandRunner(func(args []string) (driver.Command, error) {
			slot, err := intArg("SLOT", args[0])
			if err != nil {
				return driver.Command{}, err
			}
			return build(slot)
		}),
	}
}

// speedCmd builds a command that takes SLOT and SPEED arguments
func (a *app) speedCmd(use, short string, build func(slot, speed int) (driver.Command, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SLOT SPEED",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: a.commandRunner(func(args []string) (driver.Command, error) {
			n, err := intArgs([]string{"SLOT", "SPEED"}, args)
			if err != nil {
				return driver.Command{}, err
			}
			return build(n[0], n[1])
		}),
	}
}

// motionArgs parses SLOT LENGTH [SPEED], falling back to defaultSpeed.
// LENGTH may be fractional.
func (a *app) motionArgs(args []string, defaultSpeed int) (slot int, length float64, speed int, err error) {
	if slot, err = intArg("SLOT", args[0]); err != nil {
		return 0, 0, 0, err
	}
	if length, err = floatArg("LENGTH", args[1]); err != nil {
		return 0, 0, 0, err
	}
	speed = defaultSpeed
	if len(args) == 3 {
		if speed, err = intArg("SPEED", args[2]); err != nil {
			return 0, 0, 0, err
		}
	}
	return slot, length, speed, nil
}

// parseParams decodes a JSON object given on the command line
func parseParams(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("invalid JSON-PARAMS: %w", err)
	}
	if params == nil {
		return nil, fmt.Errorf("invalid JSON-PARAMS: must be an object")
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON-PARAMS: trailing data after object")
	}
	return params, nil
}
