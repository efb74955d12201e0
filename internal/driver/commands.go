package driver

import (
	"context"
	"fmt"
	"math"
)

// Method names understood by the unit
const (
	MethodGetStatus            = "get_status"
	MethodGetFilamentInfo      = "get_filament_info"
	MethodFeedFilament         = "feed_filament"
	MethodUnwindFilament       = "unwind_filament"
	MethodStopFeedFilament     = "stop_feed_filament"
	MethodStopUnwindFilament   = "stop_unwind_filament"
	MethodUpdateFeedingSpeed   = "update_feeding_speed"
	MethodUpdateUnwindingSpeed = "update_unwinding_speed"
	MethodStartFeedAssist      = "start_feed_assist"
	MethodStopFeedAssist       = "stop_feed_assist"
	MethodDrying               = "drying"
	MethodDryingStop           = "drying_stop"
)

const (
	// SlotCount is the number of filament slots on the unit
	SlotCount = 4

	// DryingFanSpeed is the fan speed sent with every drying request
	DryingFanSpeed = 7000

	// DefaultMaxDryerTemperature caps StartDrying unless Limits says otherwise
	DefaultMaxDryerTemperature = 55
)

// Command is one RPC call: a method name and its parameters
type Command struct {
	Method string
	Params map[string]any
}

// String renders the command for logs
func (c Command) String() string {
	if len(c.Params) == 0 {
		return c.Method
	}
	return fmt.Sprintf("%s %v", c.Method, c.Params)
}

// Run executes a command on the driver
func (d *Driver) Run(ctx context.Context, cmd Command) (any, error) {
	return d.Execute(ctx, cmd.Method, cmd.Params)
}

// Limits bounds command arguments
type Limits struct {
	MaxDryerTemperature int // Celsius
}

// DefaultLimits returns the limits used by the package-level constructors
func DefaultLimits() Limits {
	return Limits{MaxDryerTemperature: DefaultMaxDryerTemperature}
}

func checkSlot(method string, slot int) error {
	if slot < 0 || slot >= SlotCount {
		return newValidationError(method, "slot %d out of range (0-%d)", slot, SlotCount-1)
	}
	return nil
}

func checkPositive(method, name string, v int) error {
	if v <= 0 {
		return newValidationError(method, "%s must be positive, got %d", name, v)
	}
	return nil
}

func checkLength(method string, length float64) error {
	if !(length > 0) || math.IsInf(length, 0) {
		return newValidationError(method, "length must be positive, got %g", length)
	}
	return nil
}

func slotCommand(method string, slot int) (Command, error) {
	if err := checkSlot(method, slot); err != nil {
		return Command{}, err
	}
	return Command{Method: method, Params: map[string]any{"slot": slot}}, nil
}

func motionCommand(method string, slot int, length float64, speed int) (Command, error) {
	if err := checkSlot(method, slot); err != nil {
		return Command{}, err
	}
	if err := checkLength(method, length); err != nil {
		return Command{}, err
	}
	if err := checkPositive(method, "speed", speed); err != nil {
		return Command{}, err
	}
	return Command{
		Method: method,
		Params: map[string]any{"slot": slot, "length": length, "speed": speed},
	}, nil
}

func speedCommand(method string, slot, speed int) (Command, error) {
	if err := checkSlot(method, slot); err != nil {
		return Command{}, err
	}
	if err := checkPositive(method, "speed", speed); err != nil {
		return Command{}, err
	}
	return Command{Method: method, Params: map[string]any{"slot": slot, "speed": speed}}, nil
}

// GetStatus queries the unit status
func GetStatus() Command {
	return Command{Method: MethodGetStatus}
}

// GetFilamentInfo queries the filament loaded in slot
func GetFilamentInfo(slot int) (Command, error) {
	return slotCommand(MethodGetFilamentInfo, slot)
}

// ParkToToolhead feeds filament from slot until it reaches the toolhead.
// The unit implements parking as feed assist.
func ParkToToolhead(slot int) (Command, error) {
	return slotCommand(MethodStartFeedAssist, slot)
}

// Feed pushes length millimetres of filament from slot at speed mm/s
func Feed(slot int, length float64, speed int) (Command, error) {
	return motionCommand(MethodFeedFilament, slot, length, speed)
}

// Retract pulls length millimetres of filament back into slot at speed mm/s
func Retract(slot int, length float64, speed int) (Command, error) {
	return motionCommand(MethodUnwindFilament, slot, length, speed)
}

// StopFeed stops an in-progress feed on slot
func StopFeed(slot int) (Command, error) {
	return slotCommand(MethodStopFeedFilament, slot)
}

// StopRetract stops an in-progress retract on slot
func StopRetract(slot int) (Command, error) {
	return slotCommand(MethodStopUnwindFilament, slot)
}

// UpdateFeedSpeed changes the speed of an in-progress feed
func UpdateFeedSpeed(slot, speed int) (Command, error) {
	return speedCommand(MethodUpdateFeedingSpeed, slot, speed)
}

// UpdateRetractSpeed changes the speed of an in-progress retract
func UpdateRetractSpeed(slot, speed int) (Command, error) {
	return speedCommand(MethodUpdateUnwindingSpeed, slot, speed)
}

// EnableFeedAssist turns on feed assist for slot
func EnableFeedAssist(slot int) (Command, error) {
	return slotCommand(MethodStartFeedAssist, slot)
}

// DisableFeedAssist turns off feed assist for slot
func DisableFeedAssist(slot int) (Command, error) {
	return slotCommand(MethodStopFeedAssist, slot)
}

// StartDrying starts the dryer at temp Celsius for duration minutes
func (l Limits) StartDrying(temp, duration int) (Command, error) {
	if err := checkPositive(MethodDrying, "temperature", temp); err != nil {
		return Command{}, err
	}
	if l.MaxDryerTemperature > 0 && temp > l.MaxDryerTemperature {
		return Command{}, newValidationError(MethodDrying,
			"temperature %d exceeds maximum %d", temp, l.MaxDryerTemperature)
	}
	if err := checkPositive(MethodDrying, "duration", duration); err != nil {
		return Command{}, err
	}
	return Command{
		Method: MethodDrying,
		Params: map[string]any{"temp": temp, "duration": duration, "fan_speed": DryingFanSpeed},
	}, nil
}

// StartDrying starts the dryer with the default temperature limit
func StartDrying(temp, duration int) (Command, error) {
	return DefaultLimits().StartDrying(temp, duration)
}

// StopDrying stops the dryer
func StopDrying() Command {
	return Command{Method: MethodDryingStop}
}

// RawMethod sends an arbitrary method name, byte for byte, without
// parameters. It is meant for diagnostics; only an empty name is rejected.
func RawMethod(method string) (Command, error) {
	if method == "" {
		return Command{}, newValidationError("", "method name is empty")
	}
	return Command{Method: method}, nil
}
