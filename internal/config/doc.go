// Package config provides user configuration for acectl.
//
// The configuration holds the link settings (port, baud rate, timeouts),
// the exchange retry policy and default command arguments. Files are YAML
// unless they end in .toml. Keys that are absent keep their Default()
// values; unknown keys are rejected.
//
// # Configuration File Location
//
// Without an explicit path the file is read from:
//   - Linux: $XDG_CONFIG_HOME/acectl/config.yaml or $HOME/.config/acectl/config.yaml
//   - macOS: $HOME/.config/acectl/config.yaml
//   - Windows: %LOCALAPPDATA%\acectl\config.yaml
//
// A missing default file is not an error.
//
// # Example
//
//	version: 1
//	serial:
//	  port: /dev/serial/by-id/usb-1a86_USB_Serial-if00-port0
//	  baud: 115200
//	  read_timeout: 5s
//	  write_timeout: 2s
//	retry:
//	  attempts: 3
//	  delay: 2s
//	defaults:
//	  feed_speed: 20
//	  retract_speed: 30
//	  park_hit_count: 2
//	  max_dryer_temperature: 55
package config
