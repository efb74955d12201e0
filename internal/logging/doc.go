// Package logging provides structured logging for acectl.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used by the transport and driver packages. Logging is
// silent unless a level is configured, so CLI output stays clean by default.
//
// # Log Levels
//
//   - Debug: Frame dumps, per-attempt exchange details, port settings
//   - Info: Connection lifecycle (open, close, redial)
//   - Warn: Transient failures that are being retried
//   - Error: Exchanges that failed for good
//
// # Structured Logging
//
//	logging.Info("Channel opened",
//	    zap.String("target", "/dev/ttyACM0"),
//	    zap.Int("baud", 115200),
//	)
//
// # Specialized Logging
//
// Connection events:
//
//	logging.LogConnection("/dev/ttyACM0", "opened")
//
// Frame traffic (hex and ASCII, Debug level only):
//
//	logging.LogFrame("/dev/ttyACM0", "tx", frame)
//
// # Configuration
//
// Initialize once at startup. An empty level falls back to the
// ACECTL_LOG_LEVEL environment variable, and an unset variable keeps the
// logger silent:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Logs are written to stderr so command output on stdout can be piped.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
