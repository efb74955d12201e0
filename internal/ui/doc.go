// Package ui renders acectl output in the terminal.
//
// Commands print a single decoded response and exit. The Printer picks
// between two formats:
//
//   - json: the response as indented JSON on stdout, for scripts
//   - pretty: a Lipgloss result box with the response flattened into
//     dotted key/value rows
//
// Failures are written to stderr together with the troubleshooting hint
// for the driver error category.
//
// # Watch View
//
// WatchModel is a Bubble Tea model that polls get_status on an interval and
// redraws the latest response. It shows a spinner while a poll is in flight,
// a progress bar while the dryer is running, and a key help footer
// (r refreshes, q quits).
//
//	model := ui.NewWatchModel(ctx, drv.Target(), 2*time.Second, poll)
//	err := ui.RunWatch(ctx, model)
//
// # Logging Integration
//
// Zap logging is silent unless ACECTL_LOG_LEVEL or --log-level is set, so
// the styled output is not interleaved with log lines. Logs go to stderr.
package ui
