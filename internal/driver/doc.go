// Package driver runs command/response exchanges with an ACE filament unit.
//
// A Driver owns one transport.Channel. Execute encodes a request frame,
// writes it, reads one response frame and decodes its JSON payload. Only one
// exchange is in flight per Driver; concurrent callers block on its lock.
//
// # Retry Policy
//
// Transport failures (write errors, read timeouts, short reads) are retried
// with a fixed delay, up to the configured attempt budget. When the budget
// runs out the error has type ErrTypeExhaustedRetries and wraps the last
// transport error. A response that arrives but fails validation (bad framing,
// checksum mismatch, invalid JSON) is returned after that single attempt.
//
// # Usage Example
//
//	ch := transport.New("/dev/ttyACM0", transport.Options{})
//	d := driver.New(ch, driver.WithRetry(3, 2*time.Second))
//	if err := d.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Disconnect()
//
//	status, err := d.Execute(ctx, "get_status", nil)
//
//	cmd, err := driver.Feed(0, 100, 20)
//	if err == nil {
//	    _, err = d.Run(ctx, cmd)
//	}
//
// # Errors
//
// All errors returned by the driver are *Error values. Use the IsXxx helpers
// to branch on the category, Hint for troubleshooting text and ShortMessage
// for a one-line summary.
package driver
