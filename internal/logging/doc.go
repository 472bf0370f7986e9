// Package logging provides structured logging for the Egon client tools.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used throughout the client: discovery packets, HTTP
// exchanges with the web module, and element state changes.
//
// # Log Levels
//
//   - Debug: Raw discovery packets, every HTTP request (token redacted)
//   - Info: Discovery results, configuration bootstrap, state changes
//   - Warn: Retries, dropped groups, failed refresh calls
//   - Error: Failures surfaced to the user
//
// # Silent by Default
//
// CLI commands should not print log output unless asked to. When no level is
// passed to Initialize and EGON_LOG_LEVEL is unset, a no-op logger is
// installed:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
//	logging.Info("Module discovered",
//	    zap.String("ip", desc.IPAddr),
//	    zap.String("mac", desc.MAC),
//	)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
