// Package ui provides terminal UI components for the egon CLI.
//
// Lipgloss renders the one-shot output (command headers, result boxes,
// element tables with state colors). Bubble Tea drives the live dashboard
// behind "egon watch --tui", which polls a module on an interval and sends
// actions to the selected element.
//
// # Components
//
//   - Header: command banner showing operation name and parameters
//   - Result: success/failure/warning boxes with styled details
//   - Printer: writes the components above to a writer
//   - DashboardModel: Bubble Tea model for the live view
//   - PromptPassword: hidden password prompt (falls back to a line read
//     when stdin is not a terminal)
//
// # Logging Integration
//
// Logging is controlled by the EGON_LOG_LEVEL environment variable or the
// --log-level flag. When neither is set zap stays silent so styled output
// is not interleaved with log lines.
package ui
