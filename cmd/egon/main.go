// Egon is a command-line client for Egon home-automation web modules.
//
// It finds a module on the local network by UDP broadcast, logs in, reads
// the element inventory and follows element state. Actions (ON, OFF, UP,
// DOWN, STOP) can be sent to single elements, and the bridge command keeps
// a module under observation and streams its state over WebSocket and NATS.
//
// Usage:
//
//	egon [command] [flags]
//
// See 'egon --help' for available commands.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/version"
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "egon",
	Short: "Egon Web Module Client",
	Long: `A command-line client for Egon home-automation web modules.

Discovers modules on the local network, reads their lights and blinds,
follows state changes and sends actions to single elements.

The module is found by UDP broadcast unless --module names an IP address,
a MAC address or a nickname saved with 'egon discover --name'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		outputFormat = strings.ToLower(strings.TrimSpace(outputFormat))
		return logging.Initialize(logLevel)
	},
	Example: `  # Find the module on the default broadcast address
  egon discover

  # Show every element
  egon show --module 192.168.1.20

  # Follow state changes in a live dashboard
  egon watch --tui

  # Lower blind 12
  egon action 12 down`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("egon %s\n", version.Full())
	},
}
