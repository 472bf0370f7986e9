package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jimm98y/EgonAPI/internal/bridge"
	"github.com/jimm98y/EgonAPI/internal/discovery"
	"github.com/jimm98y/EgonAPI/internal/egon"
	"github.com/jimm98y/EgonAPI/internal/ui"
	"github.com/jimm98y/EgonAPI/internal/webmodule"
)

// Command flags
var (
	nickname      string
	watchInterval time.Duration
	watchTUI      bool
	bridgeHost    string
	bridgePort    int
	advertise     bool
	natsURL       string
	natsSubject   string
)

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(bridgesCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(actionCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(bridgeCmd)
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var moduleTroubleshooting = []string{
	"Check that the module is powered on and on the same network",
	"Verify the user and password used for the web interface",
	"Use --https if the module only accepts the secured interface",
	"Run with --log-level debug to see every request",
}

// configurationTroubleshooting puts a tip for the last failure ahead of the
// general list
func configurationTroubleshooting(err error) []string {
	var tips []string
	switch {
	case errors.Is(err, egon.ErrUnauthorized):
		tips = append(tips, "The module rejected the login; check --user and "+PasswordEnvVar)
	case webmodule.IsParseError(err):
		tips = append(tips, "The address answered with something other than Egon data; check --module")
	case webmodule.IsRetryable(err):
		tips = append(tips, "The module may be busy; try again in a few seconds")
	}
	return append(tips, moduleTroubleshooting...)
}

// discoverCmd finds a module by UDP broadcast
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find a web module on the local network",
	Long: `Broadcast a discovery probe and print the first module that answers.

The module is remembered in the config file, so later commands can name it
with --module <mac> or, when --name is given, --module <nickname>.`,
	Example: `  # Probe the default broadcast address
  egon discover

  # Probe another subnet and save a nickname
  egon discover --broadcast 10.0.0.255 --name house`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&nickname, "name", "", "Save a nickname for the discovered module")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	registry := loadRegistry()
	addr := broadcastAddress(registry)
	timeout := discoverTimeout(registry)
	printer := ui.NewPrinter(os.Stdout)

	if outputFormat != "json" {
		printer.PrintHeader("Module discovery", "egon discover", map[string]string{
			"Broadcast": addr,
			"Timeout":   timeout.String(),
		})
	}

	desc, err := discovery.Discover(ctx, addr, timeout)
	if err != nil {
		printer.PrintError("Discovery failed", err, []string{
			"Check that UDP port 2008 is not used by another program",
			"Verify the broadcast address matches your subnet",
		})
		return err
	}
	if desc == nil {
		err := fmt.Errorf("no module answered within %s", timeout)
		printer.PrintError("No module found", err, []string{
			"Check that the module is powered on and on the same subnet",
			"Try --broadcast with your subnet's broadcast address",
			"Increase --timeout on slow networks",
		})
		return err
	}

	t := remember(registry, desc)
	if nickname != "" && t.mac != "" {
		registry.SetModuleNickname(t.mac, nickname)
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save nickname: %w", err)
		}
	}

	if outputFormat == "json" {
		return writeJSON(desc)
	}

	details := map[string]string{
		"IP":       desc.IPAddr,
		"MAC":      desc.MAC,
		"Port":     desc.Port,
		"Mask":     desc.Mask,
		"Gateway":  desc.Gateway,
		"DNS":      desc.DNS1,
		"Firmware": desc.Version,
	}
	if nickname != "" {
		details["Nickname"] = nickname
	}
	printer.PrintSuccess("Module found", details)
	return nil
}

// bridgesCmd lists running bridges found over mDNS
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "List egon bridges advertised over mDNS",
	RunE:  runBridges,
}

func runBridges(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	scanner := discovery.NewBridgeScanner()
	if timeoutSecs > 0 {
		scanner.Timeout = time.Duration(timeoutSecs) * time.Second
	}

	fmt.Fprintf(os.Stderr, "Browsing for bridges (timeout: %s)...\n\n", scanner.Timeout)
	bridges, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(bridges)
	}
	if len(bridges) == 0 {
		fmt.Println("No bridges found.")
		fmt.Println("\nStart one with 'egon bridge --advertise'.")
		return nil
	}

	fmt.Printf("Found %d bridge(s):\n\n", len(bridges))
	for i, b := range bridges {
		fmt.Printf("%d. %s\n", i+1, b.Instance)
		fmt.Printf("   Module:    %s (%s)\n", b.ModuleIP, b.MAC)
		fmt.Printf("   Stream:    %s\n", b.WebSocketURL())
		if v := b.Metadata[discovery.TXTVersion]; v != "" {
			fmt.Printf("   Version:   %s\n", v)
		}
		fmt.Println()
	}
	return nil
}

// showCmd prints the element inventory with current values
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show elements and groups of a module",
	Example: `  # Styled table
  egon show --module 192.168.1.20

  # Plain text for scripts
  egon show --format compact

  # JSON
  egon show --format json`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, client, err := connect(ctx)
	if err != nil {
		return err
	}

	cfg, err := client.Initialize(ctx)
	if err != nil {
		ui.NewPrinter(os.Stdout).PrintError("Failed to load configuration", err, configurationTroubleshooting(err))
		return err
	}

	switch outputFormat {
	case "json":
		return writeJSON(cfg.View())
	case "compact":
		fmt.Println(cfg.FormatCompact())
	case "text":
		fmt.Println(cfg.FormatDetailed())
	default:
		printer := ui.NewPrinter(os.Stdout)
		printer.PrintHeader(t.displayName(), "egon show", map[string]string{
			"Module":   t.desc.IPAddr,
			"Elements": cfg.Summary(),
		})
		printer.PrintConfiguration(cfg, t.labels())
	}
	return nil
}

// watchCmd follows state changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow element state changes",
	Long: `Poll the module on an interval and print every element whose value
changed. With --tui a live dashboard is shown instead, from which actions
can be sent to the selected element.`,
	Example: `  # Print changes every 2 seconds
  egon watch

  # Live dashboard
  egon watch --tui

  # JSON lines for other programs
  egon watch --format json --interval 5s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default from config, 2s)")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show a live dashboard")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, client, err := connect(ctx)
	if err != nil {
		return err
	}

	cfg, err := client.Initialize(ctx)
	if err != nil {
		ui.NewPrinter(os.Stdout).PrintError("Failed to load configuration", err, configurationTroubleshooting(err))
		return err
	}

	interval := watchInterval
	if interval <= 0 {
		interval = t.registry.Preferences.PollIntervalDuration()
	}

	if watchTUI {
		model := ui.NewDashboard(ctx, t.displayName(), client, cfg, t.labels(), interval)
		return ui.RunDashboard(ctx, model)
	}

	printer := ui.NewPrinter(os.Stdout)
	if outputFormat != "json" {
		printer.PrintHeader(t.displayName(), "egon watch", map[string]string{
			"Module":   t.desc.IPAddr,
			"Elements": cfg.Summary(),
			"Interval": interval.String(),
		})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			delta, err := client.GetCurrentState(ctx, cfg)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(os.Stderr, "%s poll failed: %v\n", ui.FailureMarker, err)
				continue
			}
			if len(delta) == 0 {
				continue
			}

			now := time.Now()
			switch outputFormat {
			case "json":
				if err := writeJSONLine(bridge.NewStateEvent(t.mac, delta, now)); err != nil {
					return err
				}
			case "compact", "text":
				fmt.Print(egon.FormatDelta(delta))
			default:
				printer.PrintDelta(delta, t.labels(), now)
			}
		}
	}
}

// actionCmd sends one action to one element
var actionCmd = &cobra.Command{
	Use:   "action <element-id> <action>",
	Short: "Send an action to an element",
	Long: `Send an action to a single element.

Known actions are ON and OFF for lights and UP, DOWN and STOP for blinds.
Actions are case-insensitive. Other values are passed to the module as
given, since the module decides what it accepts.`,
	Example: `  # Switch light 7 on
  egon action 7 on

  # Stop blind 12
  egon action 12 stop --module house`,
	Args: cobra.ExactArgs(2),
	RunE: runAction,
}

func runAction(cmd *cobra.Command, args []string) error {
	elementID := strings.TrimSpace(args[0])
	action, known := egon.ParseAction(args[1])
	if elementID == "" || action == "" {
		return errors.New("element id and action must not be empty")
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, client, err := connect(ctx)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	if !known {
		printer.PrintWarning("Unrecognized action", map[string]string{
			"Action": string(action),
			"Known":  fmt.Sprint(egon.Actions),
		})
	}

	details := map[string]string{
		"Module":  t.displayName(),
		"Element": elementID,
		"Action":  string(action),
	}
	if label, ok := t.labels()[elementID]; ok {
		details["Label"] = label
	}

	if !client.ExecuteAction(ctx, elementID, action) {
		err := fmt.Errorf("module rejected %s for element %s", action, elementID)
		printer.PrintError("Action failed", err, append([]string{
			"Check the element id with 'egon show'",
			"Blinds accept UP, DOWN and STOP; lights accept ON and OFF",
		}, moduleTroubleshooting[:2]...))
		return err
	}

	printer.PrintSuccess("Action executed", details)
	return nil
}

// labelCmd stores a local label for an element
var labelCmd = &cobra.Command{
	Use:   "label <element-id> [label]",
	Short: "Set or clear a local label for an element",
	Long: `Labels are stored in the config file and shown instead of the name the
module reports. Omit the label to remove it. The module must be known by
MAC address, so run 'egon discover' first.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLabel,
}

func runLabel(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	t, err := resolveTarget(ctx)
	if err != nil {
		return err
	}
	if t.mac == "" {
		return errors.New("module MAC unknown, run 'egon discover' or use --module <nickname>")
	}

	label := ""
	if len(args) == 2 {
		label = strings.TrimSpace(args[1])
	}
	t.registry.SetElementLabel(t.mac, args[0], label)
	if err := t.registry.Save(); err != nil {
		return fmt.Errorf("failed to save label: %w", err)
	}

	if label == "" {
		fmt.Printf("%s Label removed from element %s\n", ui.SuccessMarker, args[0])
	} else {
		fmt.Printf("%s Element %s labelled %q\n", ui.SuccessMarker, args[0], label)
	}
	return nil
}

// bridgeCmd runs the streaming bridge
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Stream module state over WebSocket and NATS",
	Long: `Keep a module under observation and stream its state changes.

Clients connect to ws://<host>:<port>/ws, receive a snapshot and then one
"state" event per poll that changed something. Actions can be sent back
over the same connection. With --nats-url every state event is also
published to <subject>.<mac>.`,
	Example: `  # Serve on the default port
  egon bridge --module house

  # Advertise over mDNS and publish to NATS
  egon bridge --advertise --nats-url nats://localhost:4222`,
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeHost, "listen", "", "Listen address (empty = all interfaces)")
	bridgeCmd.Flags().IntVar(&bridgePort, "port", bridge.DefaultPort, "HTTP/WebSocket port")
	bridgeCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default from config, 2s)")
	bridgeCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the bridge over mDNS")
	bridgeCmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (publishing disabled if not specified)")
	bridgeCmd.Flags().StringVar(&natsSubject, "nats-subject", bridge.DefaultNATSSubject, "NATS subject prefix")
}

func runBridge(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	t, client, err := connect(ctx)
	if err != nil {
		return err
	}

	interval := watchInterval
	if interval <= 0 {
		interval = t.registry.Preferences.PollIntervalDuration()
	}

	srv := bridge.New(bridge.Config{
		Host:         bridgeHost,
		Port:         bridgePort,
		PollInterval: interval,
		Advertise:    advertise,
		NATSURL:      natsURL,
		NATSSubject:  natsSubject,
	}, client)

	fmt.Fprintf(os.Stderr, "Bridging %s on port %d (Ctrl+C to stop)\n", t.displayName(), bridgePort)
	return srv.Run(ctx)
}

// connect resolves the module and builds a client for it
func connect(ctx context.Context) (*target, *egon.Client, error) {
	t, err := resolveTarget(ctx)
	if err != nil {
		return nil, nil, err
	}
	client, err := newClient(t)
	if err != nil {
		return nil, nil, err
	}
	return t, client, nil
}

func writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func writeJSONLine(v any) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
