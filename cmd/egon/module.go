package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/config"
	"github.com/jimm98y/EgonAPI/internal/discovery"
	"github.com/jimm98y/EgonAPI/internal/egon"
	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/ui"
)

// PasswordEnvVar supplies the module password without a prompt
const PasswordEnvVar = "EGON_PASSWORD"

// Global flags shared by the module commands
var (
	moduleRef    string
	broadcast    string
	useHTTPS     bool
	username     string
	password     string
	logLevel     string
	outputFormat string
	timeoutSecs  int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&moduleRef, "module", "", "Module IP address, MAC or nickname (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&broadcast, "broadcast", "", "Broadcast address for discovery (default from config, 192.168.1.255)")
	rootCmd.PersistentFlags().BoolVar(&useHTTPS, "https", false, "Use the secured interface on port 4536")
	rootCmd.PersistentFlags().StringVar(&username, "user", "", "Module user (default from config, admin)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Module password (or set "+PasswordEnvVar+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, text, compact, json)")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "Discovery timeout in seconds (default from config, 10)")
}

// target is a resolved module plus what the registry knows about it
type target struct {
	desc     *discovery.Descriptor
	mac      string
	entry    *config.Module
	registry *config.Registry
}

func (t *target) labels() ui.Labels {
	if t.entry == nil {
		return nil
	}
	return ui.Labels(t.entry.Labels)
}

// displayName is the nickname when one is saved
func (t *target) displayName() string {
	if t.entry != nil && t.entry.Nickname != "" {
		return t.entry.Nickname
	}
	return t.desc.IPAddr
}

func loadRegistry() *config.Registry {
	registry, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Failed to load config, using defaults", zap.Error(err))
		return config.NewRegistry()
	}
	return registry
}

func broadcastAddress(registry *config.Registry) string {
	if broadcast != "" {
		return broadcast
	}
	return registry.Preferences.BroadcastAddress
}

func discoverTimeout(registry *config.Registry) time.Duration {
	if timeoutSecs > 0 {
		return time.Duration(timeoutSecs) * time.Second
	}
	return registry.Preferences.DiscoverTimeoutDuration()
}

// resolveTarget finds the module named by --module, or discovers one
func resolveTarget(ctx context.Context) (*target, error) {
	registry := loadRegistry()

	if moduleRef != "" {
		if mac, entry := registry.FindModule(moduleRef); entry != nil {
			if entry.LastIP == "" {
				return nil, fmt.Errorf("module %s has no known address, run 'egon discover'", moduleRef)
			}
			desc, err := discovery.NewDescriptor(entry.LastIP)
			if err != nil {
				return nil, err
			}
			desc.MAC = mac
			return &target{desc: desc, mac: mac, entry: entry, registry: registry}, nil
		}

		desc, err := discovery.NewDescriptor(moduleRef)
		if err != nil {
			return nil, fmt.Errorf("unknown module %q: not an IP address or a saved nickname", moduleRef)
		}
		return &target{desc: desc, registry: registry}, nil
	}

	addr := broadcastAddress(registry)
	fmt.Fprintf(os.Stderr, "No module specified, discovering on %s...\n", addr)

	desc, err := discovery.Discover(ctx, addr, discoverTimeout(registry))
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if desc == nil {
		return nil, fmt.Errorf("no module answered on %s, use --module to specify one", addr)
	}

	return remember(registry, desc), nil
}

// remember records a discovered module in the registry
func remember(registry *config.Registry, desc *discovery.Descriptor) *target {
	t := &target{desc: desc, registry: registry}
	if desc.MAC == "" {
		return t
	}

	t.mac = config.NormalizeMAC(desc.MAC)
	registry.UpdateModuleLastSeen(t.mac, desc.IPAddr)
	t.entry = registry.GetModule(t.mac)
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save config", zap.Error(err))
	}
	return t
}

// newClient builds an egon.Client, prompting for the password when needed
func newClient(t *target) (*egon.Client, error) {
	user := username
	if user == "" && t.entry != nil {
		user = t.entry.User
	}
	if user == "" && t.registry.Preferences.DefaultAuth != nil {
		user = t.registry.Preferences.DefaultAuth.Username
	}
	if user == "" {
		user = config.DefaultUsername
	}

	pw := password
	if pw == "" {
		pw = os.Getenv(PasswordEnvVar)
	}
	if pw == "" {
		var err error
		pw, err = ui.PromptPassword(os.Stdin, os.Stderr, user)
		if err != nil {
			return nil, err
		}
	}

	var opts []egon.Option
	if useHTTPS || (t.entry != nil && t.entry.HTTPS) {
		opts = append(opts, egon.WithHTTPS())
	}
	return egon.NewClient(t.desc, user, pw, opts...), nil
}

func validateFormat() error {
	switch strings.ToLower(outputFormat) {
	case "detailed", "text", "compact", "json":
		return nil
	default:
		return fmt.Errorf("invalid --format %q (use detailed, text, compact or json)", outputFormat)
	}
}
