package config

import (
	"strings"
	"time"
)

const (
	// DefaultBroadcastAddress is where discovery probes are sent
	DefaultBroadcastAddress = "192.168.1.255"

	// DefaultDiscoverTimeout is the discovery wait in seconds
	DefaultDiscoverTimeout = 10

	// DefaultPollInterval is the state poll interval in seconds
	DefaultPollInterval = 2

	// DefaultUsername is the factory user of the web module
	DefaultUsername = "admin"
)

// Registry represents the entire user configuration file.
// It stores user-defined metadata for web modules and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Modules     map[string]*Module `yaml:"modules,omitempty"` // Keyed by module MAC address
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Module represents what the user chose to remember about one web module.
// The element inventory itself is never stored; it is fetched on every run.
type Module struct {
	Nickname string            `yaml:"nickname,omitempty"`  // User-friendly name, usable as --module
	LastIP   string            `yaml:"last_ip,omitempty"`   // Last known IP address
	LastSeen time.Time         `yaml:"last_seen,omitempty"` // Last discovery/connection time
	User     string            `yaml:"user,omitempty"`      // Login user for this module
	HTTPS    bool              `yaml:"https,omitempty"`     // Use the secured interface
	Labels   map[string]string `yaml:"labels,omitempty"`    // Element id -> local label
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	BroadcastAddress string     `yaml:"broadcast_address"`
	DiscoverTimeout  int        `yaml:"discover_timeout"` // seconds
	PollInterval     int        `yaml:"poll_interval"`    // seconds
	DefaultAuth      *AuthPrefs `yaml:"default_auth,omitempty"`
}

// AuthPrefs represents default authentication preferences.
// Note: Passwords are NEVER stored - they are always prompted from the user.
type AuthPrefs struct {
	Username string `yaml:"username"`
}

func defaultPreferences() *Preferences {
	return &Preferences{
		BroadcastAddress: DefaultBroadcastAddress,
		DiscoverTimeout:  DefaultDiscoverTimeout,
		PollInterval:     DefaultPollInterval,
		DefaultAuth:      &AuthPrefs{Username: DefaultUsername},
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Modules:     make(map[string]*Module),
		Preferences: defaultPreferences(),
	}
}

// normalize fills in anything a hand-edited file left out
func (r *Registry) normalize() {
	modules := make(map[string]*Module, len(r.Modules))
	for mac, module := range r.Modules {
		if module != nil {
			modules[NormalizeMAC(mac)] = module
		}
	}
	r.Modules = modules

	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
		return
	}

	defaults := defaultPreferences()
	if r.Preferences.BroadcastAddress == "" {
		r.Preferences.BroadcastAddress = defaults.BroadcastAddress
	}
	if r.Preferences.DiscoverTimeout <= 0 {
		r.Preferences.DiscoverTimeout = defaults.DiscoverTimeout
	}
	if r.Preferences.PollInterval <= 0 {
		r.Preferences.PollInterval = defaults.PollInterval
	}
	if r.Preferences.DefaultAuth == nil {
		r.Preferences.DefaultAuth = defaults.DefaultAuth
	}
}

// DiscoverTimeoutDuration returns the discovery wait
func (p *Preferences) DiscoverTimeoutDuration() time.Duration {
	return time.Duration(p.DiscoverTimeout) * time.Second
}

// PollIntervalDuration returns the state poll interval
func (p *Preferences) PollIntervalDuration() time.Duration {
	return time.Duration(p.PollInterval) * time.Second
}

// NormalizeMAC upper-cases a MAC address so registry keys are stable
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// GetModule retrieves module metadata by MAC address.
// Returns nil if the module doesn't exist in the registry.
func (r *Registry) GetModule(mac string) *Module {
	return r.Modules[NormalizeMAC(mac)]
}

// EnsureModule ensures a module entry exists in the registry.
// Returns the module entry (existing or newly created).
func (r *Registry) EnsureModule(mac string) *Module {
	if r.Modules == nil {
		r.Modules = make(map[string]*Module)
	}

	key := NormalizeMAC(mac)
	if module, exists := r.Modules[key]; exists {
		return module
	}

	module := &Module{}
	r.Modules[key] = module
	return module
}

// UpdateModuleLastSeen updates the last seen timestamp and IP for a module.
func (r *Registry) UpdateModuleLastSeen(mac, ip string) {
	module := r.EnsureModule(mac)
	module.LastSeen = time.Now()
	module.LastIP = ip
}

// SetModuleNickname sets a user-friendly nickname for a module.
func (r *Registry) SetModuleNickname(mac, nickname string) {
	r.EnsureModule(mac).Nickname = nickname
}

// SetElementLabel stores a local label for one element of a module. An
// empty label removes it.
func (r *Registry) SetElementLabel(mac, elementID, label string) {
	module := r.EnsureModule(mac)
	if label == "" {
		delete(module.Labels, elementID)
		return
	}
	if module.Labels == nil {
		module.Labels = make(map[string]string)
	}
	module.Labels[elementID] = label
}

// FindModule resolves a nickname or MAC address to a registry entry.
// Nicknames match case-insensitively.
func (r *Registry) FindModule(ref string) (string, *Module) {
	if module := r.GetModule(ref); module != nil {
		return NormalizeMAC(ref), module
	}
	for mac, module := range r.Modules {
		if module.Nickname != "" && strings.EqualFold(module.Nickname, strings.TrimSpace(ref)) {
			return mac, module
		}
	}
	return "", nil
}
