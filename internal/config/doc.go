// Package config provides user configuration management for the egon CLI.
//
// This package manages a YAML-based configuration file that remembers web
// modules the user has talked to (nickname, last address, login user,
// HTTPS preference, local element labels) and application preferences such
// as the discovery broadcast address and the poll interval.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/egon/config.yaml or $HOME/.config/egon/config.yaml
//   - macOS: $HOME/.config/egon/config.yaml
//   - Windows: %LOCALAPPDATA%\egon\config.yaml
//
// # Security
//
// IMPORTANT: This package NEVER stores module passwords or session tokens.
//
// # What is not stored
//
// The element and group inventory of a module is fetched fresh on every
// run and never written here.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.UpdateModuleLastSeen(desc.MAC, desc.IPAddr)
//	registry.SetModuleNickname(desc.MAC, "House")
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
