package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimm98y/EgonAPI/internal/egon"
	"github.com/jimm98y/EgonAPI/internal/webmodule"
)

const testRegistry = `version: 1
modules:
  "00:1e:c0:11:22:33":
    nickname: House
    last_ip: 192.168.1.20
    user: installer
    labels:
      "12": Bedroom blind
  "00:1E:C0:44:55:66":
    nickname: Garage
preferences:
  broadcast_address: 10.0.0.255
  discover_timeout: 3
  poll_interval: 5
`

// The registry is loaded once per process, so every case shares one file
func TestResolveTarget(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "egon"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "egon", "config.yaml"), []byte(testRegistry), 0o600))

	defer func() { moduleRef = "" }()

	t.Run("nickname", func(t *testing.T) {
		moduleRef = "house"
		target, err := resolveTarget(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "192.168.1.20", target.desc.IPAddr)
		assert.Equal(t, "00:1E:C0:11:22:33", target.mac)
		assert.Equal(t, "00:1E:C0:11:22:33", target.desc.MAC)
		assert.Equal(t, "House", target.displayName())
		assert.Equal(t, "Bedroom blind", target.labels()["12"])
	})

	t.Run("mac", func(t *testing.T) {
		moduleRef = "00:1e:c0:11:22:33"
		target, err := resolveTarget(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.20", target.desc.IPAddr)
	})

	t.Run("ip address", func(t *testing.T) {
		moduleRef = "192.168.1.30"
		target, err := resolveTarget(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.30", target.desc.IPAddr)
		assert.Empty(t, target.mac)
		assert.Nil(t, target.labels())
		assert.Equal(t, "192.168.1.30", target.displayName())
	})

	t.Run("nickname without address", func(t *testing.T) {
		moduleRef = "garage"
		_, err := resolveTarget(context.Background())
		assert.ErrorContains(t, err, "no known address")
	})

	t.Run("unknown", func(t *testing.T) {
		moduleRef = "attic"
		_, err := resolveTarget(context.Background())
		assert.ErrorContains(t, err, "unknown module")
	})

	t.Run("preferences", func(t *testing.T) {
		registry := loadRegistry()
		assert.Equal(t, "10.0.0.255", broadcastAddress(registry))
		assert.Equal(t, "3s", discoverTimeout(registry).String())

		broadcast, timeoutSecs = "192.168.0.255", 7
		defer func() { broadcast, timeoutSecs = "", 0 }()
		assert.Equal(t, "192.168.0.255", broadcastAddress(registry))
		assert.Equal(t, "7s", discoverTimeout(registry).String())
	})

	t.Run("client from env password", func(t *testing.T) {
		t.Setenv(PasswordEnvVar, "s3cret")
		moduleRef = "house"
		target, err := resolveTarget(context.Background())
		require.NoError(t, err)

		client, err := newClient(target)
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.20", client.Descriptor().IPAddr)
	})
}

func TestValidateFormat(t *testing.T) {
	defer func() { outputFormat = "detailed" }()

	for _, format := range []string{"detailed", "text", "compact", "json", "JSON"} {
		outputFormat = format
		assert.NoError(t, validateFormat(), format)
	}

	outputFormat = "xml"
	assert.Error(t, validateFormat())
}

func TestConfigurationTroubleshooting(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", fmt.Errorf("%w: %w", egon.ErrConfigurationUnavailable, egon.ErrUnauthorized), "rejected the login"},
		{"parse", fmt.Errorf("%w: %w", egon.ErrConfigurationUnavailable, webmodule.NewParseError("bad", nil)), "other than Egon data"},
		{"empty", fmt.Errorf("%w: %w", egon.ErrConfigurationUnavailable, webmodule.NewEmptyError("empty")), "may be busy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tips := configurationTroubleshooting(tt.err)
			require.Len(t, tips, len(moduleTroubleshooting)+1)
			assert.Contains(t, tips[0], tt.want)
		})
	}

	assert.Equal(t, moduleTroubleshooting, configurationTroubleshooting(egon.ErrDuplicateElement))
}
