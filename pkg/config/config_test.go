package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "", cfg.Device.Address)
	assert.False(t, cfg.Device.Simulation)
	assert.Equal(t, 5*time.Second, cfg.Device.Timeout)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, 3282, cfg.Server.Port)
	assert.Equal(t, 0, cfg.Log.Verbosity)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
device:
  address: "192.168.1.50"
  timeout: 2s

server:
  bind: "::1"
  port: 4000

log:
  verbosity: 2
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.50", cfg.Device.Address)
	assert.False(t, cfg.Device.Simulation)
	assert.Equal(t, 2*time.Second, cfg.Device.Timeout)
	assert.Equal(t, "::1", cfg.Server.Bind)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, "[::1]:4000", cfg.ListenAddress())
}

func TestLoad_PartialYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  simulation: true\nserver:\n  port: 0\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Device.Simulation)
	assert.Equal(t, 5*time.Second, cfg.Device.Timeout)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg := Default()
	cfg.Device.Address = "serial:/dev/ttyACM0"
	cfg.Server.Port = 3300
	cfg.Log.Verbosity = -1
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "simulation only",
			mutate:  func(c *Config) { c.Device.Simulation = true },
			wantErr: false,
		},
		{
			name:    "address only",
			mutate:  func(c *Config) { c.Device.Address = "10.0.0.2" },
			wantErr: false,
		},
		{
			name:    "neither",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "both",
			mutate: func(c *Config) {
				c.Device.Address = "10.0.0.2"
				c.Device.Simulation = true
			},
			wantErr: true,
		},
		{
			name: "port out of range",
			mutate: func(c *Config) {
				c.Device.Simulation = true
				c.Server.Port = 70000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListenAddress(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:3282", cfg.ListenAddress())
}
