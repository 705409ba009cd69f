package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the RPC port the controller listens on.
const DefaultPort = 3282

// ErrConfiguration is returned when the configuration cannot select a backend.
var ErrConfiguration = errors.New("configuration error")

// Config represents the controller configuration.
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// DeviceConfig selects and configures the backend.
type DeviceConfig struct {
	Address    string        `yaml:"address"`    // Network host[:port] or serial:<port>
	Simulation bool          `yaml:"simulation"` // Use the simulated backend
	Timeout    time.Duration `yaml:"timeout"`    // Connection timeout
}

// ServerConfig contains RPC listener configuration.
type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Verbosity int `yaml:"verbosity"` // Positive is more verbose, negative is quieter
}

// Default returns a default configuration with sensible values.
// No backend is selected.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: DefaultPort,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that exactly one backend is selected and the listener is usable.
func (c *Config) Validate() error {
	switch {
	case c.Device.Simulation && c.Device.Address != "":
		return fmt.Errorf("%w: a device address and simulation mode are mutually exclusive", ErrConfiguration)
	case !c.Device.Simulation && c.Device.Address == "":
		return fmt.Errorf("%w: either simulation mode or a device address is required", ErrConfiguration)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: invalid port %d", ErrConfiguration, c.Server.Port)
	}
	return nil
}

// ListenAddress returns the host:port the RPC server binds to.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Bind, strconv.Itoa(c.Server.Port))
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Device.Timeout == 0 {
		c.Device.Timeout = def.Device.Timeout
	}
	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
}
