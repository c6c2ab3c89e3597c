// Package config loads the monitor's YAML configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Krajiyah/ble-health/pkg/client"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/Krajiyah/ble-health/pkg/vendorproto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// BackendCurrant drives the host controller through github.com/currantlabs/ble
	BackendCurrant = "currant"
	// BackendTinyGo drives BlueZ, CoreBluetooth or WinRT through tinygo.org/x/bluetooth
	BackendTinyGo = "tinygo"

	minMTU = 23
	maxMTU = 517
)

// Config holds all monitor configuration.
type Config struct {
	Backend             string        `yaml:"backend"`
	ScanServices        []string      `yaml:"scan_services"`
	ScanDelay           time.Duration `yaml:"scan_delay"`
	ReconnectDelay      time.Duration `yaml:"reconnect_delay"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	MTU                 int           `yaml:"mtu"`
	BondingNamePatterns []string      `yaml:"bonding_name_patterns"`
	LogLevel            string        `yaml:"log_level"`
	Sink                SinkConfig    `yaml:"sink"`
}

// SinkConfig selects where measurements go
type SinkConfig struct {
	// JSON writes one line per event to stdout
	JSON bool `yaml:"json"`
	// WebsocketAddr, when set, serves a broadcast websocket on this address
	WebsocketAddr string `yaml:"websocket_addr"`
}

// DefaultPath returns ~/.config/ble-health/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "ble-health", "config.yaml")
}

func Default() *Config {
	return &Config{
		Backend:             BackendCurrant,
		ScanServices:        append([]string{}, util.HealthServiceUUIDs...),
		ScanDelay:           util.ScanDelay,
		ReconnectDelay:      util.ReconnectDelay,
		ConnectTimeout:      util.ConnectTimeout,
		MTU:                 util.MTU,
		BondingNamePatterns: append([]string{}, vendorproto.DefaultBondingNamePatterns...),
		LogLevel:            "info",
		Sink:                SinkConfig{JSON: true},
	}
}

// Load reads a YAML file over Default. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCurrant, BackendTinyGo:
	default:
		return errors.Errorf("backend must be %q or %q, got %q", BackendCurrant, BackendTinyGo, c.Backend)
	}
	if len(c.ScanServices) == 0 {
		return errors.New("scan_services must not be empty")
	}
	for _, s := range c.ScanServices {
		if !util.IsValidUUID(s) {
			return errors.Errorf("scan_services: invalid uuid %q", s)
		}
	}
	if c.ScanDelay < 0 {
		return errors.New("scan_delay must not be negative")
	}
	if c.ReconnectDelay <= 0 {
		return errors.New("reconnect_delay must be > 0")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("connect_timeout must be > 0")
	}
	if c.MTU < minMTU || c.MTU > maxMTU {
		return errors.Errorf("mtu must be between %d and %d, got %d", minMTU, maxMTU, c.MTU)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses log_level
func (c *Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, errors.Wrap(err, "log_level")
	}
	return lvl, nil
}

// Options maps the configuration onto controller options
func (c *Config) Options(logger logrus.FieldLogger) client.Options {
	return client.Options{
		ScanServices:        c.ScanServices,
		ScanDelay:           c.ScanDelay,
		ReconnectDelay:      c.ReconnectDelay,
		MTU:                 c.MTU,
		BondingNamePatterns: c.BondingNamePatterns,
		Logger:              logger,
	}
}
