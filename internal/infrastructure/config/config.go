package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the TLX bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Inverter InverterConfig `yaml:"inverter"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Polling  PollingConfig  `yaml:"polling"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InverterConfig contains the EtherLynx connection settings for one inverter.
type InverterConfig struct {
	// Host is the inverter's IP address or hostname. Required.
	Host string `yaml:"host"`

	// Port is the inverter's UDP port. Default: 48004.
	Port int `yaml:"port"`

	// Identity is an optional known inverter serial number. When set,
	// discovery is skipped at startup.
	Identity string `yaml:"identity"`

	// SourceIdentity is the dummy serial presented as packet source.
	SourceIdentity string `yaml:"source_identity"`

	// TimeoutSeconds is the per-exchange response timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// DiscoveryTimeoutSeconds is the response timeout for discovery pings.
	DiscoveryTimeoutSeconds int `yaml:"discovery_timeout_seconds"`

	// MaxPerBatch caps the parameters packed into one request datagram.
	MaxPerBatch int `yaml:"max_per_batch"`

	// PVStrings is the number of connected PV strings (2 or 3). String 3
	// parameters are skipped on two-string installations.
	PVStrings int `yaml:"pv_strings"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// BaseTopic is the topic prefix for published readings.
	BaseTopic string `yaml:"base_topic"`

	// DiscoveryPrefix is the Home Assistant discovery topic prefix.
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// PollingConfig contains the poll cadences and the offline policy.
type PollingConfig struct {
	// RealtimeSeconds is the cadence of the frequent measurement poll.
	RealtimeSeconds int `yaml:"realtime_seconds"`

	// EnergySeconds is the cadence of the production counter poll.
	EnergySeconds int `yaml:"energy_seconds"`

	// SystemSeconds is the cadence of the near-static system info poll.
	SystemSeconds int `yaml:"system_seconds"`

	// OfflineThreshold is the number of consecutive empty realtime polls
	// before the inverter is declared offline.
	OfflineThreshold int `yaml:"offline_threshold"`

	// OfflineCooldownSeconds is the pause between poll attempts while the
	// inverter is offline (typically overnight).
	OfflineCooldownSeconds int `yaml:"offline_cooldown_seconds"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TLXBRIDGE_SECTION_KEY
// For example: TLXBRIDGE_INVERTER_HOST, TLXBRIDGE_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Inverter: InverterConfig{
			Port:                    48004,
			SourceIdentity:          "HA_MASTER",
			TimeoutSeconds:          3,
			DiscoveryTimeoutSeconds: 5,
			MaxPerBatch:             10,
			PVStrings:               2,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tlxbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			BaseTopic:       "danfoss_tlx",
			DiscoveryPrefix: "homeassistant",
		},
		Polling: PollingConfig{
			RealtimeSeconds:        15,
			EnergySeconds:          300,
			SystemSeconds:          3600,
			OfflineThreshold:       10,
			OfflineCooldownSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TLXBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Inverter
	if v := os.Getenv("TLXBRIDGE_INVERTER_HOST"); v != "" {
		cfg.Inverter.Host = v
	}
	if v := os.Getenv("TLXBRIDGE_INVERTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Inverter.Port = port
		}
	}
	if v := os.Getenv("TLXBRIDGE_INVERTER_IDENTITY"); v != "" {
		cfg.Inverter.Identity = v
	}

	// MQTT
	if v := os.Getenv("TLXBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TLXBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TLXBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("TLXBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Inverter validation
	if c.Inverter.Host == "" {
		errs = append(errs, "inverter.host is required")
	}
	if c.Inverter.Port < 1 || c.Inverter.Port > 65535 {
		errs = append(errs, "inverter.port must be between 1 and 65535")
	}
	if c.Inverter.PVStrings < 1 || c.Inverter.PVStrings > 3 {
		errs = append(errs, "inverter.pv_strings must be 1, 2, or 3")
	}
	if c.Inverter.MaxPerBatch < 1 {
		errs = append(errs, "inverter.max_per_batch must be at least 1")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.BaseTopic == "" {
		errs = append(errs, "mqtt.base_topic is required")
	}

	// Polling validation
	if c.Polling.RealtimeSeconds < 1 {
		errs = append(errs, "polling.realtime_seconds must be at least 1")
	}
	if c.Polling.EnergySeconds < c.Polling.RealtimeSeconds {
		errs = append(errs, "polling.energy_seconds must not be shorter than realtime_seconds")
	}
	if c.Polling.OfflineThreshold < 1 {
		errs = append(errs, "polling.offline_threshold must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ExchangeTimeout returns the per-exchange response timeout as a Duration.
func (c *Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.Inverter.TimeoutSeconds) * time.Second
}

// DiscoveryTimeout returns the discovery ping timeout as a Duration.
func (c *Config) DiscoveryTimeout() time.Duration {
	return time.Duration(c.Inverter.DiscoveryTimeoutSeconds) * time.Second
}

// RealtimeInterval returns the realtime poll cadence as a Duration.
func (c *Config) RealtimeInterval() time.Duration {
	return time.Duration(c.Polling.RealtimeSeconds) * time.Second
}

// EnergyInterval returns the energy poll cadence as a Duration.
func (c *Config) EnergyInterval() time.Duration {
	return time.Duration(c.Polling.EnergySeconds) * time.Second
}

// SystemInterval returns the system info poll cadence as a Duration.
func (c *Config) SystemInterval() time.Duration {
	return time.Duration(c.Polling.SystemSeconds) * time.Second
}

// OfflineCooldown returns the offline poll pause as a Duration.
func (c *Config) OfflineCooldown() time.Duration {
	return time.Duration(c.Polling.OfflineCooldownSeconds) * time.Second
}
