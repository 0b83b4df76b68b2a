package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Sensor   SensorConfig   `yaml:"sensor"`
	Graphite GraphiteConfig `yaml:"graphite"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Sampling SamplingConfig `yaml:"sampling"`
	Backoff  BackoffConfig  `yaml:"backoff"`
	Retry    RetryConfig    `yaml:"retry"`
	Backlog  BacklogConfig  `yaml:"backlog"`
	NTP      NTPConfig      `yaml:"ntp"`
}

// SensorConfig contains the serial sensor bridge configuration.
type SensorConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	Mock bool   `yaml:"mock"`
}

// GraphiteConfig contains the metrics server endpoint.
type GraphiteConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

// MetricsConfig contains the metric paths readings are reported under.
// The "." groups the two channels of one sensor together on the server.
type MetricsConfig struct {
	TemperaturePath string `yaml:"temperature_path"`
	HumidityPath    string `yaml:"humidity_path"`
}

// SamplingConfig contains the reading schedule. The refresh period dictates
// how often readings get reported; the averaging period how often raw
// samples are folded into the moving averages.
type SamplingConfig struct {
	RefreshPeriodSeconds   int `yaml:"refresh_period_seconds"`
	AveragingPeriodSeconds int `yaml:"averaging_period_seconds"`
}

// BackoffConfig contains the start and max timeout used when retrying
// connections to the graphite server. These generate a random delay to
// mitigate collisions between sensors on the same network, similar to
// Ethernet's random back-off.
type BackoffConfig struct {
	StartTimeoutMillis int `yaml:"start_timeout_ms"`
	MaxTimeoutMillis   int `yaml:"max_timeout_ms"`
}

// RetryConfig contains the fixed delays used while idling between scheduled
// events and while waiting for the link or a collaborator to come back.
type RetryConfig struct {
	IdleDelayMillis    int `yaml:"idle_delay_ms"`
	ConnectDelayMillis int `yaml:"connect_delay_ms"`
}

// BacklogConfig bounds the in-memory queue of unsent readings.
type BacklogConfig struct {
	// MaxEntries caps the backlog; the oldest reading is dropped on
	// overflow. 0 disables the bound.
	MaxEntries int `yaml:"max_entries"`
}

// NTPConfig contains time synchronization settings.
type NTPConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Server         string `yaml:"server"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Port: "/dev/ttyUSB0", // "COM3" on Windows
			Baud: 115200,
		},
		Graphite: GraphiteConfig{
			Host:                  "192.168.1.12",
			Port:                  2003,
			ConnectTimeoutSeconds: 5,
		},
		Metrics: MetricsConfig{
			TemperaturePath: "office.temperature",
			HumidityPath:    "office.relative_humidity",
		},
		Sampling: SamplingConfig{
			RefreshPeriodSeconds:   60,
			AveragingPeriodSeconds: 5,
		},
		Backoff: BackoffConfig{
			StartTimeoutMillis: 1,
			MaxTimeoutMillis:   500,
		},
		Retry: RetryConfig{
			IdleDelayMillis:    100,
			ConnectDelayMillis: 100,
		},
		Backlog: BacklogConfig{
			MaxEntries: 1440, // one day of readings at the default refresh period
		},
		NTP: NTPConfig{
			Enabled:        true,
			Server:         "pool.ntp.org",
			TimeoutSeconds: 5,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. Environment variables
// override the file (see applyEnv).
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// File doesn't exist, keep defaults.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

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

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Graphite.Host == "" {
		return fmt.Errorf("graphite host must be set")
	}
	if c.Graphite.Port <= 0 || c.Graphite.Port > 65535 {
		return fmt.Errorf("graphite port %d out of range", c.Graphite.Port)
	}
	if c.Sampling.RefreshPeriodSeconds <= 0 {
		return fmt.Errorf("refresh period must be positive")
	}
	if c.Sampling.AveragingPeriodSeconds <= 0 {
		return fmt.Errorf("averaging period must be positive")
	}
	// The moving average window size must come out integral.
	if c.Sampling.RefreshPeriodSeconds%c.Sampling.AveragingPeriodSeconds != 0 {
		return fmt.Errorf("averaging period %ds must evenly divide refresh period %ds",
			c.Sampling.AveragingPeriodSeconds, c.Sampling.RefreshPeriodSeconds)
	}
	if c.Backoff.StartTimeoutMillis <= 0 {
		return fmt.Errorf("back-off start timeout must be positive")
	}
	if c.Backoff.MaxTimeoutMillis < c.Backoff.StartTimeoutMillis {
		return fmt.Errorf("back-off max timeout %dms below start timeout %dms",
			c.Backoff.MaxTimeoutMillis, c.Backoff.StartTimeoutMillis)
	}
	if c.Backlog.MaxEntries < 0 {
		return fmt.Errorf("backlog max entries must not be negative")
	}
	return nil
}

// WindowSize returns the number of raw samples held by each moving average.
func (c *SamplingConfig) WindowSize() int {
	return c.RefreshPeriodSeconds / c.AveragingPeriodSeconds
}

// RefreshPeriod returns the refresh period as a duration.
func (c *SamplingConfig) RefreshPeriod() time.Duration {
	return time.Duration(c.RefreshPeriodSeconds) * time.Second
}

// AveragingPeriod returns the averaging period as a duration.
func (c *SamplingConfig) AveragingPeriod() time.Duration {
	return time.Duration(c.AveragingPeriodSeconds) * time.Second
}

// StartTimeout returns the initial back-off bound as a duration.
func (c *BackoffConfig) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutMillis) * time.Millisecond
}

// MaxTimeout returns the back-off ceiling as a duration.
func (c *BackoffConfig) MaxTimeout() time.Duration {
	return time.Duration(c.MaxTimeoutMillis) * time.Millisecond
}

// IdleDelay returns the delay used while idling between scheduled events.
func (c *RetryConfig) IdleDelay() time.Duration {
	return time.Duration(c.IdleDelayMillis) * time.Millisecond
}

// ConnectDelay returns the delay between attempts to bring up the link or a
// collaborator.
func (c *RetryConfig) ConnectDelay() time.Duration {
	return time.Duration(c.ConnectDelayMillis) * time.Millisecond
}

// ConnectTimeout returns the dial timeout for the graphite server.
func (c *GraphiteConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// Timeout returns the NTP query timeout.
func (c *NTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// applyEnv overrides deploy-site values from the environment. A .env file,
// when present, is loaded by the command layer before this runs.
func (c *Config) applyEnv() {
	if v := os.Getenv("TEMPMON_GRAPHITE_HOST"); v != "" {
		c.Graphite.Host = v
	}
	if v := os.Getenv("TEMPMON_GRAPHITE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Graphite.Port = port
		}
	}
	if v := os.Getenv("TEMPMON_SENSOR_PORT"); v != "" {
		c.Sensor.Port = v
	}
	if v := os.Getenv("TEMPMON_NTP_SERVER"); v != "" {
		c.NTP.Server = v
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Sensor.Port == "" {
		c.Sensor.Port = def.Sensor.Port
	}
	if c.Sensor.Baud == 0 {
		c.Sensor.Baud = def.Sensor.Baud
	}

	if c.Graphite.Host == "" {
		c.Graphite.Host = def.Graphite.Host
	}
	if c.Graphite.Port == 0 {
		c.Graphite.Port = def.Graphite.Port
	}
	if c.Graphite.ConnectTimeoutSeconds == 0 {
		c.Graphite.ConnectTimeoutSeconds = def.Graphite.ConnectTimeoutSeconds
	}

	if c.Metrics.TemperaturePath == "" {
		c.Metrics.TemperaturePath = def.Metrics.TemperaturePath
	}
	if c.Metrics.HumidityPath == "" {
		c.Metrics.HumidityPath = def.Metrics.HumidityPath
	}

	if c.Sampling.RefreshPeriodSeconds == 0 {
		c.Sampling.RefreshPeriodSeconds = def.Sampling.RefreshPeriodSeconds
	}
	if c.Sampling.AveragingPeriodSeconds == 0 {
		c.Sampling.AveragingPeriodSeconds = def.Sampling.AveragingPeriodSeconds
	}

	if c.Backoff.StartTimeoutMillis == 0 {
		c.Backoff.StartTimeoutMillis = def.Backoff.StartTimeoutMillis
	}
	if c.Backoff.MaxTimeoutMillis == 0 {
		c.Backoff.MaxTimeoutMillis = def.Backoff.MaxTimeoutMillis
	}

	if c.Retry.IdleDelayMillis == 0 {
		c.Retry.IdleDelayMillis = def.Retry.IdleDelayMillis
	}
	if c.Retry.ConnectDelayMillis == 0 {
		c.Retry.ConnectDelayMillis = def.Retry.ConnectDelayMillis
	}

	if c.NTP.Server == "" {
		c.NTP.Server = def.NTP.Server
	}
	if c.NTP.TimeoutSeconds == 0 {
		c.NTP.TimeoutSeconds = def.NTP.TimeoutSeconds
	}
}
