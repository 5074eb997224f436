package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"candle-stream/src/models"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = 3002
	DefaultGrpcPort         = 50051
	DefaultCandleIntervalMs = 30000
	DefaultHistorySize      = 20
	DefaultFeedURL          = "wss://socket.polygon.io/stocks"
	DefaultReconnectDelay   = 5
	DefaultTickIntervalMs   = 1000
)

// DefaultSymbols is the registry used when the config file names none.
var DefaultSymbols = []string{"JOBY", "ACHR", "SVIX", "UVIX", "VXX", "WULF"}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Default returns a configuration that runs without any file.
func Default() *Config {
	return &Config{MConfig: &models.MConfig{
		Name:     "candle-stream",
		Host:     "0.0.0.0",
		LogLevel: "INFO",
		GrpcPort: DefaultGrpcPort,
	}}
}

// -----------------------------------------------------------------------------

// NewConfig creates a Config from a YAML file (or defaults when configPath is empty),
// then applies environment overrides and validates.
func NewConfig(configPath string) (*Config, error) {
	config := Default()

	// 1. Read the YAML file content
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
		}

		// 2. Unmarshal data into the models struct
		if err := yaml.Unmarshal(data, config.MConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	}

	// 3. Environment wins over the file
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() error {
	if key := os.Getenv("POLYGON_API_KEY"); key != "" {
		c.Feed.APIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Port = p
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "candle-stream"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if len(c.Symbols) == 0 {
		c.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.CandleIntervalMs == 0 {
		c.CandleIntervalMs = DefaultCandleIntervalMs
	}
	if c.HistorySize == 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ReconnectDelaySeconds == 0 {
		c.Feed.ReconnectDelaySeconds = DefaultReconnectDelay
	}
	if c.Feed.TickIntervalMs == 0 {
		c.Feed.TickIntervalMs = DefaultTickIntervalMs
	}
	if c.Viewer.SendBuffer == 0 {
		c.Viewer.SendBuffer = 256
	}
	if c.Viewer.MaxMessageBytes == 0 {
		c.Viewer.MaxMessageBytes = 64 * 1024
	}
	if c.Viewer.MessagesPerSecond == 0 {
		c.Viewer.MessagesPerSecond = 5
	}
	if c.Viewer.Burst == 0 {
		c.Viewer.Burst = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}
	if c.GrpcPort != 0 && c.GrpcPort == c.Port {
		return fmt.Errorf("grpc port %d collides with server port", c.GrpcPort)
	}

	seen := make(map[string]struct{}, len(c.Symbols))
	for i, sym := range c.Symbols {
		if sym == "" {
			return fmt.Errorf("symbol %d cannot be empty", i)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("symbol %s listed twice", sym)
		}
		seen[sym] = struct{}{}
	}

	if c.CandleIntervalMs <= 0 {
		return fmt.Errorf("candle interval must be greater than 0")
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history size cannot be negative")
	}
	if c.Feed.ReconnectDelaySeconds < 0 {
		return fmt.Errorf("reconnect delay cannot be negative")
	}
	if c.Feed.TickIntervalMs < 0 {
		return fmt.Errorf("tick interval cannot be negative")
	}
	if c.Viewer.SendBuffer < 0 || c.Viewer.Burst < 0 || c.Viewer.MessagesPerSecond < 0 {
		return fmt.Errorf("viewer limits cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// UseLiveFeed reports whether a credential is configured.
func (c *Config) UseLiveFeed() bool {
	return c.Feed.APIKey != ""
}

// ReconnectDelay returns the fixed upstream reconnect delay.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Feed.ReconnectDelaySeconds) * time.Second
}

// TickInterval returns the synthetic feed cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Feed.TickIntervalMs) * time.Millisecond
}
