package models

// MConfig Structure
type MConfig struct {
	Name             string        `yaml:"name"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	LogLevel         string        `yaml:"log_level"`
	GrpcHost         string        `yaml:"grpc_host"`
	GrpcPort         int           `yaml:"grpc_port"`
	Symbols          []string      `yaml:"symbols"`
	CandleIntervalMs int64         `yaml:"candle_interval_ms"`
	HistorySize      int           `yaml:"history_size"`
	Feed             MFeedConfig   `yaml:"feed"`
	Viewer           MViewerConfig `yaml:"viewer"`
}

type MFeedConfig struct {
	APIKey                string `yaml:"api_key"` // Optional, selects the live feed when set
	URL                   string `yaml:"url"`
	ReconnectDelaySeconds int    `yaml:"reconnect_delay_seconds"`
	TickIntervalMs        int    `yaml:"tick_interval_ms"`
}

type MViewerConfig struct {
	SendBuffer        int     `yaml:"send_buffer"`
	MaxMessageBytes   int64   `yaml:"max_message_bytes"`
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}
