package config

import "time"

// Config is the complete tickflow configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Data    DataConfig    `yaml:"data"`
	API     APIConfig     `yaml:"api,omitempty"`
	Feeds   []FeedConfig  `yaml:"feeds"`
	Broker  BrokerConfig  `yaml:"broker"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	NeverStop bool   `yaml:"never_stop"`
}

// DataConfig defines bar storage settings.
type DataConfig struct {
	Database string `yaml:"database"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	APIKey  string `yaml:"api_key"`
}

// FeedKind selects the subject type a feed entry creates.
type FeedKind string

const (
	KindHistorical FeedKind = "historical"
	KindLive       FeedKind = "live"
)

// FeedConfig defines one event source for the dispatcher.
type FeedConfig struct {
	Name     string    `yaml:"name"`
	Symbol   string    `yaml:"symbol"`
	Kind     FeedKind  `yaml:"kind"`
	Priority int       `yaml:"priority,omitempty"`
	From     time.Time `yaml:"from,omitempty"`
	To       time.Time `yaml:"to,omitempty"`
	Buffer   int       `yaml:"buffer,omitempty"`
}

// BrokerConfig defines the paper broker settings.
type BrokerConfig struct {
	Enabled bool    `yaml:"enabled"`
	Cash    float64 `yaml:"cash"`
}

// ChecksumManifest is the on-disk format of the .checksums file.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "tickflow",
			LogLevel: "info",
		},
		Data: DataConfig{
			Database: "./tickflow.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8753",
		},
		Broker: BrokerConfig{
			Enabled: false,
			Cash:    100000,
		},
	}
}
