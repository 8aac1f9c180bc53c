package streamstory

import (
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/opcua"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// ServerConfig configures the channel HTTP server.
	ServerConfig = config.ServerConfig
	// KafkaConfig holds broker addresses and topic names.
	KafkaConfig = config.KafkaConfig
	// PostgresConfig configures the model and config store.
	PostgresConfig = config.PostgresConfig
	// RedisConfig configures the channel message log.
	RedisConfig = config.RedisConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// JournalConfig configures the state and activity journals.
	JournalConfig = config.JournalConfig
	// IngestConfig tunes the ordering gate.
	IngestConfig = config.IngestConfig
	// BuildConfig tunes build polling.
	BuildConfig = config.BuildConfig
	// EnrichedConfig declares the enriched record field set.
	EnrichedConfig = config.EnrichedConfig
	// MoldingConfig holds the shuttle time table for transfer checks.
	MoldingConfig = config.MoldingConfig
	// OPCUAConfig holds connection + node details for the built-in collector.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig describes a monitored tag.
	OPCUANodeConfig = opcua.NodeConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
