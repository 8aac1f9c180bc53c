package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/opcua"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Journal  JournalConfig  `yaml:"journal"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Build    BuildConfig    `yaml:"build"`
	Molding  MoldingConfig  `yaml:"molding"`
	Enriched EnrichedConfig `yaml:"enriched"`
	OPCUA    opcua.Config   `yaml:"opcua"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	Brokers []string          `yaml:"brokers"`
	Topics  map[string]string `yaml:"topics"`
	Inbound string            `yaml:"inbound"`
	GroupID string            `yaml:"group_id"`
}

type PostgresConfig struct {
	ConnString    string `yaml:"conn_string"`
	EnrichedTable string `yaml:"enriched_table"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	KeyPrefix string `yaml:"key_prefix"`
	MaxKept   int    `yaml:"max_kept"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	StatesFile    string `yaml:"states_file"`
	ActivitiesDir string `yaml:"activities_dir"`
}

type IngestConfig struct {
	RawPrintInterval int `yaml:"raw_print_interval"`
}

type BuildConfig struct {
	PollTimeout time.Duration `yaml:"poll_timeout"`
	ProgressCap int           `yaml:"progress_cap"`
}

// MoldingConfig holds per line/machine minimum shuttle times used to judge
// whether a lacquering to molding transfer is on schedule. Keys are
// "<lacqueringLineId>:<mouldingMachineId>" pairs, values are seconds.
type MoldingConfig struct {
	MinShuttleTimes map[string]float64 `yaml:"min_shuttle_times"`
	SlowRatio       float64            `yaml:"slow_ratio"`
}

type EnrichedConfig struct {
	Fields []string `yaml:"fields"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "streamstory"
	}
	if c.Kafka.Topics == nil {
		c.Kafka.Topics = map[string]string{}
	}
	if _, ok := c.Kafka.Topics["prediction"]; !ok {
		c.Kafka.Topics["prediction"] = "predictions"
	}
	if _, ok := c.Kafka.Topics["activity"]; !ok {
		c.Kafka.Topics["activity"] = "activities"
	}
	if _, ok := c.Kafka.Topics["friction-swivel"]; !ok {
		c.Kafka.Topics["friction-swivel"] = "friction-swivel"
	}
	if _, ok := c.Kafka.Topics["friction-gearbox"]; !ok {
		c.Kafka.Topics["friction-gearbox"] = "friction-gearbox"
	}
	if c.Postgres.EnrichedTable == "" {
		c.Postgres.EnrichedTable = "enriched_measurements"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "streamstory:model:"
	}
	if c.Redis.MaxKept == 0 {
		c.Redis.MaxKept = 100
	}
	if c.Ingest.RawPrintInterval == 0 {
		c.Ingest.RawPrintInterval = 100
	}
	if c.Build.PollTimeout == 0 {
		c.Build.PollTimeout = 30 * time.Second
	}
	if c.Build.ProgressCap == 0 {
		c.Build.ProgressCap = 64
	}
	if c.Molding.SlowRatio == 0 {
		c.Molding.SlowRatio = 1.2
	}

	if c.OPCUA.Endpoint != "" {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Postgres.ConnString == "" {
		return fmt.Errorf("postgres.conn_string is required")
	}
	for pair := range c.Molding.MinShuttleTimes {
		if !strings.Contains(pair, ":") {
			return fmt.Errorf("molding.min_shuttle_times key %q must be <line>:<machine>", pair)
		}
	}
	if c.OPCUA.Endpoint != "" {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	return nil
}

// ShuttleKey builds the lookup key for MinShuttleTimes.
func ShuttleKey(lacqueringLineID, mouldingMachineID string) string {
	return lacqueringLineID + ":" + mouldingMachineID
}
