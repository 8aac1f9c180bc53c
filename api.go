package streamstory

import (
	base "github.com/JozefStefanInstitute/StreamStory/pkg/streamstory"
)

// Re-exported errors for convenience.
var ErrChannelSenderClosed = base.ErrChannelSenderClosed

// Type aliases so consumers can import
// github.com/JozefStefanInstitute/StreamStory directly.
type (
	Config          = base.Config
	ServerConfig    = base.ServerConfig
	KafkaConfig     = base.KafkaConfig
	PostgresConfig  = base.PostgresConfig
	RedisConfig     = base.RedisConfig
	MetricsConfig   = base.MetricsConfig
	JournalConfig   = base.JournalConfig
	IngestConfig    = base.IngestConfig
	BuildConfig     = base.BuildConfig
	MoldingConfig   = base.MoldingConfig
	EnrichedConfig  = base.EnrichedConfig
	OPCUAConfig     = base.OPCUAConfig
	OPCUANodeConfig = base.OPCUANodeConfig

	Flow          = base.Flow
	FlowOption    = base.FlowOption
	IngestOption  = base.IngestOption
	DeliverOption = base.DeliverOption
	Runtime       = base.Runtime
	RuntimeOption = base.RuntimeOption
	Status        = base.Status

	Measurement       = base.Measurement
	Coefficient       = base.Coefficient
	Envelope          = base.Envelope
	ModelRecord       = base.ModelRecord
	EnrichedRecord    = base.EnrichedRecord
	StateInfo         = base.StateInfo
	Observation       = base.Observation
	ModelPrediction   = base.ModelPrediction
	PredictionContent = base.PredictionContent
	Exponential       = base.Exponential
	Model             = base.Model
	ModelEvents       = base.ModelEvents
	Subscription      = base.Subscription
	Pipeline          = base.Pipeline
	ModelBuilder      = base.ModelBuilder
	BuildSpec         = base.BuildSpec
	BuildProgress     = base.BuildProgress
	Collector         = base.Collector
	Broker            = base.Broker
	Operation         = base.Operation
	TopicResolver     = base.TopicResolver
	TopicTable        = base.TopicTable
	PushSender        = base.PushSender
	SendFunc          = base.SendFunc
	ChannelMessage    = base.ChannelMessage
	Database          = base.Database
	EnrichedStore     = base.EnrichedStore
	MessageLog        = base.MessageLog
	Observability     = base.Observability
	Field             = base.Field
	Base              = base.Base
)

// Named operation streams.
const (
	OpPrediction      = base.OpPrediction
	OpActivity        = base.OpActivity
	OpFrictionSwivel  = base.OpFrictionSwivel
	OpFrictionGearbox = base.OpFrictionGearbox
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func IngestCollector(c Collector) IngestOption {
	return base.IngestCollector(c)
}

func IngestPipeline(p Pipeline) IngestOption {
	return base.IngestPipeline(p)
}

func IngestObservability(obs Observability) IngestOption {
	return base.IngestObservability(obs)
}

func DeliverBroker(b Broker) DeliverOption {
	return base.DeliverBroker(b)
}

func DeliverSender(s PushSender) DeliverOption {
	return base.DeliverSender(s)
}

func DeliverCallback(name string, fn SendFunc) DeliverOption {
	return base.DeliverCallback(name, fn)
}

func DeliverObservability(obs Observability) DeliverOption {
	return base.DeliverObservability(obs)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithBroker(b Broker) RuntimeOption {
	return base.WithBroker(b)
}

func WithDatabase(db Database) RuntimeOption {
	return base.WithDatabase(db)
}

func WithEnrichedStore(s EnrichedStore) RuntimeOption {
	return base.WithEnrichedStore(s)
}

func WithPushSender(s PushSender) RuntimeOption {
	return base.WithPushSender(s)
}

func WithMessageLog(l MessageLog) RuntimeOption {
	return base.WithMessageLog(l)
}

func WithPipeline(p Pipeline) RuntimeOption {
	return base.WithPipeline(p)
}

func WithCollector(c Collector) RuntimeOption {
	return base.WithCollector(c)
}

func WithTopicResolver(r TopicResolver) RuntimeOption {
	return base.WithTopicResolver(r)
}

func WithBuilder(b ModelBuilder) RuntimeOption {
	return base.WithBuilder(b)
}

func WithRealtimeBase(b Base) RuntimeOption {
	return base.WithRealtimeBase(b)
}

// Push adapters.
func NewCallbackSender(name string, fn SendFunc) PushSender {
	return base.NewCallbackSender(name, fn)
}

func NewChannelSender(name string, buffer int) (PushSender, <-chan ChannelMessage, func()) {
	return base.NewChannelSender(name, buffer)
}

// Topic registry.
func NewTopicTable() *TopicTable {
	return base.NewTopicTable()
}

// NewExponential builds an exponential PDF with the given rate.
func NewExponential(lambda float64) Exponential {
	return base.NewExponential(lambda)
}
