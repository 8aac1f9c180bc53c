package streamstory

import (
	"github.com/JozefStefanInstitute/StreamStory/internal/app/build"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Measurement is one raw sensor reading flowing through the ingest gate.
type Measurement = domain.Measurement

// Coefficient is a computed friction coefficient with its deviation score.
type Coefficient = domain.Coefficient

// Envelope is the message frame pushed to web channels.
type Envelope = domain.Envelope

// ModelRecord is a stored model row.
type ModelRecord = domain.ModelRecord

// EnrichedRecord is one enriched measurement arriving from the broker.
type EnrichedRecord = domain.EnrichedRecord

// StateInfo describes one current state of a model.
type StateInfo = domain.StateInfo

// Observation is a raw observation flagged by a model.
type Observation = domain.Observation

// ModelPrediction is a state prediction emitted by a model.
type ModelPrediction = domain.ModelPrediction

// PredictionContent is the payload of a dispatched event prediction.
type PredictionContent = domain.PredictionContent

// Exponential is an exponential probability density description.
type Exponential = domain.Exponential

// NewExponential builds an exponential PDF with the given rate.
func NewExponential(lambda float64) Exponential {
	return domain.NewExponential(lambda)
}

// Model is a handle to a loaded online analytics model.
type Model = ports.Model

// ModelEvents is the callback surface a Model exposes.
type ModelEvents = ports.ModelEvents

// Subscription detaches a registered callback.
type Subscription = ports.Subscription

// Pipeline is the realtime feature pipeline shared by all active models.
type Pipeline = ports.Pipeline

// ModelBuilder constructs new models and loads stored ones.
type ModelBuilder = ports.ModelBuilder

// BuildSpec describes a model build request.
type BuildSpec = ports.BuildSpec

// BuildProgress is a snapshot of a running or finished build.
type BuildProgress = build.Progress

// Collector streams measurements from an external source into the gate.
type Collector = ports.Collector

// Broker publishes serialized events to a topic.
type Broker = ports.Broker

// Operation names an outbound integration stream.
type Operation = ports.Operation

// TopicResolver maps an operation and model to its subscribed topics.
type TopicResolver = ports.TopicResolver

// PushSender delivers payloads to open web channels.
type PushSender = ports.PushSender

// Database is the model, state, and config store.
type Database = ports.Database

// EnrichedStore persists enriched measurement records.
type EnrichedStore = ports.EnrichedStore

// MessageLog keeps recent channel envelopes for reconnect catch-up.
type MessageLog = ports.MessageLog

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Base is a storage context a model reads observations from.
type Base = ports.Base

// Named operation streams.
const (
	OpPrediction      = ports.OpPrediction
	OpActivity        = ports.OpActivity
	OpFrictionSwivel  = ports.OpFrictionSwivel
	OpFrictionGearbox = ports.OpFrictionGearbox
)
