package inbound

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/app/config"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/ingest"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/predict"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

const (
	eventGenerated     = "Generated"
	eventTimeToMolding = "timeToMolding"
)

// Classifier routes inbound broker messages by their type field. Raw
// measurements go through the ingest gate, enriched records to the enriched
// store and cep events to named handling. Malformed messages are logged and
// dropped, never fatal.
type Classifier struct {
	gate       *ingest.Gate
	enriched   ports.EnrichedStore
	dispatcher *predict.Dispatcher
	fields     []string
	minShuttle map[string]float64
	slowRatio  float64
	obs        ports.Observability

	mu      sync.Mutex
	lastCep int64
}

func NewClassifier(gate *ingest.Gate, enriched ports.EnrichedStore, dispatcher *predict.Dispatcher, fields []string, minShuttle map[string]float64, slowRatio float64, obs ports.Observability) *Classifier {
	if slowRatio <= 0 {
		slowRatio = 1.2
	}
	return &Classifier{
		gate:       gate,
		enriched:   enriched,
		dispatcher: dispatcher,
		fields:     fields,
		minShuttle: minShuttle,
		slowRatio:  slowRatio,
		obs:        obs,
	}
}

// Handle classifies one inbound broker message.
func (c *Classifier) Handle(raw []byte) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.obs.LogWarn("undecodable broker message dropped",
			ports.Field{Key: "error", Value: err.Error()})
		return
	}

	switch msg.Type {
	case domain.InboundRaw:
		c.handleRaw(msg.Payload)
	case domain.InboundEnriched:
		c.handleEnriched(msg.Payload)
	case domain.InboundCEP:
		c.handleCEP(msg.Payload)
	default:
		c.obs.LogWarn("invalid broker message type",
			ports.Field{Key: "type", Value: string(msg.Type)})
	}
}

func (c *Classifier) handleRaw(payload json.RawMessage) {
	var batch []domain.Measurement
	if err := json.Unmarshal(payload, &batch); err != nil {
		var single domain.Measurement
		if err := json.Unmarshal(payload, &single); err != nil {
			c.obs.LogWarn("undecodable raw measurement dropped",
				ports.Field{Key: "error", Value: err.Error()})
			return
		}
		batch = []domain.Measurement{single}
	}

	for _, m := range batch {
		if err := c.gate.Submit(m); err != nil {
			c.obs.LogError("raw measurement rejected", err,
				ports.Field{Key: "store", Value: m.Store})
		}
	}
}

func (c *Classifier) handleEnriched(payload json.RawMessage) {
	var fields map[string]json.Number
	if err := json.Unmarshal(payload, &fields); err != nil {
		c.obs.LogWarn("undecodable enriched event dropped",
			ports.Field{Key: "error", Value: err.Error()})
		return
	}

	ts, ok := extractTimestamp(fields)
	if !ok {
		c.obs.LogWarn("enriched event without timestamp dropped")
		return
	}

	rec := domain.EnrichedRecord{Timestamp: ts, Fields: make(map[string]float64, len(c.fields))}
	for name, num := range fields {
		if name == "timestamp" || name == "time" {
			continue
		}
		if v, err := num.Float64(); err == nil {
			rec.Fields[name] = v
		}
	}
	// any declared field absent from the payload defaults to zero
	for _, name := range c.fields {
		if _, ok := rec.Fields[name]; !ok {
			rec.Fields[name] = 0
		}
	}

	if err := c.enriched.Append(rec); err != nil {
		c.obs.LogError("enriched store append failed", err)
	}
}

func extractTimestamp(fields map[string]json.Number) (int64, bool) {
	for _, key := range []string{"timestamp", "time"} {
		if num, ok := fields[key]; ok {
			if ts, err := num.Int64(); err == nil {
				return ts, true
			}
		}
	}
	return 0, false
}

func (c *Classifier) handleCEP(payload json.RawMessage) {
	var ev domain.DerivedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		c.obs.LogWarn("undecodable cep event dropped",
			ports.Field{Key: "error", Value: err.Error()})
		return
	}

	ts, err := ev.Timestamp.Int64()
	if err != nil {
		c.obs.LogWarn("cep event with non-numeric time dropped",
			ports.Field{Key: "event", Value: ev.EventName})
		return
	}

	c.mu.Lock()
	last := c.lastCep
	c.mu.Unlock()
	if ts <= last {
		c.obs.LogWarn("cep event with non-increasing time dropped",
			ports.Field{Key: "event", Value: ev.EventName},
			ports.Field{Key: "timestamp", Value: ts},
			ports.Field{Key: "last", Value: last})
		return
	}

	switch ev.EventName {
	case eventGenerated:
		rec := domain.EnrichedRecord{Timestamp: ts, Fields: ev.Fields}
		if rec.Fields == nil {
			rec.Fields = map[string]float64{}
		}
		if err := c.enriched.Append(rec); err != nil {
			c.obs.LogError("enriched store append failed", err)
		}

	case eventTimeToMolding:
		c.handleTimeToMolding(ev, ts)

	default:
		c.obs.LogDebug("unknown cep event, dispatching safety-net prediction",
			ports.Field{Key: "event", Value: ev.EventName})
		c.dispatcher.DispatchPrediction(domain.PredictionContent{
			Time:    ts,
			EventID: "Some dummy prediction generated from a CEP event",
			PDF:     domain.NewExponential(1),
		}, nil)
	}

	c.mu.Lock()
	c.lastCep = ts
	c.mu.Unlock()
}

func (c *Classifier) handleTimeToMolding(ev domain.DerivedEvent, ts int64) {
	minTime, ok := c.minShuttle[config.ShuttleKey(ev.LacqueringLineID, ev.MouldingMachineID)]
	if !ok || minTime <= 0 {
		c.obs.LogDebug("no minimum shuttle time configured",
			ports.Field{Key: "line", Value: ev.LacqueringLineID},
			ports.Field{Key: "machine", Value: ev.MouldingMachineID})
		return
	}

	ratio := ev.TimeDifference / minTime
	c.obs.LogDebug("time to molding ratio computed",
		ports.Field{Key: "ratio", Value: ratio})

	if ratio >= c.slowRatio {
		return
	}

	c.dispatcher.DispatchPrediction(domain.PredictionContent{
		Time:    ts,
		EventID: fmt.Sprintf("Moulding line empty: %s", ev.MouldingMachineID),
		PDF:     domain.NewExponential(1000),
	}, nil)
}
