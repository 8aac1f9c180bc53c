package ingest

import (
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Gate validates measurement ordering before anything reaches the feature
// pipeline. Timestamps must strictly increase per store and must never fall
// behind the last accepted raw timestamp overall.
type Gate struct {
	mu          sync.Mutex
	lastByStore map[string]int64
	lastRaw     int64
	count       uint64

	pipeline      ports.Pipeline
	obs           ports.Observability
	printInterval int
}

func NewGate(pipeline ports.Pipeline, obs ports.Observability, printInterval int) *Gate {
	if printInterval <= 0 {
		printInterval = 100
	}
	return &Gate{
		lastByStore:   make(map[string]int64),
		lastRaw:       -1,
		pipeline:      pipeline,
		obs:           obs,
		printInterval: printInterval,
	}
}

// Submit validates a single measurement and forwards it to the pipeline. A
// rejected measurement does not advance any ordering state; the caller drops
// it, ordering violations indicate an upstream defect rather than a
// retryable condition.
func (g *Gate) Submit(m domain.Measurement) error {
	g.mu.Lock()

	prev, seen := g.lastByStore[m.Store]
	if !seen {
		prev = -1
	}
	if m.Timestamp <= prev {
		g.mu.Unlock()
		g.obs.IncCounter("streamstory_ingest_rejected_total", 1)
		return &domain.OutOfOrderError{Store: m.Store, Timestamp: m.Timestamp, Prev: prev}
	}
	if m.Timestamp < g.lastRaw {
		g.mu.Unlock()
		g.obs.IncCounter("streamstory_ingest_rejected_total", 1)
		return &domain.OutOfOrderError{Store: m.Store, Timestamp: m.Timestamp, Prev: g.lastRaw, Global: true}
	}

	g.lastByStore[m.Store] = m.Timestamp
	g.lastRaw = m.Timestamp
	g.count++
	n := g.count
	g.mu.Unlock()

	if err := g.pipeline.InsertRaw(m); err != nil {
		return err
	}

	g.obs.IncCounter("streamstory_ingest_accepted_total", 1)
	if n%uint64(g.printInterval) == 0 {
		g.obs.LogDebug("raw measurements ingested",
			ports.Field{Key: "count", Value: n},
			ports.Field{Key: "store", Value: m.Store},
			ports.Field{Key: "timestamp", Value: m.Timestamp})
	}
	return nil
}

// SubmitBatch forwards an ordered batch. The first rejected measurement
// stops the batch and is returned; earlier accepted measurements stay
// accepted.
func (g *Gate) SubmitBatch(batch []domain.Measurement) error {
	for _, m := range batch {
		if err := g.Submit(m); err != nil {
			return err
		}
	}
	return nil
}

// Last returns the last accepted timestamp for a store, or zero when the
// store has not been seen.
func (g *Gate) Last(store string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastByStore[store]
}

// LastRaw returns the last globally accepted raw timestamp, or -1 before the
// first accepted measurement.
func (g *Gate) LastRaw() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRaw
}
