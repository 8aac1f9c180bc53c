// Package pipeline provides the in-process realtime pipeline shared by all
// active models. Embedders that run an external stream-processing engine
// replace it through the runtime options.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Relay fans raw measurements out to value subscribers and forwards friction
// coefficients to coefficient subscribers when coefficient calculation is
// enabled. All methods are safe for concurrent use.
type Relay struct {
	mu         sync.RWMutex
	nextID     int
	valueSubs  map[int]func(domain.Measurement)
	coeffSubs  map[int]func(domain.Coefficient)
	calcCoeffs bool
	closed     bool
}

func NewRelay() *Relay {
	return &Relay{
		valueSubs: make(map[int]func(domain.Measurement)),
		coeffSubs: make(map[int]func(domain.Coefficient)),
	}
}

func (r *Relay) InsertRaw(m domain.Measurement) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return fmt.Errorf("pipeline is closed")
	}
	subs := make([]func(domain.Measurement), 0, len(r.valueSubs))
	for _, fn := range r.valueSubs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		fn(m)
	}
	return nil
}

// PushCoefficient feeds a computed friction coefficient into the pipeline.
// It is dropped silently while coefficient calculation is disabled.
func (r *Relay) PushCoefficient(c domain.Coefficient) {
	r.mu.RLock()
	if r.closed || !r.calcCoeffs {
		r.mu.RUnlock()
		return
	}
	subs := make([]func(domain.Coefficient), 0, len(r.coeffSubs))
	for _, fn := range r.coeffSubs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		fn(c)
	}
}

func (r *Relay) SubscribeValue(fn func(m domain.Measurement)) ports.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.valueSubs[id] = fn
	return &relaySub{unsubscribe: func() {
		r.mu.Lock()
		delete(r.valueSubs, id)
		r.mu.Unlock()
	}}
}

func (r *Relay) SubscribeCoefficient(fn func(c domain.Coefficient)) ports.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.coeffSubs[id] = fn
	return &relaySub{unsubscribe: func() {
		r.mu.Lock()
		delete(r.coeffSubs, id)
		r.mu.Unlock()
	}}
}

func (r *Relay) SetCoefficientCalc(enabled bool) {
	r.mu.Lock()
	r.calcCoeffs = enabled
	r.mu.Unlock()
}

func (r *Relay) IsClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.valueSubs = make(map[int]func(domain.Measurement))
	r.coeffSubs = make(map[int]func(domain.Coefficient))
	return nil
}

type relaySub struct {
	once        sync.Once
	unsubscribe func()
}

func (s *relaySub) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

var _ ports.Pipeline = (*Relay)(nil)
