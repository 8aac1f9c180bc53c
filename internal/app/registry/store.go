package registry

import (
	"fmt"
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Entry is an active model together with the web channels subscribed to it
// and the event subscriptions the router holds on it.
type Entry struct {
	Model         ports.Model
	subscribers   map[string]struct{}
	Subscriptions []ports.Subscription
}

// Subscribers returns a snapshot of the channel ids subscribed to the entry.
func (e *Entry) Subscribers() []string {
	out := make([]string, 0, len(e.subscribers))
	for id := range e.subscribers {
		out = append(out, id)
	}
	return out
}

// Store holds the currently active models keyed by model id. All methods are
// safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	models map[string]*Entry
	obs    ports.Observability
}

func NewStore(obs ports.Observability) *Store {
	return &Store{
		models: make(map[string]*Entry),
		obs:    obs,
	}
}

// Add registers a model. Registering an id that is already present is a
// logic error and is rejected.
func (s *Store) Add(m ports.Model) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[m.ID()]; ok {
		return nil, fmt.Errorf("model %q already registered", m.ID())
	}
	e := &Entry{
		Model:       m,
		subscribers: make(map[string]struct{}),
	}
	s.models[m.ID()] = e
	s.obs.SetGauge("streamstory_active_models", float64(len(s.models)))
	s.obs.LogInfo("model registered", ports.Field{Key: "model", Value: m.ID()})
	return e, nil
}

// Remove unregisters a model and returns its entry so the caller can release
// its subscriptions. The second return is false when the id is unknown.
func (s *Store) Remove(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.models[id]
	if !ok {
		return nil, false
	}
	delete(s.models, id)
	s.obs.SetGauge("streamstory_active_models", float64(len(s.models)))
	s.obs.LogInfo("model unregistered", ports.Field{Key: "model", Value: id})
	return e, true
}

// Get looks up an active model entry by id.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.models[id]
	return e, ok
}

// Len reports the number of active models.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

// AddSubscriber attaches a web channel to a model. A channel belongs to at
// most one model, so any previous attachment is released first. It reports
// false when the model is not active.
func (s *Store) AddSubscriber(modelID, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.models[modelID]
	if !ok {
		return false
	}
	for _, other := range s.models {
		delete(other.subscribers, channelID)
	}
	e.subscribers[channelID] = struct{}{}
	return true
}

// RemoveSubscriber detaches a web channel from whichever model holds it.
// Unknown channels are ignored.
func (s *Store) RemoveSubscriber(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.models {
		delete(e.subscribers, channelID)
	}
}

// SubscribersOf returns a snapshot of the channels subscribed to a model.
func (s *Store) SubscribersOf(modelID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.models[modelID]
	if !ok {
		return nil
	}
	return e.Subscribers()
}

// SendToModel delivers a payload to every channel subscribed to the model.
// Send failures are logged and do not stop delivery to other channels.
func (s *Store) SendToModel(modelID string, payload []byte, sender ports.PushSender) {
	for _, ch := range s.SubscribersOf(modelID) {
		if err := sender.Send(ch, payload); err != nil {
			s.obs.LogError("push to channel failed", err,
				ports.Field{Key: "model", Value: modelID},
				ports.Field{Key: "channel", Value: ch})
		}
	}
}

// DistributeToAll delivers a payload to every channel of every active model.
// Iteration works over a snapshot, so a model removed mid-broadcast is not
// delivered to.
func (s *Store) DistributeToAll(payload []byte, sender ports.PushSender) {
	for _, id := range s.IDs() {
		if _, ok := s.Get(id); !ok {
			continue
		}
		s.SendToModel(id, payload, sender)
	}
}

// UpdateModels feeds a measurement to every active model. A model that fails
// to update is logged and skipped; the others still receive the measurement.
func (s *Store) UpdateModels(m domain.Measurement) {
	s.mu.RLock()
	entries := make([]*Entry, 0, len(s.models))
	for _, e := range s.models {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		if err := e.Model.Update(m); err != nil {
			s.obs.LogError("model update failed", err,
				ports.Field{Key: "model", Value: e.Model.ID()})
		}
	}
}

// IDs returns a snapshot of the registered model ids.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.models))
	for id := range s.models {
		out = append(out, id)
	}
	return out
}
