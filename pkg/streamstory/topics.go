package streamstory

import (
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// TopicTable is an in-memory TopicResolver. Downstream systems register the
// topics they want an operation's events published to, either globally or for
// a single model. Topics registered with an empty model id apply to every
// model.
type TopicTable struct {
	mu     sync.RWMutex
	topics map[string][]string
}

func NewTopicTable() *TopicTable {
	return &TopicTable{topics: make(map[string][]string)}
}

func key(op ports.Operation, modelID string) string {
	return string(op) + "|" + modelID
}

// Register subscribes a topic to an operation. Duplicate registrations are
// ignored.
func (t *TopicTable) Register(op ports.Operation, modelID, topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(op, modelID)
	for _, existing := range t.topics[k] {
		if existing == topic {
			return
		}
	}
	t.topics[k] = append(t.topics[k], topic)
}

// Deregister removes a topic subscription. Unknown registrations are a no-op.
func (t *TopicTable) Deregister(op ports.Operation, modelID, topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(op, modelID)
	for i, existing := range t.topics[k] {
		if existing == topic {
			t.topics[k] = append(t.topics[k][:i], t.topics[k][i+1:]...)
			if len(t.topics[k]) == 0 {
				delete(t.topics, k)
			}
			return
		}
	}
}

// Topics returns the global registrations for the operation plus those bound
// to the given model.
func (t *TopicTable) Topics(op ports.Operation, modelID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := append([]string(nil), t.topics[key(op, "")]...)
	if modelID != "" {
		out = append(out, t.topics[key(op, modelID)]...)
	}
	return out
}

var _ ports.TopicResolver = (*TopicTable)(nil)
