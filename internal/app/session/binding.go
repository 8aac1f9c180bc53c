package session

import (
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Binding ties a session to at most one loaded model and the base it reads
// from.
type Binding struct {
	SessionID string
	Username  string
	Model     ports.Model
	Base      ports.Base
	ModelFile string
}

// Manager tracks the model/base pair bound to each session. Binding a new
// pair first tears down the previous one; the shared realtime base is never
// closed by the manager.
type Manager struct {
	mu       sync.Mutex
	bindings map[string]*Binding
	realtime ports.Base
	obs      ports.Observability
}

func NewManager(realtime ports.Base, obs ports.Observability) *Manager {
	return &Manager{
		bindings: make(map[string]*Binding),
		realtime: realtime,
		obs:      obs,
	}
}

// Bind associates a session with a model/base pair, replacing and cleaning
// up any previous pair bound to the same session.
func (m *Manager) Bind(sessionID, username string, model ports.Model, base ports.Base, modelFile string) {
	m.mu.Lock()
	prev := m.bindings[sessionID]
	m.bindings[sessionID] = &Binding{
		SessionID: sessionID,
		Username:  username,
		Model:     model,
		Base:      base,
		ModelFile: modelFile,
	}
	m.mu.Unlock()

	if prev != nil {
		m.release(prev)
	}
}

// Get returns the binding for a session.
func (m *Manager) Get(sessionID string) (*Binding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[sessionID]
	return b, ok
}

// Clear tears down a session's binding. Safe to call for unknown sessions.
func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	b, ok := m.bindings[sessionID]
	delete(m.bindings, sessionID)
	m.mu.Unlock()

	if ok {
		m.release(b)
	}
}

// Len reports the number of bound sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bindings)
}

func (m *Manager) release(b *Binding) {
	if b.Base == nil || b.Base == m.realtime || b.Base.IsClosed() {
		return
	}
	if err := b.Base.Close(); err != nil {
		m.obs.LogError("closing session base failed", err,
			ports.Field{Key: "session", Value: b.SessionID})
		return
	}
	m.obs.LogDebug("session base closed",
		ports.Field{Key: "session", Value: b.SessionID},
		ports.Field{Key: "user", Value: b.Username})
}
