package msglog

import (
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// MemLog is a bounded in-memory message log keeping the newest maxKept
// envelopes per model in FIFO order. It is the fallback when no Redis is
// configured.
type MemLog struct {
	mu      sync.Mutex
	data    map[string][]domain.Envelope
	maxKept int
}

func NewMemLog(maxKept int) *MemLog {
	if maxKept <= 0 {
		maxKept = 100
	}
	return &MemLog{
		data:    make(map[string][]domain.Envelope),
		maxKept: maxKept,
	}
}

func (l *MemLog) Append(modelID string, env domain.Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	envs := append(l.data[modelID], env)
	if len(envs) > l.maxKept {
		envs = envs[len(envs)-l.maxKept:]
	}
	l.data[modelID] = envs
	return nil
}

func (l *MemLog) Latest(modelID string, n int) ([]domain.Envelope, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	envs := l.data[modelID]
	if n <= 0 || n > len(envs) {
		n = len(envs)
	}
	out := make([]domain.Envelope, n)
	copy(out, envs[len(envs)-n:])
	return out, nil
}

func (l *MemLog) Count(modelID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data[modelID]), nil
}

var _ ports.MessageLog = (*MemLog)(nil)
