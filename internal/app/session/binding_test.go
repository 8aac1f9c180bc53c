package session

import (
	"testing"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

type nopObs struct{}

func (nopObs) LogDebug(string, ...ports.Field)        {}
func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogWarn(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) ObserveLatency(string, float64)         {}
func (nopObs) SetGauge(string, float64)               {}

type fakeBase struct {
	closed bool
}

func (b *fakeBase) IsClosed() bool { return b.closed }
func (b *fakeBase) Close() error {
	b.closed = true
	return nil
}

func TestBindReplacesAndClosesPrevious(t *testing.T) {
	realtime := &fakeBase{}
	m := NewManager(realtime, nopObs{})

	first := &fakeBase{}
	m.Bind("sess", "ana", nil, first, "model1.bin")

	second := &fakeBase{}
	m.Bind("sess", "ana", nil, second, "model2.bin")

	if !first.closed {
		t.Fatal("previous base not closed on rebind")
	}
	if second.closed {
		t.Fatal("current base must stay open")
	}

	b, ok := m.Get("sess")
	if !ok || b.ModelFile != "model2.bin" {
		t.Fatalf("unexpected binding %+v", b)
	}
	if m.Len() != 1 {
		t.Fatalf("expected one binding, got %d", m.Len())
	}
}

func TestRealtimeBaseNeverClosed(t *testing.T) {
	realtime := &fakeBase{}
	m := NewManager(realtime, nopObs{})

	m.Bind("sess", "ana", nil, realtime, "realtime")
	m.Bind("sess", "ana", nil, &fakeBase{}, "own.bin")

	if realtime.closed {
		t.Fatal("shared realtime base was closed")
	}

	m.Bind("sess2", "bo", nil, realtime, "realtime")
	m.Clear("sess2")
	if realtime.closed {
		t.Fatal("shared realtime base was closed on clear")
	}
}

func TestClear(t *testing.T) {
	m := NewManager(&fakeBase{}, nopObs{})

	base := &fakeBase{}
	m.Bind("sess", "ana", nil, base, "own.bin")
	m.Clear("sess")

	if !base.closed {
		t.Fatal("base not closed on clear")
	}
	if _, ok := m.Get("sess"); ok {
		t.Fatal("binding still present after clear")
	}

	// clearing an unknown session is a no-op
	m.Clear("ghost")
}
