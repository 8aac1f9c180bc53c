package kafka

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

func TestPublisherReusesWriters(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, nopObs{})
	defer p.Close()

	a := p.writer("predictions")
	b := p.writer("predictions")
	if a != b {
		t.Fatal("expected one writer per topic")
	}
	if c := p.writer("activities"); c == a {
		t.Fatal("expected distinct writers for distinct topics")
	}
}

func TestPublisherCloseIsIdempotent(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, nopObs{})

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// publishing after close is a silent no-op
	if err := p.Publish("predictions", []byte("x")); err != nil {
		t.Fatalf("publish after close: %v", err)
	}
}
