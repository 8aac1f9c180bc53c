package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

const publishTimeout = 5 * time.Second

// Publisher writes messages with one lazily created writer per topic.
// Publish is fire and forget: the write happens on its own goroutine with a
// bounded timeout, failures are logged and counted, never surfaced to the
// dispatching path.
type Publisher struct {
	brokers []string
	obs     ports.Observability

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
	wg      sync.WaitGroup
}

func NewPublisher(brokers []string, obs ports.Observability) *Publisher {
	return &Publisher{
		brokers: brokers,
		obs:     obs,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Publisher) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	p.writers[topic] = w
	return w
}

func (p *Publisher) Publish(topic string, payload []byte) error {
	w := p.writer(topic)
	if w == nil {
		return nil
	}

	p.obs.IncCounter("streamstory_broker_published_total", 1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := w.WriteMessages(ctx, kafka.Message{Value: payload}); err != nil {
			p.obs.IncCounter("streamstory_broker_publish_failed_total", 1)
			p.obs.LogError("kafka publish failed", err,
				ports.Field{Key: "topic", Value: topic})
		}
	}()
	return nil
}

// Close waits for in-flight publishes and closes every writer. Safe to call
// multiple times.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	writers := p.writers
	p.writers = make(map[string]*kafka.Writer)
	p.mu.Unlock()

	p.wg.Wait()

	var firstErr error
	for _, w := range writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ ports.Broker = (*Publisher)(nil)
