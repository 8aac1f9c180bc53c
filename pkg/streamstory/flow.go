package streamstory

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → Ingest → Deliver
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// IngestOption configures the measurement-in side of the runtime.
type IngestOption func(*Flow)

// DeliverOption configures the event-out side of the runtime.
type DeliverOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow
// builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before
// building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw RuntimeOption values to the builder for advanced
// scenarios.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Ingest records measurement-side overrides (collector, pipeline, gate
// observability).
func (f *Flow) Ingest(opts ...IngestOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Deliver records event-side overrides and builds a Runtime ready to run.
func (f *Flow) Deliver(opts ...DeliverOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for Deliver + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...DeliverOption) error {
	rt, err := f.Deliver(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// IngestCollector injects a custom measurement source.
func IngestCollector(c Collector) IngestOption {
	return func(f *Flow) {
		if f != nil && c != nil {
			f.appendOptions(WithCollector(c))
		}
	}
}

// IngestPipeline connects an external stream-processing engine.
func IngestPipeline(p Pipeline) IngestOption {
	return func(f *Flow) {
		if f != nil && p != nil {
			f.appendOptions(WithPipeline(p))
		}
	}
}

// IngestObservability overrides the default Prometheus-based observability
// stack.
func IngestObservability(obs Observability) IngestOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// DeliverBroker injects a custom broker implementation.
func DeliverBroker(b Broker) DeliverOption {
	return func(f *Flow) {
		if f != nil && b != nil {
			f.appendOptions(WithBroker(b))
		}
	}
}

// DeliverSender replaces the websocket hub with a custom channel sender.
func DeliverSender(s PushSender) DeliverOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithPushSender(s))
		}
	}
}

// DeliverCallback installs a sender built from a simple callback function.
func DeliverCallback(name string, fn SendFunc) DeliverOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithPushSender(NewCallbackSender(name, fn)))
		}
	}
}

// DeliverObservability replaces the default observability backend.
func DeliverObservability(obs Observability) DeliverOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
