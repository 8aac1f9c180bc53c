package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

type PromObs struct {
	log      *logrus.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs(log *logrus.Logger) *PromObs {
	if log == nil {
		log = logrus.StandardLogger()
	}

	accepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamstory_ingest_accepted_total",
		Help: "Measurements accepted by the ingest gate.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamstory_ingest_rejected_total",
		Help: "Measurements rejected for violating time ordering.",
	})
	predictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamstory_predictions_dispatched_total",
		Help: "Predictions dispatched to the broker and push channels.",
	})
	builds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamstory_builds_started_total",
		Help: "Model builds started.",
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamstory_broker_published_total",
		Help: "Messages handed to the broker producer.",
	})
	publishFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamstory_broker_publish_failed_total",
		Help: "Broker publishes that failed after the async handoff.",
	})
	activeModels := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamstory_active_models",
		Help: "Number of models currently in the registry.",
	})
	channels := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamstory_channels_connected",
		Help: "Connected push channels.",
	})
	buildLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamstory_build_duration_seconds",
		Help:    "Wall time of asynchronous model builds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	})

	prometheus.MustRegister(accepted, rejected, predictions, builds, published, publishFailed, activeModels, channels, buildLatency)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"streamstory_ingest_accepted_total":        accepted,
			"streamstory_ingest_rejected_total":        rejected,
			"streamstory_predictions_dispatched_total": predictions,
			"streamstory_builds_started_total":         builds,
			"streamstory_broker_published_total":       published,
			"streamstory_broker_publish_failed_total":  publishFailed,
		},
		gauges: map[string]prometheus.Gauge{
			"streamstory_active_models":      activeModels,
			"streamstory_channels_connected": channels,
		},
		histos: map[string]prometheus.Observer{
			"streamstory_build_duration_seconds": buildLatency,
		},
	}
}

func logrusFields(fields []ports.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.log.WithFields(logrusFields(fields)).Debug(msg)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.WithFields(logrusFields(fields)).Info(msg)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.WithFields(logrusFields(fields)).Warn(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	entry := p.log.WithFields(logrusFields(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}
