package ports

import (
	"context"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
)

// Subscription is a handle to a registered callback. Unsubscribe is
// idempotent.
type Subscription interface {
	Unsubscribe()
}

// ModelEvents exposes the callback surface of an online model. Each
// Subscribe method registers an independent observer and returns a handle
// that detaches it.
type ModelEvents interface {
	SubscribeStateChanged(fn func(states []domain.StateInfo)) Subscription
	SubscribeAnomaly(fn func(description string)) Subscription
	SubscribeOutlier(fn func(observation domain.Observation)) Subscription
	SubscribePrediction(fn func(p domain.ModelPrediction)) Subscription
	SubscribeActivity(fn func(startTime, endTime int64, name string)) Subscription
}

// Model is a handle to a loaded online analytics model.
type Model interface {
	ID() string
	Events() ModelEvents
	StateName(stateID int) string
	TimeUnit() string
	Update(m domain.Measurement) error
	StateMetadata(stateID int) map[string]float64
}

// Pipeline is the realtime feature pipeline shared by all active models.
type Pipeline interface {
	InsertRaw(m domain.Measurement) error
	SubscribeValue(fn func(m domain.Measurement)) Subscription
	SubscribeCoefficient(fn func(c domain.Coefficient)) Subscription
	SetCoefficientCalc(enabled bool)
	IsClosed() bool
	Close() error
}

// BuildSpec describes a model build request.
type BuildSpec struct {
	Username string
	Dataset  string
	Name     string
	Config   map[string]interface{}
}

// ModelBuilder constructs new models and loads stored ones. Build reports
// progress through the callback as it advances; it returns the stored model
// file handle on success.
type ModelBuilder interface {
	Build(ctx context.Context, spec BuildSpec, progress func(pct int, status string)) (string, error)
	LoadOnlineModel(file string, pipeline Pipeline) (Model, error)
}
