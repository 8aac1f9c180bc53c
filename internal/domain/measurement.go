package domain

// Measurement is one raw sensor reading targeted at a named store. Timestamps
// are epoch milliseconds and must be strictly increasing per store.
type Measurement struct {
	Store     string             `json:"store"`
	Timestamp int64              `json:"timestamp"`
	Value     map[string]float64 `json:"value"`
}

// Observation is a transformed record emitted by the analytics pipeline after
// a raw measurement has been ingested. It is what online models are updated
// with, independent of which store the raw record targeted.
type Observation struct {
	Timestamp int64              `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// Coefficient is a deviation coefficient computed by the analytics pipeline
// for a monitored component, identified by its event id.
type Coefficient struct {
	EventID   string  `json:"eventId"`
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Std       float64 `json:"std"`
	ZScore    float64 `json:"zScore"`
}

// ModelRecord is the persisted metadata row describing a model.
type ModelRecord struct {
	ID         string
	Name       string
	Username   string
	Dataset    string
	File       string
	IsRealtime bool
	IsActive   bool
	IsPublic   bool
}

// EnrichedRecord is a field-completed event appended to the fixed downstream
// enriched store.
type EnrichedRecord struct {
	Timestamp int64              `json:"timestamp"`
	Fields    map[string]float64 `json:"fields"`
}
