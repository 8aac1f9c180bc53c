package domain

import "encoding/json"

// ExpPrediction is the broker-schema event for an exponentially distributed
// time-to-event prediction.
type ExpPrediction struct {
	Timestamp       int64              `json:"timestamp"`
	EventID         string             `json:"eventId,omitempty"`
	PDFType         string             `json:"pdfType"`
	Lambda          float64            `json:"lambda"`
	TimeUnit        string             `json:"timeUnit"`
	EventProperties map[string]float64 `json:"eventProperties,omitempty"`
}

// NewExpPrediction builds a broker exponential-prediction event.
func NewExpPrediction(lambda float64, timeUnit string, timestamp int64, props map[string]float64) ExpPrediction {
	return ExpPrediction{
		Timestamp:       timestamp,
		PDFType:         "exponential",
		Lambda:          lambda,
		TimeUnit:        timeUnit,
		EventProperties: props,
	}
}

// HistPrediction is the broker-schema event for a histogram-shaped target
// state prediction, enriched with per-state metadata.
type HistPrediction struct {
	Timestamp int64              `json:"timestamp"`
	EventID   string             `json:"eventId"`
	TimeV     []float64          `json:"timeV"`
	ProbV     []float64          `json:"probV"`
	TimeUnit  string             `json:"timeUnit"`
	Metadata  map[string]float64 `json:"metadata,omitempty"`
}

// ActivityEvent is the broker-schema event for a recognized activity.
type ActivityEvent struct {
	ActivityID  string `json:"activityId"`
	StartTime   int64  `json:"startTime"`
	EndTime     int64  `json:"endTime"`
	Description string `json:"description"`
}

// InboundType discriminates messages arriving from the broker.
type InboundType string

const (
	InboundRaw      InboundType = "raw"
	InboundEnriched InboundType = "enriched"
	InboundCEP      InboundType = "cep"
)

// InboundMessage is the envelope of a message received from the broker.
// Payload is decoded according to Type by the inbound classifier.
type InboundMessage struct {
	Type    InboundType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DerivedEvent is a parsed complex-event-processing (cep) payload. Timestamp
// is kept as json.Number so a non-numeric value can be detected and the event
// rejected instead of silently defaulting.
type DerivedEvent struct {
	EventName         string             `json:"eventName"`
	Timestamp         json.Number        `json:"timestamp"`
	LacqueringLineID  string             `json:"lacqueringLineId,omitempty"`
	MouldingMachineID string             `json:"mouldingMachineId,omitempty"`
	ShuttleID         string             `json:"shuttleId,omitempty"`
	TimeDifference    float64            `json:"timeDifference,omitempty"`
	Fields            map[string]float64 `json:"fields,omitempty"`
}
