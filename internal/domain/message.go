package domain

// MessageType discriminates the outbound envelope union.
type MessageType string

const (
	MsgStateChanged    MessageType = "stateChanged"
	MsgOutlier         MessageType = "outlier"
	MsgStatePrediction MessageType = "statePrediction"
	MsgActivity        MessageType = "activity"
	MsgCoeff           MessageType = "coeff"
	MsgPrediction      MessageType = "prediction"
)

// Envelope is the message contract shared by push-channel clients and the
// broker fan-out. Content shape depends on Type.
type Envelope struct {
	Type    MessageType `json:"type"`
	Time    int64       `json:"time,omitempty"`
	Content interface{} `json:"content"`
}

// StateInfo describes one model state as reported by a state-changed event.
type StateInfo struct {
	ID     int     `json:"id"`
	Height float64 `json:"height"`
	Name   string  `json:"name,omitempty"`
}

// Histogram is the probability-distribution shape attached to state
// predictions sent to the UI.
type Histogram struct {
	Type  string    `json:"type"`
	ProbV []float64 `json:"probV"`
	TimeV []float64 `json:"timeV"`
}

// Exponential is an exponentially distributed time-to-event prediction with
// rate parameter Lambda.
type Exponential struct {
	Type   string  `json:"type"`
	Lambda float64 `json:"lambda"`
}

// NewExponential builds an exponential PDF with the conventional type tag.
func NewExponential(lambda float64) Exponential {
	return Exponential{Type: "exponential", Lambda: lambda}
}

// StatePredictionContent is the content of a statePrediction envelope.
type StatePredictionContent struct {
	Time        int64     `json:"time"`
	CurrState   string    `json:"currState"`
	TargetState string    `json:"targetState"`
	EventID     string    `json:"eventId,omitempty"`
	Probability float64   `json:"probability"`
	PDF         Histogram `json:"pdf"`
}

// ActivityContent is the content of an activity envelope.
type ActivityContent struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Name  string `json:"name"`
}

// PredictionContent is the content of a prediction envelope produced by the
// coefficient mapper or the derived-event path.
type PredictionContent struct {
	Time    int64       `json:"time"`
	EventID string      `json:"eventId"`
	PDF     Exponential `json:"pdf"`
}

// CoeffContent is the content of a coeff envelope broadcast to every active
// model when the pipeline reports a deviation coefficient.
type CoeffContent struct {
	EventID string  `json:"eventId"`
	Time    int64   `json:"time"`
	Value   float64 `json:"value"`
	Std     float64 `json:"std"`
	ZScore  float64 `json:"zScore"`
}

// ModelPrediction carries the raw prediction event emitted by an online
// model before the router shapes it for the two sinks.
type ModelPrediction struct {
	Timestamp   int64
	CurrState   int
	TargetState int
	Probability float64
	ProbV       []float64
	TimeV       []float64
}
