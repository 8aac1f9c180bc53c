package ports

// Operation names an outbound integration stream. The resolver maps one,
// together with the model it concerns, to the broker topics currently
// subscribed to it.
type Operation string

const (
	OpPrediction      Operation = "prediction"
	OpActivity        Operation = "activity"
	OpFrictionSwivel  Operation = "friction-swivel"
	OpFrictionGearbox Operation = "friction-gearbox"
)

// TopicResolver returns the dynamically registered output topics for an
// operation. Operations that are not model specific pass an empty model id.
type TopicResolver interface {
	Topics(op Operation, modelID string) []string
}

// Topics holds the fixed broker topic names.
type Topics struct {
	Prediction   string
	CoeffSwivel  string
	CoeffGearbox string
}

// Broker publishes serialized events to a topic. Publish must not block the
// caller on broker round trips.
type Broker interface {
	Publish(topic string, payload []byte) error
	Close() error
}
