package predict

import (
	"encoding/json"

	"github.com/JozefStefanInstitute/StreamStory/internal/app/registry"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Dispatcher is the single funnel for exponential time-to-event predictions.
// Both the coefficient path and the derived-event path go through it, so the
// outbound contract stays the same regardless of trigger source.
type Dispatcher struct {
	broker ports.Broker
	topics ports.Topics
	store  *registry.Store
	sender ports.PushSender
	obs    ports.Observability
}

func NewDispatcher(broker ports.Broker, topics ports.Topics, store *registry.Store, sender ports.PushSender, obs ports.Observability) *Dispatcher {
	return &Dispatcher{
		broker: broker,
		topics: topics,
		store:  store,
		sender: sender,
		obs:    obs,
	}
}

// DispatchPrediction publishes a prediction to the fixed broker topic and
// broadcasts a UI copy to every active model. The rate in the content is
// monthly; the broker copy is converted to an hourly rate.
func (d *Dispatcher) DispatchPrediction(content domain.PredictionContent, eventProps map[string]float64) {
	perHour := content.PDF.Lambda / (30 * 24)

	brokerMsg := domain.NewExpPrediction(perHour, "hour", content.Time, eventProps)
	brokerMsg.EventID = content.EventID

	if payload, err := json.Marshal(brokerMsg); err != nil {
		d.obs.LogError("marshal broker prediction failed", err)
	} else if err := d.broker.Publish(d.topics.Prediction, payload); err != nil {
		d.obs.LogError("publish prediction failed", err,
			ports.Field{Key: "topic", Value: d.topics.Prediction})
	}

	env := domain.Envelope{Type: domain.MsgPrediction, Time: content.Time, Content: content}
	payload, err := json.Marshal(env)
	if err != nil {
		d.obs.LogError("marshal prediction envelope failed", err)
		return
	}
	d.store.DistributeToAll(payload, d.sender)
	d.obs.IncCounter("streamstory_predictions_dispatched_total", 1)
}
