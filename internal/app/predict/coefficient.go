package predict

import (
	"encoding/json"

	"github.com/JozefStefanInstitute/StreamStory/internal/app/registry"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// CoeffHandler consumes friction coefficients from the pipeline. Every
// coefficient is broadcast to the UI channels and published to the broker;
// coefficients whose deviation crosses the minor threshold additionally
// trigger a dispatched prediction.
type CoeffHandler struct {
	intensities *Intensities
	dispatcher  *Dispatcher
	broker      ports.Broker
	topics      ports.Topics
	resolver    ports.TopicResolver
	store       *registry.Store
	sender      ports.PushSender
	obs         ports.Observability
}

func NewCoeffHandler(intensities *Intensities, dispatcher *Dispatcher, broker ports.Broker, topics ports.Topics, resolver ports.TopicResolver, store *registry.Store, sender ports.PushSender, obs ports.Observability) *CoeffHandler {
	return &CoeffHandler{
		intensities: intensities,
		dispatcher:  dispatcher,
		broker:      broker,
		topics:      topics,
		resolver:    resolver,
		store:       store,
		sender:      sender,
		obs:         obs,
	}
}

// HandleCoefficient processes one coefficient event. An unknown event id is
// fatal for that event only and is returned as UnknownEventIDError.
func (h *CoeffHandler) HandleCoefficient(c domain.Coefficient) error {
	content := domain.CoeffContent{
		EventID: c.EventID,
		Time:    c.Timestamp,
		Value:   c.Value,
		Std:     c.Std,
		ZScore:  c.ZScore,
	}

	var topic string
	var op ports.Operation
	switch c.EventID {
	case "swivel":
		topic = h.topics.CoeffSwivel
		op = ports.OpFrictionSwivel
	case "gearbox":
		topic = h.topics.CoeffGearbox
		op = ports.OpFrictionGearbox
	default:
		return &domain.UnknownEventIDError{EventID: c.EventID}
	}

	payload, err := json.Marshal(content)
	if err != nil {
		return err
	}

	if err := h.broker.Publish(topic, payload); err != nil {
		h.obs.LogError("publish coefficient failed", err,
			ports.Field{Key: "topic", Value: topic})
	}
	for _, t := range h.resolver.Topics(op, "") {
		if err := h.broker.Publish(t, payload); err != nil {
			h.obs.LogError("publish coefficient to output topic failed", err,
				ports.Field{Key: "topic", Value: t})
		}
	}

	env := domain.Envelope{Type: domain.MsgCoeff, Time: c.Timestamp, Content: content}
	if envPayload, err := json.Marshal(env); err != nil {
		h.obs.LogError("marshal coeff envelope failed", err)
	} else {
		h.store.DistributeToAll(envPayload, h.sender)
	}

	if pdf := h.intensities.MapDeviation(c.ZScore); pdf != nil {
		h.dispatcher.DispatchPrediction(domain.PredictionContent{
			Time:    c.Timestamp,
			EventID: c.EventID,
			PDF:     *pdf,
		}, map[string]float64{
			"coeff":  c.Value,
			"std":    c.Std,
			"zScore": c.ZScore,
		})
	}
	return nil
}
