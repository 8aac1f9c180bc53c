package router

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JozefStefanInstitute/StreamStory/internal/app/registry"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Router subscribes to the event surface of each active model and translates
// every event kind into push-channel messages and broker publishes. The two
// sinks are independent branches; a failure in one never aborts the other.
type Router struct {
	store    *registry.Store
	sender   ports.PushSender
	broker   ports.Broker
	topics   ports.Topics
	resolver ports.TopicResolver
	db       ports.Database
	obs      ports.Observability

	msgLog          ports.MessageLog
	statesJournal   ports.Journal
	activityJournal func(modelID string) ports.Journal

	now func() int64
}

type Option func(*Router)

// WithMessageLog stores every push-channel envelope so reconnecting clients
// can catch up.
func WithMessageLog(log ports.MessageLog) Option {
	return func(r *Router) { r.msgLog = log }
}

// WithStatesJournal appends every state change to a durable journal.
func WithStatesJournal(j ports.Journal) Option {
	return func(r *Router) { r.statesJournal = j }
}

// WithActivityJournal appends recognized activities to a per-model journal.
func WithActivityJournal(open func(modelID string) ports.Journal) Option {
	return func(r *Router) { r.activityJournal = open }
}

func withClock(now func() int64) Option {
	return func(r *Router) { r.now = now }
}

func New(store *registry.Store, sender ports.PushSender, broker ports.Broker, topics ports.Topics, resolver ports.TopicResolver, db ports.Database, obs ports.Observability, opts ...Option) *Router {
	r := &Router{
		store:    store,
		sender:   sender,
		broker:   broker,
		topics:   topics,
		resolver: resolver,
		db:       db,
		obs:      obs,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach registers all five event subscriptions for an active model and
// records them on the registry entry so Detach can release them.
func (r *Router) Attach(e *registry.Entry) {
	model := e.Model
	events := model.Events()
	id := model.ID()

	e.Subscriptions = []ports.Subscription{
		events.SubscribeStateChanged(func(states []domain.StateInfo) {
			r.onStateChanged(id, states)
		}),
		events.SubscribeAnomaly(func(desc string) {
			r.obs.LogWarn("anomaly detected, not dispatched",
				ports.Field{Key: "model", Value: id},
				ports.Field{Key: "description", Value: desc})
		}),
		events.SubscribeOutlier(func(obs domain.Observation) {
			r.onOutlier(id, obs)
		}),
		events.SubscribePrediction(func(p domain.ModelPrediction) {
			r.onPrediction(model, p)
		}),
		events.SubscribeActivity(func(start, end int64, name string) {
			r.onActivity(id, start, end, name)
		}),
	}

	r.obs.LogInfo("event subscriptions attached", ports.Field{Key: "model", Value: id})
}

// Detach releases the subscriptions held for a model. Symmetric with Attach,
// so reactivation never leaves stale dual registrations.
func (r *Router) Detach(e *registry.Entry) {
	for _, sub := range e.Subscriptions {
		sub.Unsubscribe()
	}
	e.Subscriptions = nil
	r.obs.LogInfo("event subscriptions detached", ports.Field{Key: "model", Value: e.Model.ID()})
}

func (r *Router) sendToModel(modelID string, env domain.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		r.obs.LogError("marshal envelope failed", err,
			ports.Field{Key: "type", Value: string(env.Type)})
		return
	}
	r.store.SendToModel(modelID, payload, r.sender)

	if r.msgLog != nil {
		if err := r.msgLog.Append(modelID, env); err != nil {
			r.obs.LogError("message log append failed", err,
				ports.Field{Key: "model", Value: modelID})
		}
	}
}

func (r *Router) publish(topic string, payload []byte) {
	if err := r.broker.Publish(topic, payload); err != nil {
		r.obs.LogError("broker publish failed", err,
			ports.Field{Key: "topic", Value: topic})
	}
}

func (r *Router) onStateChanged(modelID string, states []domain.StateInfo) {
	r.obs.LogDebug("state changed", ports.Field{Key: "model", Value: modelID})

	r.sendToModel(modelID, domain.Envelope{
		Type:    domain.MsgStateChanged,
		Content: states,
	})

	if r.statesJournal != nil {
		line, err := json.Marshal(map[string]interface{}{
			"time":   r.now(),
			"states": states,
		})
		if err == nil {
			if err := r.statesJournal.AppendLine(string(line)); err != nil {
				r.obs.LogError("states journal append failed", err)
			}
		}
	}
}

func (r *Router) onOutlier(modelID string, obs domain.Observation) {
	r.obs.LogDebug("outlier detected", ports.Field{Key: "model", Value: modelID})

	brokerMsg := domain.NewExpPrediction(100.1, "minute", r.now(), nil)
	if payload, err := json.Marshal(brokerMsg); err == nil {
		r.publish(r.topics.Prediction, payload)
		for _, t := range r.resolver.Topics(ports.OpPrediction, modelID) {
			r.publish(t, payload)
		}
	}

	r.sendToModel(modelID, domain.Envelope{
		Type:    domain.MsgOutlier,
		Content: obs,
	})
}

func (r *Router) onPrediction(model ports.Model, p domain.ModelPrediction) {
	id := model.ID()
	r.obs.LogDebug("prediction emitted",
		ports.Field{Key: "model", Value: id},
		ports.Field{Key: "pdf_len", Value: len(p.ProbV)})

	currName := model.StateName(p.CurrState)
	if currName == "" {
		currName = fmt.Sprintf("%d", p.CurrState)
	}
	targetName := model.StateName(p.TargetState)
	if targetName == "" {
		targetName = fmt.Sprintf("%d", p.TargetState)
	}

	// the event id lookup is best effort, a database miss must not stop
	// either branch
	eventID, err := r.db.FetchStateProperty(id, p.TargetState, "eventId")
	if err != nil {
		r.obs.LogError("event id lookup failed", err,
			ports.Field{Key: "model", Value: id},
			ports.Field{Key: "state", Value: p.TargetState})
		eventID = ""
	}

	uiContent := domain.StatePredictionContent{
		Time:        p.Timestamp,
		CurrState:   currName,
		TargetState: targetName,
		EventID:     eventID,
		Probability: p.Probability,
		PDF: domain.Histogram{
			Type:  "histogram",
			ProbV: p.ProbV,
			TimeV: p.TimeV,
		},
	}

	brokerMsg := domain.HistPrediction{
		Timestamp: p.Timestamp,
		EventID:   eventID,
		TimeV:     p.TimeV,
		ProbV:     p.ProbV,
		TimeUnit:  model.TimeUnit(),
		Metadata:  model.StateMetadata(p.CurrState),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.sendToModel(id, domain.Envelope{
			Type:    domain.MsgStatePrediction,
			Time:    p.Timestamp,
			Content: uiContent,
		})
	}()
	go func() {
		defer wg.Done()
		payload, err := json.Marshal(brokerMsg)
		if err != nil {
			r.obs.LogError("marshal prediction failed", err)
			return
		}
		r.publish(r.topics.Prediction, payload)
		for _, t := range r.resolver.Topics(ports.OpPrediction, id) {
			r.publish(t, payload)
		}
	}()
	wg.Wait()

	r.obs.LogDebug("prediction dispatched", ports.Field{Key: "model", Value: id})
}

func (r *Router) onActivity(modelID string, start, end int64, name string) {
	r.obs.LogDebug("activity detected",
		ports.Field{Key: "model", Value: modelID},
		ports.Field{Key: "activity", Value: name})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		r.sendToModel(modelID, domain.Envelope{
			Type: domain.MsgActivity,
			Content: domain.ActivityContent{
				Start: start,
				End:   end,
				Name:  name,
			},
		})
	}()
	go func() {
		defer wg.Done()
		payload, err := json.Marshal(domain.ActivityEvent{
			ActivityID:  name,
			StartTime:   start,
			EndTime:     end,
			Description: "(empty)",
		})
		if err != nil {
			return
		}
		for _, t := range r.resolver.Topics(ports.OpActivity, modelID) {
			r.publish(t, payload)
		}
	}()
	go func() {
		defer wg.Done()
		if r.activityJournal == nil {
			return
		}
		j := r.activityJournal(modelID)
		if j == nil {
			return
		}
		escaped := strings.ReplaceAll(name, `"`, `\"`)
		line := fmt.Sprintf(`%d,%d,"%s"`, start, end, escaped)
		if err := j.AppendLine(line); err != nil {
			r.obs.LogError("activity journal append failed", err,
				ports.Field{Key: "model", Value: modelID})
		}
	}()
	wg.Wait()
}
