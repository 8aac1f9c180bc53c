package router

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/JozefStefanInstitute/StreamStory/internal/app/registry"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

type nopObs struct{}

func (nopObs) LogDebug(string, ...ports.Field)        {}
func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogWarn(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) ObserveLatency(string, float64)         {}
func (nopObs) SetGauge(string, float64)               {}

// fakeEvents is a hand-rolled event hub that lets tests fire callbacks and
// observe unsubscription.
type fakeEvents struct {
	mu           sync.Mutex
	stateChanged func([]domain.StateInfo)
	anomaly      func(string)
	outlier      func(domain.Observation)
	prediction   func(domain.ModelPrediction)
	activity     func(int64, int64, string)
}

type slotSub struct {
	clear func()
}

func (s slotSub) Unsubscribe() { s.clear() }

func (e *fakeEvents) SubscribeStateChanged(fn func([]domain.StateInfo)) ports.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChanged = fn
	return slotSub{clear: func() { e.mu.Lock(); e.stateChanged = nil; e.mu.Unlock() }}
}

func (e *fakeEvents) SubscribeAnomaly(fn func(string)) ports.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.anomaly = fn
	return slotSub{clear: func() { e.mu.Lock(); e.anomaly = nil; e.mu.Unlock() }}
}

func (e *fakeEvents) SubscribeOutlier(fn func(domain.Observation)) ports.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outlier = fn
	return slotSub{clear: func() { e.mu.Lock(); e.outlier = nil; e.mu.Unlock() }}
}

func (e *fakeEvents) SubscribePrediction(fn func(domain.ModelPrediction)) ports.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prediction = fn
	return slotSub{clear: func() { e.mu.Lock(); e.prediction = nil; e.mu.Unlock() }}
}

func (e *fakeEvents) SubscribeActivity(fn func(int64, int64, string)) ports.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activity = fn
	return slotSub{clear: func() { e.mu.Lock(); e.activity = nil; e.mu.Unlock() }}
}

func (e *fakeEvents) fireStateChanged(states []domain.StateInfo) {
	e.mu.Lock()
	fn := e.stateChanged
	e.mu.Unlock()
	if fn != nil {
		fn(states)
	}
}

func (e *fakeEvents) firePrediction(p domain.ModelPrediction) {
	e.mu.Lock()
	fn := e.prediction
	e.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (e *fakeEvents) fireOutlier(o domain.Observation) {
	e.mu.Lock()
	fn := e.outlier
	e.mu.Unlock()
	if fn != nil {
		fn(o)
	}
}

func (e *fakeEvents) fireActivity(start, end int64, name string) {
	e.mu.Lock()
	fn := e.activity
	e.mu.Unlock()
	if fn != nil {
		fn(start, end, name)
	}
}

type fakeModel struct {
	id     string
	events *fakeEvents
	names  map[int]string
	meta   map[string]float64
}

func (m *fakeModel) ID() string                { return m.id }
func (m *fakeModel) Events() ports.ModelEvents { return m.events }
func (m *fakeModel) StateName(id int) string   { return m.names[id] }
func (m *fakeModel) TimeUnit() string          { return "hour" }
func (m *fakeModel) StateMetadata(id int) map[string]float64 {
	return m.meta
}
func (m *fakeModel) Update(domain.Measurement) error { return nil }

type fakeBroker struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][][]byte)}
}

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic] = append(b.published[topic], payload)
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[topic])
}

type fakeResolver struct {
	topics map[ports.Operation][]string
}

func (r *fakeResolver) Topics(op ports.Operation, modelID string) []string {
	return r.topics[op]
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[string][][]byte)}
}

func (s *recordingSender) Send(channelID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[channelID] = append(s.sent[channelID], payload)
	return nil
}

func (s *recordingSender) envelopes(t *testing.T, channelID string) []domain.Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Envelope, 0, len(s.sent[channelID]))
	for _, payload := range s.sent[channelID] {
		var env domain.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		out = append(out, env)
	}
	return out
}

type fakeDB struct {
	eventID string
	fail    bool
}

func (d *fakeDB) FetchStateProperty(string, int, string) (string, error) {
	if d.fail {
		return "", errors.New("db unavailable")
	}
	return d.eventID, nil
}
func (d *fakeDB) FetchConfig(...string) (map[string]string, error) { return nil, nil }
func (d *fakeDB) SetConfig(string, string) error                   { return nil }
func (d *fakeDB) FetchActiveModels() ([]domain.ModelRecord, error) { return nil, nil }
func (d *fakeDB) FetchModel(string) (domain.ModelRecord, error) {
	return domain.ModelRecord{}, errors.New("not found")
}
func (d *fakeDB) SetModelActive(string, bool) error { return nil }
func (d *fakeDB) CountActiveModels() (int, error)   { return 0, nil }

type memJournal struct {
	mu    sync.Mutex
	lines []string
}

func (j *memJournal) AppendLine(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lines = append(j.lines, line)
	return nil
}

func (j *memJournal) Lines() ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.lines...), nil
}

func (j *memJournal) Close() error { return nil }

func testTopics() ports.Topics {
	return ports.Topics{
		Prediction:   "predictions",
		CoeffSwivel:  "coeff-swivel",
		CoeffGearbox: "coeff-gearbox",
	}
}

type fixture struct {
	store  *registry.Store
	sender *recordingSender
	broker *fakeBroker
	router *Router
	model  *fakeModel
	entry  *registry.Entry
}

func newFixture(t *testing.T, db ports.Database, resolver ports.TopicResolver, opts ...Option) *fixture {
	t.Helper()

	store := registry.NewStore(nopObs{})
	sender := newRecordingSender()
	broker := newFakeBroker()

	opts = append(opts, withClock(func() int64 { return 42 }))
	r := New(store, sender, broker, testTopics(), resolver, db, nopObs{}, opts...)

	model := &fakeModel{
		id:     "m1",
		events: &fakeEvents{},
		names:  map[int]string{1: "running", 2: "degraded"},
		meta:   map[string]float64{"oil_temp_swivel": 61.5},
	}
	entry, err := store.Add(model)
	if err != nil {
		t.Fatalf("add model: %v", err)
	}
	store.AddSubscriber("m1", "ch-a")
	r.Attach(entry)

	return &fixture{store: store, sender: sender, broker: broker, router: r, model: model, entry: entry}
}

func TestStateChangedGoesToSubscribersOnly(t *testing.T) {
	journal := &memJournal{}
	f := newFixture(t, &fakeDB{}, &fakeResolver{}, WithStatesJournal(journal))

	f.model.events.fireStateChanged([]domain.StateInfo{{ID: 1, Height: 0.5, Name: "running"}})

	envs := f.sender.envelopes(t, "ch-a")
	if len(envs) != 1 || envs[0].Type != domain.MsgStateChanged {
		t.Fatalf("unexpected envelopes %+v", envs)
	}
	if f.broker.count("predictions") != 0 {
		t.Fatal("state change must not reach the broker")
	}

	lines, _ := journal.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "running") {
		t.Fatalf("states journal not written: %v", lines)
	}
}

func TestOutlierFansOutToBothSinks(t *testing.T) {
	resolver := &fakeResolver{topics: map[ports.Operation][]string{
		ports.OpPrediction: {"fzi-pred-out"},
	}}
	f := newFixture(t, &fakeDB{}, resolver)

	f.model.events.fireOutlier(domain.Observation{Timestamp: 7, Values: map[string]float64{"v": 1}})

	if f.broker.count("predictions") != 1 {
		t.Fatal("outlier not published to prediction topic")
	}
	if f.broker.count("fzi-pred-out") != 1 {
		t.Fatal("outlier not published to resolved topic")
	}

	envs := f.sender.envelopes(t, "ch-a")
	if len(envs) != 1 || envs[0].Type != domain.MsgOutlier {
		t.Fatalf("unexpected envelopes %+v", envs)
	}
}

func TestPredictionBothBranches(t *testing.T) {
	f := newFixture(t, &fakeDB{eventID: "swivel"}, &fakeResolver{topics: map[ports.Operation][]string{
		ports.OpPrediction: {"fzi-pred-out"},
	}})

	f.model.events.firePrediction(domain.ModelPrediction{
		Timestamp:   1000,
		CurrState:   1,
		TargetState: 2,
		Probability: 0.8,
		ProbV:       []float64{0.1, 0.9},
		TimeV:       []float64{1, 2},
	})

	envs := f.sender.envelopes(t, "ch-a")
	if len(envs) != 1 || envs[0].Type != domain.MsgStatePrediction {
		t.Fatalf("unexpected envelopes %+v", envs)
	}

	if f.broker.count("predictions") != 1 || f.broker.count("fzi-pred-out") != 1 {
		t.Fatal("prediction not published to broker topics")
	}

	var hist domain.HistPrediction
	if err := json.Unmarshal(f.broker.published["predictions"][0], &hist); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if hist.EventID != "swivel" || hist.TimeUnit != "hour" {
		t.Fatalf("unexpected broker prediction %+v", hist)
	}
	if hist.Metadata["oil_temp_swivel"] != 61.5 {
		t.Fatalf("state metadata missing: %+v", hist.Metadata)
	}
}

func TestPredictionSurvivesDatabaseFailure(t *testing.T) {
	f := newFixture(t, &fakeDB{fail: true}, &fakeResolver{})

	f.model.events.firePrediction(domain.ModelPrediction{
		Timestamp:   1000,
		CurrState:   1,
		TargetState: 2,
		Probability: 0.8,
		ProbV:       []float64{1},
		TimeV:       []float64{1},
	})

	if f.broker.count("predictions") != 1 {
		t.Fatal("broker branch must run despite database failure")
	}
	envs := f.sender.envelopes(t, "ch-a")
	if len(envs) != 1 {
		t.Fatal("push branch must run despite database failure")
	}
}

func TestActivityAllBranches(t *testing.T) {
	journal := &memJournal{}
	resolver := &fakeResolver{topics: map[ports.Operation][]string{
		ports.OpActivity: {"activity-out"},
	}}
	f := newFixture(t, &fakeDB{}, resolver,
		WithActivityJournal(func(modelID string) ports.Journal { return journal }))

	f.model.events.fireActivity(100, 200, `cutting "deep"`)

	envs := f.sender.envelopes(t, "ch-a")
	if len(envs) != 1 || envs[0].Type != domain.MsgActivity {
		t.Fatalf("unexpected envelopes %+v", envs)
	}

	if f.broker.count("activity-out") != 1 {
		t.Fatal("activity not published to resolved topic")
	}
	var evt domain.ActivityEvent
	if err := json.Unmarshal(f.broker.published["activity-out"][0], &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.ActivityID != `cutting "deep"` || evt.StartTime != 100 || evt.EndTime != 200 {
		t.Fatalf("unexpected activity event %+v", evt)
	}

	lines, _ := journal.Lines()
	if len(lines) != 1 || lines[0] != `100,200,"cutting \"deep\""` {
		t.Fatalf("unexpected journal lines %v", lines)
	}
}

func TestDetachSilencesAllEvents(t *testing.T) {
	f := newFixture(t, &fakeDB{}, &fakeResolver{})

	f.router.Detach(f.entry)
	if len(f.entry.Subscriptions) != 0 {
		t.Fatal("subscriptions not cleared")
	}

	f.model.events.fireStateChanged([]domain.StateInfo{{ID: 1}})
	f.model.events.fireOutlier(domain.Observation{})
	f.model.events.firePrediction(domain.ModelPrediction{ProbV: []float64{1}, TimeV: []float64{1}})
	f.model.events.fireActivity(1, 2, "x")

	if envs := f.sender.envelopes(t, "ch-a"); len(envs) != 0 {
		t.Fatalf("detached model still delivered %d envelopes", len(envs))
	}
	if f.broker.count("predictions") != 0 {
		t.Fatal("detached model still published to broker")
	}
}

// Envelopes are logged under the model id, the key reconnecting channels
// replay from.
func TestMessageLogRecordsEnvelopesPerModel(t *testing.T) {
	msgLog := &memMsgLog{byModel: make(map[string][]domain.Envelope)}
	f := newFixture(t, &fakeDB{}, &fakeResolver{}, WithMessageLog(msgLog))

	f.model.events.fireStateChanged([]domain.StateInfo{{ID: 1}})
	f.model.events.fireActivity(1, 2, "x")

	n, _ := msgLog.Count("m1")
	if n != 2 {
		t.Fatalf("expected 2 logged envelopes, got %d", n)
	}
	envs, _ := msgLog.Latest("m1", 2)
	if len(envs) != 2 || envs[0].Type != domain.MsgStateChanged || envs[1].Type != domain.MsgActivity {
		t.Fatalf("unexpected logged envelopes %+v", envs)
	}
}

type memMsgLog struct {
	mu      sync.Mutex
	byModel map[string][]domain.Envelope
}

func (l *memMsgLog) Append(modelID string, env domain.Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byModel[modelID] = append(l.byModel[modelID], env)
	return nil
}

func (l *memMsgLog) Latest(modelID string, n int) ([]domain.Envelope, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	envs := l.byModel[modelID]
	if len(envs) > n {
		envs = envs[len(envs)-n:]
	}
	return append([]domain.Envelope(nil), envs...), nil
}

func (l *memMsgLog) Count(modelID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byModel[modelID]), nil
}
