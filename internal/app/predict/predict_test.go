package predict

import (
	"encoding/json"
	"errors"
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

type nopSub struct{}

func (nopSub) Unsubscribe() {}

type fakeEvents struct{}

func (fakeEvents) SubscribeStateChanged(func([]domain.StateInfo)) ports.Subscription { return nopSub{} }
func (fakeEvents) SubscribeAnomaly(func(string)) ports.Subscription                  { return nopSub{} }
func (fakeEvents) SubscribeOutlier(func(domain.Observation)) ports.Subscription      { return nopSub{} }
func (fakeEvents) SubscribePrediction(func(domain.ModelPrediction)) ports.Subscription {
	return nopSub{}
}
func (fakeEvents) SubscribeActivity(func(int64, int64, string)) ports.Subscription { return nopSub{} }

type fakeModel struct{ id string }

func (m *fakeModel) ID() string                           { return m.id }
func (m *fakeModel) Events() ports.ModelEvents            { return fakeEvents{} }
func (m *fakeModel) StateName(int) string                 { return "" }
func (m *fakeModel) TimeUnit() string                     { return "hour" }
func (m *fakeModel) StateMetadata(int) map[string]float64 { return nil }
func (m *fakeModel) Update(domain.Measurement) error      { return nil }

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

func testTopics() ports.Topics {
	return ports.Topics{
		Prediction:   "predictions",
		CoeffSwivel:  "coeff-swivel",
		CoeffGearbox: "coeff-gearbox",
	}
}

func testIntensities() *Intensities {
	c := NewIntensities()
	c.Set(0.1, 0.5, 1.0, 2.0)
	return c
}

func TestMapDeviationGrid(t *testing.T) {
	c := testIntensities()

	cases := []struct {
		z    float64
		want float64
		none bool
	}{
		{z: 1.9, none: true},
		{z: 2.0, want: 0.1},
		{z: 2.99, want: 0.1},
		{z: 3.0, want: 0.5},
		{z: 3.99, want: 0.5},
		{z: 4.0, want: 1.0},
		{z: 4.99, want: 1.0},
		{z: 5.0, want: 2.0},
		{z: 10.0, want: 2.0},
	}

	for _, tc := range cases {
		pdf := c.MapDeviation(tc.z)
		if tc.none {
			if pdf != nil {
				t.Fatalf("z=%v: expected no prediction, got %+v", tc.z, pdf)
			}
			continue
		}
		if pdf == nil {
			t.Fatalf("z=%v: expected a prediction", tc.z)
		}
		if pdf.Lambda != tc.want {
			t.Fatalf("z=%v: expected lambda %v, got %v", tc.z, tc.want, pdf.Lambda)
		}
		if pdf.Type != "exponential" {
			t.Fatalf("z=%v: unexpected pdf type %q", tc.z, pdf.Type)
		}
	}
}

func TestMapDeviationUsesMagnitude(t *testing.T) {
	c := testIntensities()

	if pdf := c.MapDeviation(-4.5); pdf == nil || pdf.Lambda != 1.0 {
		t.Fatalf("expected major prediction for z=-4.5, got %+v", pdf)
	}
	if pdf := c.MapDeviation(-1.5); pdf != nil {
		t.Fatalf("expected no prediction for z=-1.5, got %+v", pdf)
	}
}

func TestReloadParsesConfig(t *testing.T) {
	c := NewIntensities()
	db := &fakeDB{config: map[string]string{
		KeyMinorLambda:       "0.25",
		KeySignificantLambda: "0.5",
		KeyMajorLambda:       "1.5",
		KeyExtremeLambda:     "3",
	}}

	if err := c.Reload(db); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if pdf := c.MapDeviation(2.5); pdf.Lambda != 0.25 {
		t.Fatalf("expected minor lambda 0.25, got %v", pdf.Lambda)
	}
	if pdf := c.MapDeviation(6); pdf.Lambda != 3 {
		t.Fatalf("expected extreme lambda 3, got %v", pdf.Lambda)
	}
}

func TestReloadRejectsBadValue(t *testing.T) {
	c := NewIntensities()
	db := &fakeDB{config: map[string]string{KeyMinorLambda: "not-a-number"}}
	if err := c.Reload(db); err == nil {
		t.Fatal("expected parse error")
	}
}

type fakeDB struct {
	config map[string]string
}

func (d *fakeDB) FetchStateProperty(string, int, string) (string, error) { return "", nil }
func (d *fakeDB) FetchConfig(keys ...string) (map[string]string, error) {
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := d.config[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}
func (d *fakeDB) SetConfig(string, string) error { return nil }
func (d *fakeDB) FetchActiveModels() ([]domain.ModelRecord, error) {
	return nil, nil
}
func (d *fakeDB) FetchModel(string) (domain.ModelRecord, error) {
	return domain.ModelRecord{}, errors.New("not found")
}
func (d *fakeDB) SetModelActive(string, bool) error { return nil }
func (d *fakeDB) CountActiveModels() (int, error)   { return 0, nil }

func TestDispatchPrediction(t *testing.T) {
	broker := newFakeBroker()
	sender := newRecordingSender()
	store := registry.NewStore(nopObs{})
	store.Add(&fakeModel{id: "m1"})
	store.AddSubscriber("m1", "ch-a")

	d := NewDispatcher(broker, testTopics(), store, sender, nopObs{})
	d.DispatchPrediction(domain.PredictionContent{
		Time:    1000,
		EventID: "swivel",
		PDF:     domain.NewExponential(720),
	}, map[string]float64{"zScore": 3})

	msgs := broker.published["predictions"]
	if len(msgs) != 1 {
		t.Fatalf("expected 1 broker publish, got %d", len(msgs))
	}
	var exp domain.ExpPrediction
	if err := json.Unmarshal(msgs[0], &exp); err != nil {
		t.Fatalf("unmarshal broker prediction: %v", err)
	}
	if exp.Lambda != 1 {
		t.Fatalf("expected monthly rate 720 converted to hourly 1, got %v", exp.Lambda)
	}
	if exp.TimeUnit != "hour" || exp.PDFType != "exponential" {
		t.Fatalf("unexpected broker prediction %+v", exp)
	}

	if got := len(sender.sent["ch-a"]); got != 1 {
		t.Fatalf("expected UI broadcast, got %d payloads", got)
	}
	var env domain.Envelope
	if err := json.Unmarshal(sender.sent["ch-a"][0], &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != domain.MsgPrediction {
		t.Fatalf("unexpected envelope type %q", env.Type)
	}
}

func TestHandleCoefficientKnownIDs(t *testing.T) {
	broker := newFakeBroker()
	sender := newRecordingSender()
	store := registry.NewStore(nopObs{})
	store.Add(&fakeModel{id: "m1"})
	store.AddSubscriber("m1", "ch-a")
	resolver := &fakeResolver{topics: map[ports.Operation][]string{
		ports.OpFrictionSwivel: {"fzi-swivel-out"},
	}}

	d := NewDispatcher(broker, testTopics(), store, sender, nopObs{})
	h := NewCoeffHandler(testIntensities(), d, broker, testTopics(), resolver, store, sender, nopObs{})

	err := h.HandleCoefficient(domain.Coefficient{
		EventID: "swivel", Timestamp: 500, Value: 0.7, Std: 0.1, ZScore: 1.0,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(broker.published["coeff-swivel"]) != 1 {
		t.Fatal("coefficient not published to fixed swivel topic")
	}
	if len(broker.published["fzi-swivel-out"]) != 1 {
		t.Fatal("coefficient not published to resolved output topic")
	}
	// below threshold, no prediction
	if len(broker.published["predictions"]) != 0 {
		t.Fatal("unexpected prediction for small deviation")
	}
	// coeff broadcast happens regardless of deviation
	if len(sender.sent["ch-a"]) != 1 {
		t.Fatalf("expected coeff broadcast, got %d payloads", len(sender.sent["ch-a"]))
	}
}

func TestHandleCoefficientTriggersPrediction(t *testing.T) {
	broker := newFakeBroker()
	sender := newRecordingSender()
	store := registry.NewStore(nopObs{})
	store.Add(&fakeModel{id: "m1"})
	store.AddSubscriber("m1", "ch-a")
	resolver := &fakeResolver{}

	d := NewDispatcher(broker, testTopics(), store, sender, nopObs{})
	h := NewCoeffHandler(testIntensities(), d, broker, testTopics(), resolver, store, sender, nopObs{})

	err := h.HandleCoefficient(domain.Coefficient{
		EventID: "gearbox", Timestamp: 500, Value: 0.7, Std: 0.1, ZScore: 4.2,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(broker.published["coeff-gearbox"]) != 1 {
		t.Fatal("coefficient not published to fixed gearbox topic")
	}
	preds := broker.published["predictions"]
	if len(preds) != 1 {
		t.Fatalf("expected 1 dispatched prediction, got %d", len(preds))
	}
	var exp domain.ExpPrediction
	if err := json.Unmarshal(preds[0], &exp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := 1.0 / 720; exp.Lambda != want {
		t.Fatalf("expected hourly lambda %v, got %v", want, exp.Lambda)
	}
	if exp.EventProperties["zScore"] != 4.2 {
		t.Fatalf("missing event properties: %+v", exp.EventProperties)
	}

	// coeff broadcast plus prediction broadcast
	if len(sender.sent["ch-a"]) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(sender.sent["ch-a"]))
	}
}

func TestHandleCoefficientUnknownID(t *testing.T) {
	broker := newFakeBroker()
	sender := newRecordingSender()
	store := registry.NewStore(nopObs{})

	d := NewDispatcher(broker, testTopics(), store, sender, nopObs{})
	h := NewCoeffHandler(testIntensities(), d, broker, testTopics(), &fakeResolver{}, store, sender, nopObs{})

	err := h.HandleCoefficient(domain.Coefficient{EventID: "conveyor", ZScore: 9})
	var unknown *domain.UnknownEventIDError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEventIDError, got %v", err)
	}
	if len(broker.published) != 0 {
		t.Fatal("unknown event id must not publish anything")
	}
}
