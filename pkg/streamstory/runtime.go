package streamstory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/filelog"
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/kafka"
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/msglog"
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/observability"
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/opcua"
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/postgres"
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/redislog"
	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/wschannel"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/build"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/config"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/inbound"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/ingest"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/pipeline"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/predict"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/registry"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/router"
	"github.com/JozefStefanInstitute/StreamStory/internal/app/session"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

const configKeyCalcCoeff = "calc_coeff"

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	observability ports.Observability
	broker        ports.Broker
	database      ports.Database
	enriched      ports.EnrichedStore
	sender        ports.PushSender
	messageLog    ports.MessageLog
	pipeline      ports.Pipeline
	collector     ports.Collector
	resolver      ports.TopicResolver
	builder       ports.ModelBuilder
	realtimeBase  ports.Base
}

// WithObservability plugs in a custom metrics/logging backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// WithBroker injects a custom broker so events can be published anywhere.
func WithBroker(b Broker) RuntimeOption {
	return func(o *runtimeOverrides) { o.broker = b }
}

// WithDatabase injects a custom model/config store.
func WithDatabase(db Database) RuntimeOption {
	return func(o *runtimeOverrides) { o.database = db }
}

// WithEnrichedStore overrides where enriched records are persisted.
func WithEnrichedStore(s EnrichedStore) RuntimeOption {
	return func(o *runtimeOverrides) { o.enriched = s }
}

// WithPushSender replaces the built-in websocket hub with a custom channel
// delivery mechanism.
func WithPushSender(s PushSender) RuntimeOption {
	return func(o *runtimeOverrides) { o.sender = s }
}

// WithMessageLog overrides where channel envelopes are kept for catch-up.
func WithMessageLog(l MessageLog) RuntimeOption {
	return func(o *runtimeOverrides) { o.messageLog = l }
}

// WithPipeline connects an external stream-processing engine instead of the
// in-process relay.
func WithPipeline(p Pipeline) RuntimeOption {
	return func(o *runtimeOverrides) { o.pipeline = p }
}

// WithCollector injects a custom measurement source (MQTT, simulators, etc.).
func WithCollector(c Collector) RuntimeOption {
	return func(o *runtimeOverrides) { o.collector = c }
}

// WithTopicResolver overrides the dynamic output-topic registry.
func WithTopicResolver(r TopicResolver) RuntimeOption {
	return func(o *runtimeOverrides) { o.resolver = r }
}

// WithBuilder binds the analytics engine used to build and load models.
// Without it stored models cannot be activated and build requests fail.
func WithBuilder(b ModelBuilder) RuntimeOption {
	return func(o *runtimeOverrides) { o.builder = b }
}

// WithRealtimeBase marks the shared realtime base so session teardown never
// closes it.
func WithRealtimeBase(b Base) RuntimeOption {
	return func(o *runtimeOverrides) { o.realtimeBase = b }
}

// Runtime wires the ingest gate, model registry, event router, prediction
// dispatch, and build coordination into one embeddable unit.
type Runtime struct {
	cfg      *config.Config
	obs      ports.Observability
	broker   ports.Broker
	database ports.Database
	enriched ports.EnrichedStore
	sender   ports.PushSender
	msgLog   ports.MessageLog
	pipe     ports.Pipeline
	resolver ports.TopicResolver
	builder  ports.ModelBuilder

	store       *registry.Store
	router      *router.Router
	gate        *ingest.Gate
	intensities *predict.Intensities
	dispatcher  *predict.Dispatcher
	coeffs      *predict.CoeffHandler
	classifier  *inbound.Classifier
	coordinator *build.Coordinator
	sessions    *session.Manager

	hub       *wschannel.Hub
	collector ports.Collector
	consumer  *kafka.Consumer
	journals  *filelog.Set
	statesJnl *filelog.Journal

	db *sql.DB

	metricsSrv  *http.Server
	channelSrv  *http.Server
	gaugeStopCh chan struct{}

	pipelineSubs   []ports.Subscription
	collectorCh    chan domain.Measurement
	collectorStop  chan struct{}
	consumerCancel context.CancelFunc
	consumerDone   chan struct{}
}

// NewRuntime bootstraps the default adapters (Kafka broker, Postgres store,
// Redis or in-memory message log, websocket hub, Prometheus observability)
// and wires them into the application core. RuntimeOption values override any
// dependency.
func NewRuntime(cfg *config.Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(logrus.New())
	}

	var (
		db       *sql.DB
		err      error
		database = overrides.database
		enriched = overrides.enriched
	)
	if database == nil || enriched == nil {
		db, err = sql.Open("postgres", cfg.Postgres.ConnString)
		if err != nil {
			return nil, err
		}
		if database == nil {
			database = postgres.NewDatabase(db)
		}
		if enriched == nil {
			enriched = postgres.NewEnrichedStore(db, cfg.Postgres.EnrichedTable)
		}
	}

	broker := overrides.broker
	if broker == nil {
		broker = kafka.NewPublisher(cfg.Kafka.Brokers, obs)
	}

	msgLog := overrides.messageLog
	if msgLog == nil {
		if cfg.Redis.Addr != "" {
			msgLog, err = redislog.New(cfg.Redis.Addr, cfg.Redis.KeyPrefix, cfg.Redis.MaxKept)
			if err != nil {
				return nil, err
			}
		} else {
			msgLog = msglog.NewMemLog(cfg.Redis.MaxKept)
		}
	}

	resolver := overrides.resolver
	if resolver == nil {
		table := NewTopicTable()
		if topic, ok := cfg.Kafka.Topics["activity"]; ok {
			table.Register(ports.OpActivity, "", topic)
		}
		resolver = table
	}

	pipe := overrides.pipeline
	if pipe == nil {
		pipe = pipeline.NewRelay()
	}

	topics := ports.Topics{
		Prediction:   cfg.Kafka.Topics["prediction"],
		CoeffSwivel:  cfg.Kafka.Topics["friction-swivel"],
		CoeffGearbox: cfg.Kafka.Topics["friction-gearbox"],
	}

	store := registry.NewStore(obs)

	var hub *wschannel.Hub
	sender := overrides.sender
	if sender == nil {
		hub = wschannel.NewHub(obs, msgLog)
		hub.OnOpen = func(modelID, channelID string) {
			if !store.AddSubscriber(modelID, channelID) {
				obs.LogWarn("channel opened for inactive model",
					ports.Field{Key: "model", Value: modelID},
					ports.Field{Key: "channel", Value: channelID})
			}
		}
		hub.OnClose = store.RemoveSubscriber
		sender = hub
	}

	intensities := predict.NewIntensities()
	dispatcher := predict.NewDispatcher(broker, topics, store, sender, obs)
	coeffs := predict.NewCoeffHandler(intensities, dispatcher, broker, topics, resolver, store, sender, obs)
	gate := ingest.NewGate(pipe, obs, cfg.Ingest.RawPrintInterval)
	classifier := inbound.NewClassifier(gate, enriched, dispatcher,
		cfg.Enriched.Fields, cfg.Molding.MinShuttleTimes, cfg.Molding.SlowRatio, obs)

	var routerOpts []router.Option
	routerOpts = append(routerOpts, router.WithMessageLog(msgLog))

	var statesJnl *filelog.Journal
	if cfg.Journal.StatesFile != "" {
		statesJnl, err = filelog.Open(cfg.Journal.StatesFile)
		if err != nil {
			return nil, err
		}
		routerOpts = append(routerOpts, router.WithStatesJournal(statesJnl))
	}
	var journals *filelog.Set
	if cfg.Journal.ActivitiesDir != "" {
		journals = filelog.NewSet(cfg.Journal.ActivitiesDir, obs)
		routerOpts = append(routerOpts, router.WithActivityJournal(journals.For))
	}

	rtr := router.New(store, sender, broker, topics, resolver, database, obs, routerOpts...)

	var coordinator *build.Coordinator
	if overrides.builder != nil {
		coordinator = build.NewCoordinator(overrides.builder, cfg.Build.PollTimeout, cfg.Build.ProgressCap, obs)
	}

	collector := overrides.collector
	if collector == nil && cfg.OPCUA.Endpoint != "" {
		collector, err = opcua.NewCollector(cfg.OPCUA, obs)
		if err != nil {
			return nil, err
		}
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Inbound != "" {
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Inbound, cfg.Kafka.GroupID,
			classifier.Handle, obs)
	}

	return &Runtime{
		cfg:         cfg,
		obs:         obs,
		broker:      broker,
		database:    database,
		enriched:    enriched,
		sender:      sender,
		msgLog:      msgLog,
		pipe:        pipe,
		resolver:    resolver,
		builder:     overrides.builder,
		store:       store,
		router:      rtr,
		gate:        gate,
		intensities: intensities,
		dispatcher:  dispatcher,
		coeffs:      coeffs,
		classifier:  classifier,
		coordinator: coordinator,
		sessions:    session.NewManager(overrides.realtimeBase, obs),
		hub:         hub,
		collector:   collector,
		consumer:    consumer,
		journals:    journals,
		statesJnl:   statesJnl,
		db:          db,
	}, nil
}

// Start connects the pipeline to the registry, restores persisted settings,
// activates stored models, and launches the collector, inbound consumer, and
// HTTP servers. It returns immediately; call Run to block on a context.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}

	r.pipelineSubs = append(r.pipelineSubs,
		r.pipe.SubscribeValue(r.store.UpdateModels),
		r.pipe.SubscribeCoefficient(func(c domain.Coefficient) {
			if err := r.coeffs.HandleCoefficient(c); err != nil {
				r.obs.LogWarn("coefficient dropped",
					ports.Field{Key: "event_id", Value: c.EventID},
					ports.Field{Key: "error", Value: err.Error()})
			}
		}),
	)

	r.restoreCoefficientCalc()
	if err := r.intensities.Reload(r.database); err != nil {
		r.obs.LogWarn("intensity config not loaded",
			ports.Field{Key: "error", Value: err.Error()})
	}
	r.activateStoredModels()

	if r.collector != nil {
		r.collectorCh = make(chan domain.Measurement, 256)
		r.collectorStop = make(chan struct{})
		if err := r.collector.Start(r.collectorCh); err != nil {
			return err
		}
		go r.pumpCollector()
	}

	if r.consumer != nil {
		ctx, cancel := context.WithCancel(context.Background())
		r.consumerCancel = cancel
		r.consumerDone = make(chan struct{})
		go func() {
			defer close(r.consumerDone)
			if err := r.consumer.Run(ctx); err != nil {
				r.obs.LogError("inbound consumer exited", err)
			}
		}()
	}

	r.startMetrics()
	r.startChannelServer()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown detaches active models and stops every component the runtime owns.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if r.channelSrv != nil {
		if err := r.channelSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.collector != nil {
		if err := r.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.collectorStop != nil {
		close(r.collectorStop)
		r.collectorStop = nil
	}

	if r.consumerCancel != nil {
		r.consumerCancel()
		select {
		case <-r.consumerDone:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
		if err := r.consumer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, id := range r.ActiveModelIDs() {
		if entry, ok := r.store.Get(id); ok {
			r.router.Detach(entry)
			r.store.Remove(id)
		}
	}

	for _, sub := range r.pipelineSubs {
		sub.Unsubscribe()
	}
	r.pipelineSubs = nil
	if err := r.pipe.Close(); err != nil {
		errs = append(errs, err)
	}

	if r.hub != nil {
		if err := r.hub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.broker.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.statesJnl != nil {
		if err := r.statesJnl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.journals != nil {
		if err := r.journals.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := r.msgLog.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) restoreCoefficientCalc() {
	vals, err := r.database.FetchConfig(configKeyCalcCoeff)
	if err != nil {
		r.obs.LogWarn("coefficient calc setting not loaded",
			ports.Field{Key: "error", Value: err.Error()})
		return
	}
	r.pipe.SetCoefficientCalc(vals[configKeyCalcCoeff] == "true")
}

func (r *Runtime) activateStoredModels() {
	records, err := r.database.FetchActiveModels()
	if err != nil {
		r.obs.LogWarn("active models not loaded",
			ports.Field{Key: "error", Value: err.Error()})
		return
	}
	if len(records) > 0 && r.builder == nil {
		r.obs.LogWarn("no model builder configured, stored models stay inactive",
			ports.Field{Key: "count", Value: len(records)})
		return
	}
	for _, rec := range records {
		model, err := r.builder.LoadOnlineModel(rec.File, r.pipe)
		if err != nil {
			r.obs.LogError("stored model not loaded", err,
				ports.Field{Key: "model", Value: rec.ID})
			continue
		}
		if err := r.ActivateModel(model); err != nil {
			r.obs.LogError("stored model not activated", err,
				ports.Field{Key: "model", Value: rec.ID})
		}
	}
}

func (r *Runtime) pumpCollector() {
	for {
		select {
		case <-r.collectorStop:
			return
		case m := <-r.collectorCh:
			if err := r.gate.Submit(m); err != nil {
				var oo *domain.OutOfOrderError
				if !errors.As(err, &oo) {
					r.obs.LogError("collector measurement rejected", err,
						ports.Field{Key: "store", Value: m.Store})
				}
			}
		}
	}
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics server exited", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) startChannelServer() {
	if r.hub == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/channel", r.hub)

	r.channelSrv = &http.Server{
		Addr:    r.cfg.Server.Addr,
		Handler: mux,
	}
	go func() {
		if err := r.channelSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("channel server exited", err)
		}
	}()
}

func (r *Runtime) recordGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge("streamstory_active_models", float64(r.store.Len()))
		}
	}
}

// ActivateModel registers a loaded model, attaches its event routing, and
// marks it active in the store. Activating an already active model id fails.
func (r *Runtime) ActivateModel(m ports.Model) error {
	entry, err := r.store.Add(m)
	if err != nil {
		return err
	}
	r.router.Attach(entry)
	if err := r.database.SetModelActive(m.ID(), true); err != nil {
		r.obs.LogWarn("model activation not persisted",
			ports.Field{Key: "model", Value: m.ID()},
			ports.Field{Key: "error", Value: err.Error()})
	}
	r.obs.SetGauge("streamstory_active_models", float64(r.store.Len()))
	r.obs.LogInfo("model activated", ports.Field{Key: "model", Value: m.ID()})
	return nil
}

// ActivateStoredModel loads a stored model by id and activates it.
func (r *Runtime) ActivateStoredModel(modelID string) error {
	if r.builder == nil {
		return fmt.Errorf("no model builder configured")
	}
	rec, err := r.database.FetchModel(modelID)
	if err != nil {
		return err
	}
	model, err := r.builder.LoadOnlineModel(rec.File, r.pipe)
	if err != nil {
		return err
	}
	return r.ActivateModel(model)
}

// DeactivateModel detaches routing, drops the model from the registry, and
// marks it inactive in the store.
func (r *Runtime) DeactivateModel(modelID string) error {
	entry, ok := r.store.Get(modelID)
	if !ok {
		return &domain.NotFoundError{Kind: "model", ID: modelID}
	}
	r.router.Detach(entry)
	r.store.Remove(modelID)
	if err := r.database.SetModelActive(modelID, false); err != nil {
		r.obs.LogWarn("model deactivation not persisted",
			ports.Field{Key: "model", Value: modelID},
			ports.Field{Key: "error", Value: err.Error()})
	}
	r.obs.SetGauge("streamstory_active_models", float64(r.store.Len()))
	r.obs.LogInfo("model deactivated", ports.Field{Key: "model", Value: modelID})
	return nil
}

// IsActive reports whether the model is currently registered.
func (r *Runtime) IsActive(modelID string) bool {
	_, ok := r.store.Get(modelID)
	return ok
}

// ActiveModelIDs returns the ids of the registered models.
func (r *Runtime) ActiveModelIDs() []string {
	return r.store.IDs()
}

// MessageCount reports how many routed envelopes are retained for a model's
// reconnect catch-up.
func (r *Runtime) MessageCount(modelID string) (int, error) {
	return r.msgLog.Count(modelID)
}

// LatestMessages returns up to n retained envelopes for a model, oldest
// first. n <= 0 returns everything kept.
func (r *Runtime) LatestMessages(modelID string, n int) ([]domain.Envelope, error) {
	return r.msgLog.Latest(modelID, n)
}

// AddSubscriber subscribes a channel to a model's events. The channel is
// moved if it was subscribed to another model.
func (r *Runtime) AddSubscriber(modelID, channelID string) bool {
	return r.store.AddSubscriber(modelID, channelID)
}

// RemoveSubscriber drops a channel from whichever model holds it.
func (r *Runtime) RemoveSubscriber(channelID string) {
	r.store.RemoveSubscriber(channelID)
}

// Submit pushes one raw measurement through the ordering gate into the
// pipeline.
func (r *Runtime) Submit(m domain.Measurement) error {
	return r.gate.Submit(m)
}

// SubmitBatch pushes measurements in order, stopping at the first rejection.
func (r *Runtime) SubmitBatch(batch []domain.Measurement) error {
	return r.gate.SubmitBatch(batch)
}

// HandleInbound processes one raw broker message (raw, enriched, or derived).
func (r *Runtime) HandleInbound(payload []byte) {
	r.classifier.Handle(payload)
}

// HandleCoefficient routes a computed friction coefficient to its topics,
// channels, and deviation-based prediction.
func (r *Runtime) HandleCoefficient(c domain.Coefficient) error {
	return r.coeffs.HandleCoefficient(c)
}

// DispatchPrediction publishes an event prediction and pushes it to every
// open channel.
func (r *Runtime) DispatchPrediction(content domain.PredictionContent, eventProps map[string]float64) {
	r.dispatcher.DispatchPrediction(content, eventProps)
}

// SetCoefficientCalc toggles friction coefficient computation and persists
// the setting.
func (r *Runtime) SetCoefficientCalc(enabled bool) error {
	r.pipe.SetCoefficientCalc(enabled)
	value := "false"
	if enabled {
		value = "true"
	}
	return r.database.SetConfig(configKeyCalcCoeff, value)
}

// ReloadIntensities re-reads the deviation lambda table from the store.
func (r *Runtime) ReloadIntensities() error {
	return r.intensities.Reload(r.database)
}

// RequestBuild starts an asynchronous model build for the user.
func (r *Runtime) RequestBuild(ctx context.Context, spec ports.BuildSpec) error {
	if r.coordinator == nil {
		return fmt.Errorf("no model builder configured")
	}
	return r.coordinator.RequestBuild(ctx, spec)
}

// PollBuild reports build progress, blocking until there is news or the poll
// timeout elapses. The bool is false when the poll timed out empty.
func (r *Runtime) PollBuild(username string) (build.Progress, bool, error) {
	if r.coordinator == nil {
		return build.Progress{}, false, fmt.Errorf("no model builder configured")
	}
	return r.coordinator.Poll(username)
}

// ConfirmBuilt acknowledges a finished build so the user can start another.
func (r *Runtime) ConfirmBuilt(username string) {
	if r.coordinator != nil {
		r.coordinator.ConfirmBuilt(username)
	}
}

// IsBuilding reports whether the user has an unfinished build.
func (r *Runtime) IsBuilding(username string) bool {
	return r.coordinator != nil && r.coordinator.IsBuilding(username)
}

// BindSession associates a loaded model and its base with a session,
// releasing whatever the session held before.
func (r *Runtime) BindSession(sessionID, username string, model ports.Model, base ports.Base, modelFile string) {
	r.sessions.Bind(sessionID, username, model, base, modelFile)
}

// ClearSession releases the session's model and base.
func (r *Runtime) ClearSession(sessionID string) {
	r.sessions.Clear(sessionID)
}

// ChannelHandler exposes the websocket hub for embedding into an existing
// HTTP mux. It is nil when a custom PushSender is installed.
func (r *Runtime) ChannelHandler() http.Handler {
	if r.hub == nil {
		return nil
	}
	return r.hub
}

// Status is a point-in-time snapshot of the runtime's moving parts.
type Status struct {
	ActiveModels       int
	StoredActiveModels int
	OpenChannels       int
	BoundSessions      int
}

// Status gathers the registry, channel, session, and stored-model counts.
func (r *Runtime) Status() (Status, error) {
	st := Status{
		ActiveModels:  r.store.Len(),
		BoundSessions: r.sessions.Len(),
	}
	if r.hub != nil {
		st.OpenChannels = len(r.hub.Channels())
	}
	n, err := r.database.CountActiveModels()
	if err != nil {
		return st, fmt.Errorf("count stored active models: %w", err)
	}
	st.StoredActiveModels = n
	return st, nil
}

// StateHistory returns the persisted state-change journal lines, oldest
// first. Empty when state journaling is not configured.
func (r *Runtime) StateHistory() ([]string, error) {
	if r.statesJnl == nil {
		return nil, nil
	}
	return r.statesJnl.Lines()
}

// ActivityHistory returns the persisted activity journal lines for a model,
// oldest first. Empty when activity journaling is not configured.
func (r *Runtime) ActivityHistory(modelID string) ([]string, error) {
	if r.journals == nil {
		return nil, nil
	}
	j := r.journals.For(modelID)
	if j == nil {
		return nil, nil
	}
	return j.Lines()
}
