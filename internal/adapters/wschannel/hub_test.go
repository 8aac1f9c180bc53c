package wschannel

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JozefStefanInstitute/StreamStory/internal/adapters/msglog"
	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

type recordObs struct {
	mu     sync.Mutex
	gauges map[string]float64
}

func (o *recordObs) LogDebug(string, ...ports.Field)        {}
func (o *recordObs) LogInfo(string, ...ports.Field)         {}
func (o *recordObs) LogWarn(string, ...ports.Field)         {}
func (o *recordObs) LogError(string, error, ...ports.Field) {}
func (o *recordObs) IncCounter(string, float64)             {}
func (o *recordObs) ObserveLatency(string, float64)         {}

func (o *recordObs) SetGauge(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gauges == nil {
		o.gauges = make(map[string]float64)
	}
	o.gauges[name] = v
}

func (o *recordObs) gauge(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gauges[name]
}

type hubFixture struct {
	hub    *Hub
	server *httptest.Server
	obs    *recordObs

	mu     sync.Mutex
	opened []string // "modelID/channelID"
	closed []string
}

func newHubFixture(t *testing.T, log ports.MessageLog) *hubFixture {
	t.Helper()

	f := &hubFixture{obs: &recordObs{}}
	f.hub = NewHub(f.obs, log)
	f.hub.OnOpen = func(modelID, channelID string) {
		f.mu.Lock()
		f.opened = append(f.opened, modelID+"/"+channelID)
		f.mu.Unlock()
	}
	f.hub.OnClose = func(channelID string) {
		f.mu.Lock()
		f.closed = append(f.closed, channelID)
		f.mu.Unlock()
	}
	f.server = httptest.NewServer(f.hub)
	t.Cleanup(func() {
		f.hub.Close()
		f.server.Close()
	})
	return f
}

func (f *hubFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitChannel polls until the hub has exactly one open channel and returns
// its id.
func (f *hubFixture) waitChannel(t *testing.T) string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ids := f.hub.Channels(); len(ids) == 1 {
			return ids[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("channel never opened")
	return ""
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(payload)
}

func TestHubDeliversToChannel(t *testing.T) {
	f := newHubFixture(t, nil)
	conn := f.dial(t, "mid=7")
	channelID := f.waitChannel(t)

	if err := f.hub.Send(channelID, []byte(`{"type":"coeff"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := readMessage(t, conn); got != `{"type":"coeff"}` {
		t.Fatalf("unexpected payload %q", got)
	}

	f.mu.Lock()
	opened := append([]string(nil), f.opened...)
	f.mu.Unlock()
	if len(opened) != 1 || opened[0] != "7/"+channelID {
		t.Fatalf("unexpected open hooks %v", opened)
	}
}

func TestHubRejectsMissingModelID(t *testing.T) {
	f := newHubFixture(t, nil)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("expected dial without mid to fail")
	}
}

func TestHubSendToUnknownChannel(t *testing.T) {
	f := newHubFixture(t, nil)

	if err := f.hub.Send("nope", []byte("x")); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

// The router logs envelopes under the model id, so a resumed channel must be
// caught up from the model's history, not from its own channel id.
func TestHubReplaysModelHistoryOnResume(t *testing.T) {
	log := msglog.NewMemLog(10)
	log.Append("7", domain.Envelope{Type: domain.MsgCoeff, Time: 1})
	log.Append("7", domain.Envelope{Type: domain.MsgPrediction, Time: 2})

	f := newHubFixture(t, log)
	conn := f.dial(t, "mid=7&channel=old-channel")

	first := readMessage(t, conn)
	second := readMessage(t, conn)
	if !strings.Contains(first, `"coeff"`) || !strings.Contains(second, `"prediction"`) {
		t.Fatalf("unexpected replay order: %q then %q", first, second)
	}

	if ids := f.hub.Channels(); len(ids) != 1 || ids[0] != "old-channel" {
		t.Fatalf("expected resumed channel id, got %v", ids)
	}
}

func TestHubFreshChannelGetsNoReplay(t *testing.T) {
	log := msglog.NewMemLog(10)
	log.Append("7", domain.Envelope{Type: domain.MsgCoeff, Time: 1})

	f := newHubFixture(t, log)
	conn := f.dial(t, "mid=7")
	f.waitChannel(t)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("fresh channel unexpectedly received %q", payload)
	}
}

func TestHubTracksDisconnect(t *testing.T) {
	f := newHubFixture(t, nil)
	conn := f.dial(t, "mid=7")
	channelID := f.waitChannel(t)

	if got := f.obs.gauge("streamstory_channels_connected"); got != 1 {
		t.Fatalf("expected gauge 1, got %v", got)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.hub.Channels()) == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(f.hub.Channels()) != 0 {
		t.Fatal("channel still open after disconnect")
	}
	if got := f.obs.gauge("streamstory_channels_connected"); got != 0 {
		t.Fatalf("expected gauge 0, got %v", got)
	}

	f.mu.Lock()
	closed := append([]string(nil), f.closed...)
	f.mu.Unlock()
	if len(closed) != 1 || closed[0] != channelID {
		t.Fatalf("unexpected close hooks %v", closed)
	}
}
