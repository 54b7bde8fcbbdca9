package bridge

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1broseidon/readershell/internal/menu"
	"github.com/1broseidon/readershell/internal/settings"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingDispatcher) Dispatch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingDispatcher) dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func newTestHub(t *testing.T) (*Hub, *settings.Store) {
	t.Helper()
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	return NewHub("127.0.0.1:0", store, nil), store
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return env
}

func TestEmitReachesConnectedClient(t *testing.T) {
	hub, _ := newTestHub(t)
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)

	// Connection registration races the broadcast; retry briefly.
	deadline := time.Now().Add(2 * time.Second)
	go func() {
		for time.Now().Before(deadline) {
			hub.Emit("menu-rebuilt", nil)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	env := readEnvelope(t, conn)
	if env.Event != "menu-rebuilt" {
		t.Fatalf("event = %q, want menu-rebuilt", env.Event)
	}
}

func TestUpdateMenuReplaysToLateClient(t *testing.T) {
	hub, _ := newTestHub(t)
	root := menu.Build(nil, 0, false, settings.SiteState{}, menu.DefaultLabels())
	if err := hub.UpdateMenu(root); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	server := httptest.NewServer(hub)
	defer server.Close()
	conn := dial(t, server)

	env := readEnvelope(t, conn)
	if env.Event != "menu" {
		t.Fatalf("event = %q, want menu", env.Event)
	}
	if env.Payload == nil {
		t.Fatalf("menu replay carried no tree")
	}
}

func TestMenuClickRoutesToDispatcher(t *testing.T) {
	hub, _ := newTestHub(t)
	dispatcher := &recordingDispatcher{}
	hub.SetDispatcher(dispatcher)

	server := httptest.NewServer(hub)
	defer server.Close()
	conn := dial(t, server)

	if err := conn.WriteJSON(map[string]string{"type": "menu-click", "id": "refresh"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ids := dispatcher.dispatched(); len(ids) == 1 && ids[0] == "refresh" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("dispatch did not arrive: %v", dispatcher.dispatched())
}

func TestReadSettingsRoundTrip(t *testing.T) {
	hub, store := newTestHub(t)
	store.Write(settings.Document{"global": json.RawMessage(`{"zoom":2}`)})

	server := httptest.NewServer(hub)
	defer server.Close()
	conn := dial(t, server)

	if err := conn.WriteJSON(map[string]string{"type": "read-settings"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Event != "settings" {
		t.Fatalf("event = %q, want settings", env.Event)
	}
	payload, ok := env.Payload.(map[string]any)
	if !ok {
		t.Fatalf("settings payload has type %T", env.Payload)
	}
	if _, ok := payload["global"]; !ok {
		t.Errorf("settings payload missing global: %v", payload)
	}
}

func TestWriteSettingsVersionGate(t *testing.T) {
	hub, store := newTestHub(t)
	server := httptest.NewServer(hub)
	defer server.Close()
	conn := dial(t, server)

	write := func(version uint64) string {
		t.Helper()
		msg := map[string]any{
			"type":    "write-settings",
			"version": version,
			"data":    map[string]any{"global": map[string]any{"zoom": version}},
		}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		env := readEnvelope(t, conn)
		if env.Event != "settings-write-result" {
			t.Fatalf("event = %q, want settings-write-result", env.Event)
		}
		result := env.Payload.(map[string]any)
		return result["result"].(string)
	}

	if got := write(1); got != "committed" {
		t.Fatalf("first write = %q, want committed", got)
	}
	if got := write(1); got != "rejected" {
		t.Fatalf("replayed write = %q, want rejected", got)
	}
	if store.Read().Version() != 1 {
		t.Errorf("version = %d, want 1", store.Read().Version())
	}
}

func TestMalformedMessageDoesNotKillConnection(t *testing.T) {
	hub, _ := newTestHub(t)
	server := httptest.NewServer(hub)
	defer server.Close()
	conn := dial(t, server)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "read-settings"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Event != "settings" {
		t.Fatalf("event = %q, want settings after malformed frame", env.Event)
	}
}
