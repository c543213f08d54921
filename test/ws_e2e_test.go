package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haulplan/haulplan/core/board"
	"github.com/haulplan/haulplan/core/drag"
	"github.com/haulplan/haulplan/core/geometry"
	"github.com/haulplan/haulplan/core/realtime"
	"github.com/haulplan/haulplan/infra/logger"
	"github.com/haulplan/haulplan/infra/rest"
	"github.com/haulplan/haulplan/infra/ws"
	"github.com/haulplan/haulplan/internal/eventbus"
)

// fakeBackend serves the ticket endpoint, the channel endpoint and the batch
// persistence API, and can push frames to every connected channel.
type fakeBackend struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	wmu     sync.Mutex
	conns   []*websocket.Conn
	updates [][]drag.MemberChange
}

// writeFrame serializes server-side writes; gorilla allows one writer per conn.
func (b *fakeBackend) writeFrame(conn *websocket.Conn, data []byte) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/realtime/ticket", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"ticket": "tok-1"})
	})
	mux.HandleFunc("/realtime/channel", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ticket") != "tok-1" {
			http.Error(w, "bad ticket", http.StatusUnauthorized)
			return
		}
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.mu.Unlock()
		_ = b.writeFrame(conn, []byte(`{"event":"connection_established"}`))
		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var frame struct {
					Type string `json:"type"`
				}
				if json.Unmarshal(data, &frame) == nil && frame.Type == "ping" {
					_ = b.writeFrame(conn, []byte(`{"type":"pong"}`))
				}
			}
		}()
	})
	mux.HandleFunc("/schedule/items", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Updates []drag.MemberChange `json:"updates"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.updates = append(b.updates, body.Updates)
		b.mu.Unlock()
		entities := make([]map[string]any, 0, len(body.Updates))
		for _, u := range body.Updates {
			entities = append(entities, map[string]any{
				"id":       u.ID,
				"date":     u.Container.Date,
				"truck":    u.Container.Truck,
				"run_id":   u.Container.RunID,
				"sequence": u.Sequence,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entities": entities})
	})
	return mux
}

func (b *fakeBackend) push(t *testing.T, frame string) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.conns) == 0 {
		t.Fatal("no channel connection to push to")
	}
	for _, conn := range b.conns {
		if err := b.writeFrame(conn, []byte(frame)); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
}

func (b *fakeBackend) lastBatch() []drag.MemberChange {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.updates) == 0 {
		return nil
	}
	return b.updates[len(b.updates)-1]
}

func TestBoardEndToEndOverWebSocket(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := board.NewMemoryStore()
	defer store.Close()
	bus := eventbus.New()
	defer bus.Close()
	log := logger.NopLogger{}

	restCli := rest.New(rest.Config{BaseURL: srv.URL})
	transport := ws.New(srv.URL, "/realtime/channel", restCli, log)
	client := realtime.New(realtime.Config{
		KeepaliveSeconds: 1,
		ReconnectDelayMS: 100,
		MaxAttempts:      3,
	}, transport, store, bus, nil, log)
	ctrl := drag.NewController(store, restCli, bus, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	defer client.Close()

	deadline := time.Now().Add(3 * time.Second)
	for client.State() != realtime.StateConnected {
		if time.Now().After(deadline) {
			t.Fatalf("client never connected, state: %s", client.State())
		}
		time.Sleep(20 * time.Millisecond)
	}

	// another session schedules two orders; the events arrive over the channel
	backend.push(t, `{"event":"order_updated","action":"created","order":{"id":"ord-1","date":"2026-03-02","truck":"T1","sequence":1000}}`)
	backend.push(t, `{"event":"order_updated","action":"created","order":{"id":"ord-2","date":"2026-03-02","truck":"T1","sequence":2000}}`)
	if _, ok := waitForItem(store, "ord-2", 3*time.Second); !ok {
		t.Fatal("pushed events never reached the store")
	}

	// this session drags ord-2 above ord-1 and drops on the top strip
	if _, err := ctrl.Start("ord-2"); err != nil {
		t.Fatalf("start drag: %v", err)
	}
	cell := board.ContainerRef{Date: "2026-03-02", Truck: "T1"}
	candidates := []geometry.Candidate{{
		ZoneID:    "cell-top",
		Class:     geometry.ZoneCellTop,
		Bounds:    geometry.Rect{X: 0, Y: 0, W: 200, H: 20},
		Container: cell,
	}}
	if got := ctrl.Frame(candidates, geometry.Point{X: 50, Y: 10}); got == nil {
		t.Fatal("expected an active target")
	}
	outcome, err := ctrl.Drop(ctx)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if outcome.Rejected {
		t.Fatal("drop was rejected")
	}

	batch := backend.lastBatch()
	if len(batch) != 2 {
		t.Fatalf("expected 2 member changes persisted, got %d", len(batch))
	}
	seqs := map[string]int{}
	for _, ch := range batch {
		seqs[ch.ID] = ch.Sequence
	}
	if seqs["ord-2"] != 1000 || seqs["ord-1"] != 2000 {
		t.Fatalf("unexpected persisted sequences: %v", seqs)
	}

	members := store.Members(cell)
	if len(members) != 2 || members[0].ID != "ord-2" || members[1].ID != "ord-1" {
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		t.Fatalf("unexpected member order: %v", ids)
	}

	// a clean close must not trigger reconnection
	client.Close()
	time.Sleep(200 * time.Millisecond)
	if client.State() != realtime.StateDisconnected {
		t.Fatalf("expected disconnected after close, got %s", client.State())
	}
}
