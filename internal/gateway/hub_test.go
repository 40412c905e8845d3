package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Data   json.RawMessage `json:"data"`
	TS     string          `json:"ts"`
	Seq    int64           `json:"seq"`
}

func TestBuildEnvelope(t *testing.T) {
	now := time.Date(2026, 2, 25, 10, 0, 1, 0, time.UTC)
	buf := buildEnvelope("BTCUSDT", []byte(`{"latestRsi":55.1}`), now, 42)

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, buf)
	}
	if env.Type != "indicators" || env.Symbol != "BTCUSDT" || env.Seq != 42 {
		t.Errorf("unexpected envelope %+v", env)
	}
	parsed, err := time.Parse(time.RFC3339Nano, env.TS)
	if err != nil || !parsed.Equal(now) {
		t.Errorf("ts = %q (%v)", env.TS, err)
	}
	if string(env.Data) != `{"latestRsi":55.1}` {
		t.Errorf("data = %s", env.Data)
	}
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return env
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_SubscribeFilters(t *testing.T) {
	h := NewHub(16)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitClients(t, h, 1)

	if err := conn.WriteJSON(map[string]any{"type": "SUBSCRIBE", "symbols": []string{"ethusdt"}}); err != nil {
		t.Fatal(err)
	}
	// Subscription is applied by the read pump; poll until it takes effect.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var c *Client
		h.mu.RLock()
		for cl := range h.clients {
			c = cl
		}
		h.mu.RUnlock()
		if c != nil && !c.wants("BTCUSDT") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.Broadcast("BTCUSDT", []byte(`{"x":1}`))
	h.Broadcast("ETHUSDT", []byte(`{"x":2}`))

	env := readEnvelope(t, conn)
	if env.Symbol != "ETHUSDT" || string(env.Data) != `{"x":2}` {
		t.Errorf("got %+v, want only ETHUSDT", env)
	}
}

func TestHub_InitialStateAndReplay(t *testing.T) {
	h := NewHub(16)
	h.Broadcast("BTCUSDT", []byte(`{"v":1}`))
	h.Broadcast("BTCUSDT", []byte(`{"v":2}`))

	srv := httptest.NewServer(h)
	defer srv.Close()

	latest := dial(t, srv, "")
	if env := readEnvelope(t, latest); string(env.Data) != `{"v":2}` || env.Seq != 2 {
		t.Errorf("initial state = %+v", env)
	}

	replay := dial(t, srv, "?since=0")
	first := readEnvelope(t, replay)
	second := readEnvelope(t, replay)
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("replay seqs = %d, %d", first.Seq, second.Seq)
	}

	if data, ok := h.Latest("BTCUSDT"); !ok || string(data) != `{"v":2}` {
		t.Errorf("Latest = %s, %v", data, ok)
	}
}

func TestHub_ConcurrentBroadcastKeepsSeqOrder(t *testing.T) {
	const producers, perProducer = 8, 50

	h := NewHub(producers * perProducer)
	c := &Client{send: make(chan []byte, producers*perProducer), hub: h, subs: map[string]bool{}}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				h.Broadcast(symbol, []byte(`{}`))
			}
		}("SYM" + string(rune('A'+p)))
	}
	wg.Wait()
	close(c.send)

	var last int64
	n := 0
	for raw := range c.send {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatal(err)
		}
		if env.Seq != last+1 {
			t.Fatalf("envelope %d has seq %d after %d", n, env.Seq, last)
		}
		last = env.Seq
		n++
	}
	if n != producers*perProducer {
		t.Errorf("received %d envelopes, want %d", n, producers*perProducer)
	}

	replayed := h.replay.After(0)
	for i := 1; i < len(replayed); i++ {
		if replayed[i].Seq <= replayed[i-1].Seq {
			t.Fatalf("replay out of order at %d: %d after %d", i, replayed[i].Seq, replayed[i-1].Seq)
		}
	}
}
