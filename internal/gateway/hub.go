// Package gateway pushes indicator results to browser clients over
// WebSocket. Results arrive either from Redis Pub/Sub or from a direct
// in-process Broadcast call.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"signaldesk/internal/store/redis"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub tracks connected clients and the latest payload per symbol.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	replay *ReplayBuffer
	log    *slog.Logger
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64
}

// NewHub creates an empty hub that keeps replayCap envelopes for reconnects.
func NewHub(replayCap int) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
		replay:  NewReplayBuffer(replayCap),
		log:     slog.Default().With(slog.String("component", "gateway")),
	}
}

// PublishResult implements model.ResultPublisher for deployments without Redis.
func (h *Hub) PublishResult(_ context.Context, symbol string, payload []byte) error {
	h.Broadcast(symbol, payload)
	return nil
}

// Broadcast wraps payload in an envelope and fans it out to every client
// subscribed to symbol. Slow clients drop messages rather than block.
// Sequence assignment, replay push and fan-out happen under one lock so
// every client sees envelopes in seq order whatever the number of producers.
func (h *Hub) Broadcast(symbol string, payload []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	seq := h.seq
	h.latest[symbol] = latestEntry{Data: payload, TS: now, Seq: seq}

	buf := buildEnvelope(symbol, payload, now, seq)
	h.replay.Push(seq, symbol, buf)

	for client := range h.clients {
		if !client.wants(symbol) {
			continue
		}
		select {
		case client.send <- buf:
		default:
		}
	}
}

// buildEnvelope hand-crafts {"type":"indicators","symbol":...,"data":...,"ts":...,"seq":N}.
func buildEnvelope(symbol string, data []byte, now time.Time, seq int64) []byte {
	quoted, _ := json.Marshal(symbol)
	buf := make([]byte, 0, len(quoted)+len(data)+96)
	buf = append(buf, `{"type":"indicators","symbol":`...)
	buf = append(buf, quoted...)
	buf = append(buf, `,"data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}

// RunPubSub relays every result channel from Redis until ctx is cancelled.
func (h *Hub) RunPubSub(ctx context.Context, rdb *goredis.Client) error {
	pubsub := rdb.PSubscribe(ctx, redis.ResultChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	h.log.Info("subscribed", "pattern", redis.ResultChannelPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			symbol, ok := redis.SymbolFromChannel(msg.Channel)
			if !ok {
				continue
			}
			h.Broadcast(symbol, []byte(msg.Payload))
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket. A since=<seq> query
// parameter replays buffered envelopes newer than seq; otherwise the
// latest payload per symbol is sent.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}

	client := newClient(h, conn)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws client connected", "clients", count)

	if since, err := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64); err == nil {
		client.replaySince(since)
	} else {
		client.sendLatest(nil)
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Latest returns the most recent payload for symbol.
func (h *Hub) Latest(symbol string) (json.RawMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.latest[symbol]
	return e.Data, ok
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
