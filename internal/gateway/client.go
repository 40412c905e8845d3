package gateway

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer. A client with no
// subscriptions receives every symbol.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	subMu sync.RWMutex
	subs  map[string]bool
}

// clientMsg is what clients send: SUBSCRIBE / UNSUBSCRIBE with symbols, or
// a bare {"ping": <ms>} for latency checks.
type clientMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
	Ping    int64    `json:"ping"`
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	conn.EnableWriteCompression(true)
	return &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
		subs: make(map[string]bool),
	}
}

func (c *Client) wants(symbol string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs) == 0 || c.subs[symbol]
}

// sendLatest queues the latest envelope for each of symbols, or for every
// known symbol when symbols is nil.
func (c *Client) sendLatest(symbols []string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	queue := func(symbol string, e latestEntry) {
		select {
		case c.send <- buildEnvelope(symbol, e.Data, e.TS, e.Seq):
		default:
		}
	}
	if symbols == nil {
		for symbol, e := range c.hub.latest {
			queue(symbol, e)
		}
		return
	}
	for _, symbol := range symbols {
		if e, ok := c.hub.latest[symbol]; ok {
			queue(symbol, e)
		}
	}
}

func (c *Client) replaySince(seq int64) {
	for _, e := range c.hub.replay.After(seq) {
		if !c.wants(e.Symbol) {
			continue
		}
		select {
		case c.send <- e.Data:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
		c.hub.log.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMsg
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg clientMsg) {
	switch strings.ToUpper(msg.Type) {
	case "SUBSCRIBE":
		symbols := normalizeSymbols(msg.Symbols)
		c.subMu.Lock()
		for _, s := range symbols {
			c.subs[s] = true
		}
		c.subMu.Unlock()
		c.hub.log.Debug("client subscribed", "symbols", symbols)
		c.sendLatest(symbols)

	case "UNSUBSCRIBE":
		c.subMu.Lock()
		for _, s := range normalizeSymbols(msg.Symbols) {
			delete(c.subs, s)
		}
		c.subMu.Unlock()

	default:
		if msg.Ping > 0 {
			pong, _ := json.Marshal(map[string]interface{}{
				"type":      "pong",
				"ping":      msg.Ping,
				"server_ts": time.Now().UnixMilli(),
			})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
