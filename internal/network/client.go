package network

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket connection. Actions it reads are applied
// through the Dispatcher; results go back to this client only.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	limiter    *rate.Limiter
	dispatcher *Dispatcher
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn, d *Dispatcher) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, hub.opts.ClientSendBuffer),
		limiter:    rate.NewLimiter(rate.Limit(hub.opts.MaxMessagesPerSecond), hub.opts.MessageBurst),
		dispatcher: d,
	}
}

// ServeWS upgrades the request and starts the client's pumps.
func ServeWS(hub *Hub, d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub.opts.MaxClients > 0 && hub.ClientCount() >= hub.opts.MaxClients {
			hub.recorder.RecordWSRejected("max_clients")
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade failed", "err", err)
			return
		}
		client := NewClient(hub, conn, d)
		client.Register()
		go client.WritePump()
		go client.ReadPump()
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps messages from the websocket connection to the dispatcher.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "err", err)
			}
			break
		}
		c.hub.recorder.RecordWSMessage(true)
		c.reply(c.handle(message))
	}
}

// handle applies one raw message, subject to the client's rate limit.
func (c *Client) handle(message []byte) Message {
	if !c.limiter.Allow() {
		c.hub.recorder.RecordWSRejected("rate_limited")
		return Message{Type: MsgTypeError, Timestamp: time.Now().Unix(), Payload: map[string]string{"error": "rate limit exceeded"}}
	}
	res := c.dispatcher.Handle(message)
	if res.Type == "INVALID" {
		c.hub.recorder.RecordWSRejected("invalid")
	}
	return Message{Type: MsgTypeResult, Timestamp: time.Now().Unix(), Payload: res}
}

// reply queues msg for this client only.
func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.sendTo(c, payload)
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
