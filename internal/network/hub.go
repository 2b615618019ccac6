package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// Message types pushed to clients.
const (
	MsgTypeSnapshot = "SNAPSHOT"
	MsgTypeEvent    = "EVENT"
	MsgTypeResult   = "ACTION_RESULT"
	MsgTypeError    = "ERROR"
)

// Message is the envelope of everything the server sends.
type Message struct {
	Type      string      `json:"type"`
	Ping      int64       `json:"ping"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Recorder receives connection and message counts.
type Recorder interface {
	RecordWSConnection(delta int)
	RecordWSMessage(incoming bool)
	RecordWSRejected(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordWSConnection(int)  {}
func (nopRecorder) RecordWSMessage(bool)    {}
func (nopRecorder) RecordWSRejected(string) {}

// HubOptions size the hub's channels and per-client limits.
type HubOptions struct {
	BroadcastBuffer      int
	ClientSendBuffer     int
	MaxMessagesPerSecond float64
	MessageBurst         int
	MaxClients           int
	EventPollInterval    time.Duration
}

// DefaultHubOptions matches the default network profile.
func DefaultHubOptions() HubOptions {
	return HubOptions{
		BroadcastBuffer:      256,
		ClientSendBuffer:     64,
		MaxMessagesPerSecond: 20,
		MessageBurst:         40,
		MaxClients:           100,
		EventPollInterval:    250 * time.Millisecond,
	}
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // Closed when Run returns
	mu         sync.Mutex
	opts       HubOptions
	recorder   Recorder
	logger     *logger.Logger
}

// NewHub initializes a new WebSocket Hub. A nil recorder counts nothing.
func NewHub(opts HubOptions, rec Recorder, log *logger.Logger) *Hub {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Hub{
		broadcast:  make(chan []byte, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		opts:       opts,
		recorder:   rec,
		logger:     log,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
				h.recorder.RecordWSConnection(-1)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.recorder.RecordWSConnection(1)
			h.logger.Info("websocket client connected", "clients", h.ClientCount())
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.recorder.RecordWSConnection(-1)
				h.logger.Info("websocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.recorder.RecordWSMessage(false)
				default:
					// Slow consumer; drop it rather than stall everyone.
					close(client.send)
					delete(h.clients, client)
					h.recorder.RecordWSConnection(-1)
					h.recorder.RecordWSRejected("slow_consumer")
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// sendTo queues payload for one registered client. It holds the hub lock
// so it cannot race with the hub closing the client's channel.
func (h *Hub) sendTo(c *Client, payload []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- payload:
		h.recorder.RecordWSMessage(false)
		return true
	default:
		h.recorder.RecordWSRejected("send_buffer_full")
		return false
	}
}

// Broadcast serializes msg and queues it for every client. It never
// blocks: when the broadcast buffer is full the message is dropped.
func (h *Hub) Broadcast(msg Message) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to serialize broadcast", "type", msg.Type, "err", err)
		return false
	}
	select {
	case h.broadcast <- payload:
		return true
	default:
		h.logger.Warn("broadcast buffer full, message dropped", "type", msg.Type)
		return false
	}
}

// BroadcastEvent sends one economy event to all connected clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) bool {
	return h.Broadcast(Message{
		Type:      MsgTypeEvent,
		Ping:      event.Ping,
		Timestamp: event.Timestamp.Unix(),
		Payload:   event,
	})
}

// AttachEngine pushes a snapshot to every client after each ping. The
// returned func unsubscribes.
func (h *Hub) AttachEngine(e *engine.Engine) func() {
	return e.Subscribe(engine.StageReporting, func(p engine.Ping) {
		if h.ClientCount() == 0 {
			return
		}
		h.Broadcast(Message{
			Type:      MsgTypeSnapshot,
			Ping:      p.Number,
			Timestamp: p.Timestamp.Unix(),
			Payload:   e.Snapshot(),
		})
	})
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes
// new events to the Hub. The cursor survives log retention, so no event
// is sent twice.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	interval := h.opts.EventPollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	_, cursor := eventLog.Since(0)
	go func() {
		poll := time.NewTicker(interval)
		defer poll.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-poll.C:
				var batch []events.GameEvent
				batch, cursor = eventLog.Since(cursor)
				for _, event := range batch {
					h.BroadcastEvent(event)
				}
			}
		}
	}()
}
