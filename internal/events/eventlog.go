// Package events provides the append-only economy event log.
// Every economic effect the engine commits is recorded here and written
// through to durable storage by an optional persister.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of an economy event.
type EventType string

const (
	EventTypeProductionCompleted EventType = "PRODUCTION_COMPLETED"
	EventTypeLineFault           EventType = "LINE_FAULT"
	EventTypeLineAdded           EventType = "LINE_ADDED"
	EventTypeLineRemoved         EventType = "LINE_REMOVED"
	EventTypeLineConfigured      EventType = "LINE_CONFIGURED"
	EventTypeLineToggled         EventType = "LINE_TOGGLED"
	EventTypeCreditsChanged      EventType = "CREDITS_CHANGED"
	EventTypeStorageUpgraded     EventType = "STORAGE_UPGRADED"
	EventTypeTechResearched      EventType = "TECH_RESEARCHED"
	EventTypeModuleUnlocked      EventType = "MODULE_UNLOCKED"
	EventTypeMissionActivated    EventType = "MISSION_ACTIVATED"
	EventTypeMissionCompleted    EventType = "MISSION_COMPLETED"
	EventTypeStateSaved          EventType = "STATE_SAVED"
)

// Well-known actors.
const (
	ActorSystem = "SYSTEM"
	ActorPlayer = "PLAYER"
)

// GameEvent represents an immutable record of something that happened.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // Line id, PLAYER or SYSTEM
	TargetID  string      `json:"target_id"` // Resource, technology, module or mission (optional)
	Payload   interface{} `json:"payload"`   // Event-specific data
	Ping      int64       `json:"ping"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of economy events.
// When a retention limit is set, the oldest entries are dropped from memory
// but cursors keep counting from the first event ever appended.
// Write-throughs are drained by a single goroutine in append order.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	dropped   int
	limit     int
	persister EventPersister
	onError   func(error)

	qmu      sync.Mutex
	queue    []GameEvent
	draining bool
	idle     *sync.Cond
}

// NewEventLog creates a new event log with an optional persister.
// limit <= 0 keeps every event in memory.
func NewEventLog(persister EventPersister, limit int) *EventLog {
	el := &EventLog{
		events:    make([]GameEvent, 0),
		limit:     limit,
		persister: persister,
	}
	el.idle = sync.NewCond(&el.qmu)
	return el
}

// OnPersistError registers a callback for failed write-throughs.
func (el *EventLog) OnPersistError(fn func(error)) {
	el.mu.Lock()
	el.onError = fn
	el.mu.Unlock()
}

// Append adds a new event to the log. Missing ids and timestamps are filled in.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	if el.limit > 0 && len(el.events) > el.limit {
		over := len(el.events) - el.limit
		el.events = append(el.events[:0:0], el.events[over:]...)
		el.dropped += over
	}
	if el.persister != nil {
		// Queued under mu so the write order matches the log order.
		el.enqueue(event)
	}
	el.mu.Unlock()
	return event
}

func (el *EventLog) enqueue(e GameEvent) {
	el.qmu.Lock()
	defer el.qmu.Unlock()
	el.queue = append(el.queue, e)
	if !el.draining {
		el.draining = true
		go el.drain()
	}
}

// drain writes queued events one at a time off the caller's goroutine;
// callers may hold engine state.
func (el *EventLog) drain() {
	for {
		el.qmu.Lock()
		if len(el.queue) == 0 {
			el.draining = false
			el.idle.Broadcast()
			el.qmu.Unlock()
			return
		}
		e := el.queue[0]
		el.queue[0] = GameEvent{}
		el.queue = el.queue[1:]
		el.qmu.Unlock()

		if err := el.persister.Append(e); err != nil {
			el.mu.RLock()
			onError := el.onError
			el.mu.RUnlock()
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Flush waits until every event appended so far has been written through.
func (el *EventLog) Flush() {
	el.qmu.Lock()
	for el.draining {
		el.idle.Wait()
	}
	el.qmu.Unlock()
}

// Since returns the events at or after cursor and the cursor to use next.
// A cursor older than the retained window starts at the oldest retained event.
func (el *EventLog) Since(cursor int) ([]GameEvent, int) {
	el.mu.RLock()
	defer el.mu.RUnlock()

	next := el.dropped + len(el.events)
	start := cursor - el.dropped
	if start < 0 {
		start = 0
	}
	if start >= len(el.events) {
		return nil, next
	}
	out := make([]GameEvent, len(el.events)-start)
	copy(out, el.events[start:])
	return out, next
}

// GetByActor returns the retained events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.ActorID == actorID })
}

// GetByType returns the retained events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.Type == t })
}

func (el *EventLog) filter(keep func(GameEvent) bool) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of every retained event.
func (el *EventLog) Replay() []GameEvent {
	events, _ := el.Since(0)
	return events
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
