// Package storage provides the persistence layer for the industry server.
// This package implements the repository pattern to keep the engine pure.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrSaveNotFound is returned when a save slot has never been written.
var ErrSaveNotFound = errors.New("save slot not found")

// GameEvent mirrors the engine event structure for persistence.
// The engine does NOT import this; EventPersister adapts between them.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	Slot      string                 `json:"slot" db:"slot"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Ping      int64                  `json:"ping" db:"ping"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetBySlot retrieves every event of a save slot in order.
	GetBySlot(ctx context.Context, slot string) ([]GameEvent, error)

	// GetByActorID retrieves the events of one line or actor.
	GetByActorID(ctx context.Context, slot, actorID string) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, slot string, eventType string) ([]GameEvent, error)

	// GetSincePing retrieves events at or after a ping.
	GetSincePing(ctx context.Context, slot string, ping int64) ([]GameEvent, error)
}

// SaveRecord is one stored state blob.
type SaveRecord struct {
	Slot      string    `json:"slot" db:"slot"`
	Ping      int64     `json:"ping" db:"ping"`
	Blob      []byte    `json:"-" db:"blob"` // Codec output
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SaveRepository stores one blob per slot.
type SaveRepository interface {
	// Save inserts or replaces the slot.
	Save(ctx context.Context, rec SaveRecord) error

	// Load returns the slot or ErrSaveNotFound.
	Load(ctx context.Context, slot string) (*SaveRecord, error)

	// List returns every slot, newest first, without blobs.
	List(ctx context.Context) ([]SaveRecord, error)

	// Delete removes a slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, slot string) error
}
