package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
)

// EventPersister writes engine events through to an EventRepository.
// It satisfies events.EventPersister.
type EventPersister struct {
	repo    EventRepository
	slot    string
	timeout time.Duration
}

func NewEventPersister(repo EventRepository, slot string) *EventPersister {
	return &EventPersister{repo: repo, slot: slot, timeout: 5 * time.Second}
}

func (p *EventPersister) Append(e events.GameEvent) error {
	row, err := ToRow(p.slot, e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, row)
}

// ToRow flattens an engine event. Typed payloads become a JSON object;
// anything that is not an object is kept under "value".
func ToRow(slot string, e events.GameEvent) (GameEvent, error) {
	row := GameEvent{
		ID:        e.ID,
		Slot:      slot,
		Timestamp: e.Timestamp.UTC(),
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Ping:      e.Ping,
	}
	if e.Payload == nil {
		return row, nil
	}
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return row, fmt.Errorf("failed to marshal payload of %s: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, &row.Payload); err != nil {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return row, err
		}
		row.Payload = map[string]interface{}{"value": v}
	}
	return row, nil
}
