package events_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
)

type recordingPersister struct {
	mu   sync.Mutex
	seen []events.GameEvent
	err  error
}

func (p *recordingPersister) Append(e events.GameEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, e)
	return p.err
}

func TestEventLog_AppendFillsIDAndTimestamp(t *testing.T) {
	log := events.NewEventLog(nil, 0)

	e := log.Append(events.GameEvent{Type: events.EventTypeLineAdded, ActorID: "L1"})

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Len(t, log.Replay(), 1)
}

func TestEventLog_SinceCursorSurvivesRetention(t *testing.T) {
	log := events.NewEventLog(nil, 3)
	for i := 0; i < 5; i++ {
		log.Append(events.GameEvent{Type: events.EventTypeProductionCompleted, Ping: int64(i)})
	}

	all, next := log.Since(0)
	require.Len(t, all, 3)
	assert.Equal(t, int64(2), all[0].Ping)
	assert.Equal(t, 5, next)

	log.Append(events.GameEvent{Type: events.EventTypeProductionCompleted, Ping: 5})
	fresh, next := log.Since(next)
	require.Len(t, fresh, 1)
	assert.Equal(t, int64(5), fresh[0].Ping)
	assert.Equal(t, 6, next)

	none, again := log.Since(next)
	assert.Empty(t, none)
	assert.Equal(t, 6, again)
}

func TestEventLog_WritesThroughToPersister(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	log := events.NewEventLog(p, 0)

	var mu sync.Mutex
	var failures int
	log.OnPersistError(func(error) {
		mu.Lock()
		failures++
		mu.Unlock()
	})

	log.Append(events.GameEvent{Type: events.EventTypeTechResearched, TargetID: "irrigation"})
	log.Append(events.GameEvent{Type: events.EventTypeModuleUnlocked, TargetID: "industry"})
	log.Flush()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.seen, 2)
	mu.Lock()
	assert.Equal(t, 2, failures)
	mu.Unlock()
}

func TestEventLog_WritesThroughInAppendOrder(t *testing.T) {
	// Arrange
	p := &recordingPersister{}
	log := events.NewEventLog(p, 0)

	// Act
	for i := 0; i < 2000; i++ {
		log.Append(events.GameEvent{Type: events.EventTypeProductionCompleted, Ping: int64(i)})
	}
	log.Flush()

	// Assert
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.seen, 2000)
	for i, e := range p.seen {
		require.Equal(t, int64(i), e.Ping, "event %d written out of order", i)
	}
}

func TestEventLog_FlushWithoutPendingWritesReturns(t *testing.T) {
	p := &recordingPersister{}
	log := events.NewEventLog(p, 0)

	log.Flush()
	log.Append(events.GameEvent{Type: events.EventTypeLineAdded})
	log.Flush()
	log.Flush()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.seen, 1)
}

func TestEventLog_Filters(t *testing.T) {
	log := events.NewEventLog(nil, 0)
	log.Append(events.GameEvent{Type: events.EventTypeLineFault, ActorID: "L1"})
	log.Append(events.GameEvent{Type: events.EventTypeProductionCompleted, ActorID: "L1"})
	log.Append(events.GameEvent{Type: events.EventTypeProductionCompleted, ActorID: "L2"})

	assert.Len(t, log.GetByActor("L1"), 2)
	assert.Len(t, log.GetByType(events.EventTypeProductionCompleted), 2)
}
