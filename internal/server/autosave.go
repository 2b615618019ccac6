package server

import (
	"context"
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/infra/storage"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// SaveRecorder counts save outcomes.
type SaveRecorder interface {
	RecordSave(err error)
}

type blob struct {
	ping int64
	raw  []byte
}

// autosaver exports the state from the reporting stage every N pings and
// hands it to a writer goroutine, so the ticker never waits on SQLite.
type autosaver struct {
	every    int64
	slot     string
	store    *storage.SaveStore
	eventLog *events.EventLog
	recorder SaveRecorder
	logger   *logger.Logger
	pending  chan blob
	timeout  time.Duration
}

func newAutosaver(every int, slot string, store *storage.SaveStore, el *events.EventLog, rec SaveRecorder, log *logger.Logger) *autosaver {
	return &autosaver{
		every:    int64(every),
		slot:     slot,
		store:    store,
		eventLog: el,
		recorder: rec,
		logger:   log,
		pending:  make(chan blob, 1),
		timeout:  5 * time.Second,
	}
}

// attach subscribes to e's reporting stage. every <= 0 disables autosave.
func (a *autosaver) attach(e *engine.Engine) func() {
	if a.every <= 0 {
		return func() {}
	}
	return e.Subscribe(engine.StageReporting, func(p engine.Ping) {
		if p.Number%a.every != 0 {
			return
		}
		raw, err := e.Export()
		if err != nil {
			a.logger.Error("autosave export failed", "ping", p.Number, "err", err)
			a.recorder.RecordSave(err)
			return
		}
		select {
		case a.pending <- blob{ping: p.Number, raw: raw}:
		default:
			// A save is still queued; the next period covers this one.
			a.logger.Debug("autosave skipped, previous save pending", "ping", p.Number)
		}
	})
}

// run writes queued blobs until ctx is done.
func (a *autosaver) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-a.pending:
			wctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			_ = a.write(wctx, b)
			cancel()
		}
	}
}

func (a *autosaver) write(ctx context.Context, b blob) error {
	err := a.store.Put(ctx, a.slot, b.ping, b.raw)
	a.recorder.RecordSave(err)
	if err != nil {
		a.logger.Error("save failed", "slot", a.slot, "ping", b.ping, "err", err)
		return err
	}
	a.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeStateSaved,
		ActorID:  events.ActorSystem,
		TargetID: a.slot,
		Payload:  map[string]interface{}{"bytes": len(b.raw)},
		Ping:     b.ping,
	})
	a.logger.Debug("state saved", "slot", a.slot, "ping", b.ping, "bytes", len(b.raw))
	return nil
}
