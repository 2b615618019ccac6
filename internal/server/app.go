// Package server wires the engine, storage, websocket hub, REST API and
// metrics into one runnable process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/infra/storage"
	"github.com/SebastianChristoph/industrygame-sub000/internal/network"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/config"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/metrics"
)

// App is one running industry server.
type App struct {
	cfg        *config.Config
	logger     *logger.Logger
	store      *Store
	eventLog   *events.EventLog
	engine     *engine.Engine
	metrics    *metrics.Collector
	hub        *network.Hub
	dispatcher *network.Dispatcher
	api        *network.API
	saver      *autosaver
	closeOnce  sync.Once
	closeErr   error
}

// New builds every component from cfg. Nothing runs until Run.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	reg, err := content.Load(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}

	log.Info("opening database", "path", cfg.Database.Path, "slot", cfg.Database.Slot)
	store, err := OpenStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	eventLog := events.NewEventLog(storage.NewEventPersister(store.Events, cfg.Database.Slot), cfg.Engine.EventRetention)

	eng := engine.NewEngine(reg, eventLog, log, engine.Options{
		BasePing:   cfg.Engine.BasePing,
		SampleRate: cfg.Engine.SampleRate,
		Speed:      cfg.Engine.Speed,
	})

	dispatcher, err := network.NewDispatcher(eng, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	n := cfg.Network
	hub := network.NewHub(network.HubOptions{
		BroadcastBuffer:      n.BroadcastBuffer,
		ClientSendBuffer:     n.ClientSendBuffer,
		MaxMessagesPerSecond: n.MaxMessagesPerSecond,
		MessageBurst:         n.MessageBurst,
		MaxClients:           n.MaxClients,
		EventPollInterval:    n.EventPollInterval,
	}, collector, log)

	return &App{
		cfg:        cfg,
		logger:     log,
		store:      store,
		eventLog:   eventLog,
		engine:     eng,
		metrics:    collector,
		hub:        hub,
		dispatcher: dispatcher,
		api:        network.NewAPI(eng, dispatcher, store.Recaps, cfg.Database.Slot, log),
		saver:      newAutosaver(cfg.Engine.AutosaveEvery, cfg.Database.Slot, store.Saves, eventLog, collector, log),
	}, nil
}

// Engine returns the app's engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Restore loads the configured save slot. A missing slot starts fresh;
// a blob that cannot be restored is logged and also starts fresh.
func (a *App) Restore(ctx context.Context) error {
	raw, decoded, err := a.store.Saves.Get(ctx, a.cfg.Database.Slot)
	if errors.Is(err, storage.ErrSaveNotFound) {
		a.logger.Info("no save found, starting fresh", "slot", a.cfg.Database.Slot)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load save: %w", err)
	}
	if !decoded {
		a.logger.Warn("save blob is not compressed, reading as stored", "slot", a.cfg.Database.Slot)
	}
	if err := a.engine.Restore(raw); err != nil {
		a.logger.Error("save could not be restored, starting fresh", "slot", a.cfg.Database.Slot, "err", err)
	}
	return nil
}

// Save writes the current state to the configured slot.
func (a *App) Save(ctx context.Context) error {
	raw, ping, err := a.engine.Checkpoint()
	if err != nil {
		a.metrics.RecordSave(err)
		return err
	}
	return a.saver.write(ctx, blob{ping: ping, raw: raw})
}

// Handler returns the HTTP surface.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", network.ServeWS(a.hub, a.dispatcher))
	a.api.RegisterRoutes(mux)
	if a.cfg.Metrics.Enabled {
		mux.Handle(a.cfg.Metrics.Path, a.metrics.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Run starts the hub, the engine, autosave and the HTTP server, and
// blocks until ctx is cancelled. On shutdown the state is saved once more.
func (a *App) Run(ctx context.Context) error {
	detachMetrics := a.metrics.Attach(a.engine)
	defer detachMetrics()
	detachHub := a.hub.AttachEngine(a.engine)
	defer detachHub()
	detachSaver := a.saver.attach(a.engine)
	defer detachSaver()

	go a.hub.Run(ctx)
	a.hub.StartEventPoller(ctx, a.eventLog)
	go a.saver.run(ctx)
	a.engine.Start(ctx)

	srv := &http.Server{Addr: a.cfg.Server.Addr, Handler: a.Handler()}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown incomplete", "err", err)
	}
	if err := a.Save(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("final save failed: %w", err)
	}
	return runErr
}

// Close flushes pending event writes and closes storage. It is safe to
// call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			a.eventLog.Flush()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(a.cfg.Server.ShutdownTimeout):
			a.logger.Warn("event flush timed out")
		}
		a.closeErr = a.store.Close()
	})
	return a.closeErr
}
