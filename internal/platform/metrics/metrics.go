// Package metrics exposes engine and server metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
)

const (
	namespace = "industry"
	subsystem = "server"
)

// Collector owns a private registry so tests and multiple servers in one
// process never collide on metric names.
type Collector struct {
	registry *prometheus.Registry

	// Ping metrics
	pings        prometheus.Counter
	pingDelivery prometheus.Histogram

	// Economy gauges, refreshed from snapshots
	credits        prometheus.Gauge
	researchPoints prometheus.Gauge
	stock          *prometheus.GaugeVec
	capacity       *prometheus.GaugeVec
	activeLines    prometheus.Gauge

	// Event metrics
	eventsTotal   *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	faults        *prometheus.CounterVec
	persistErrors prometheus.Counter

	// WebSocket metrics
	wsConnections prometheus.Gauge
	wsMessages    *prometheus.CounterVec
	wsRejected    *prometheus.CounterVec

	// Save metrics
	saves *prometheus.CounterVec
}

// NewCollector creates a collector and registers every metric.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		pings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "pings_total",
			Help: "Total pings delivered by the ticker",
		}),
		pingDelivery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "ping_delivery_seconds",
			Help:    "Time from ping emission until the reporting stage runs",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		credits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "credits_balance",
			Help: "Current credit balance",
		}),
		researchPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "research_points",
			Help: "Unspent research points",
		}),
		stock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "resource_stock",
			Help: "Stored units per resource",
		}, []string{"resource"}),
		capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "resource_capacity",
			Help: "Storage capacity per resource",
		}, []string{"resource"}),
		activeLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "active_lines",
			Help: "Production lines currently running",
		}),

		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "events_total",
			Help: "Economy events appended, by type",
		}, []string{"type"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "production_cycles_total",
			Help: "Completed production cycles by output resource",
		}, []string{"resource"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "line_faults_total",
			Help: "Production lines stopped by a failed check, by recipe",
		}, []string{"recipe"}),
		persistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "event_persist_errors_total",
			Help: "Events that could not be written to storage",
		}),

		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "ws_connections",
			Help: "Active WebSocket connections",
		}),
		wsMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "ws_messages_total",
			Help: "WebSocket messages by direction",
		}, []string{"direction"}),
		wsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "ws_rejected_total",
			Help: "Client messages refused, by reason",
		}, []string{"reason"}),

		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "saves_total",
			Help: "State saves by outcome",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		c.pings, c.pingDelivery,
		c.credits, c.researchPoints, c.stock, c.capacity, c.activeLines,
		c.eventsTotal, c.cycles, c.faults, c.persistErrors,
		c.wsConnections, c.wsMessages, c.wsRejected,
		c.saves,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordPing records one delivered ping.
func (c *Collector) RecordPing(delivery time.Duration) {
	c.pings.Inc()
	c.pingDelivery.Observe(delivery.Seconds())
}

// ObserveSnapshot refreshes the economy gauges.
func (c *Collector) ObserveSnapshot(s engine.Snapshot) {
	credits, _ := s.Credits.Float64()
	c.credits.Set(credits)
	c.researchPoints.Set(float64(s.ResearchPoints))
	for _, r := range s.Resources {
		c.stock.WithLabelValues(string(r.ID)).Set(float64(r.Amount))
		c.capacity.WithLabelValues(string(r.ID)).Set(float64(r.Capacity))
	}
	active := 0
	for _, l := range s.Lines {
		if l.Status.IsActive {
			active++
		}
	}
	c.activeLines.Set(float64(active))
}

// ObserveEvents counts a batch of events from the log.
func (c *Collector) ObserveEvents(evs []events.GameEvent) {
	for _, e := range evs {
		c.eventsTotal.WithLabelValues(string(e.Type)).Inc()
		switch e.Type {
		case events.EventTypeProductionCompleted:
			c.cycles.WithLabelValues(e.TargetID).Inc()
		case events.EventTypeLineFault:
			c.faults.WithLabelValues(e.TargetID).Inc()
		}
	}
}

// RecordPersistError counts a failed event write-through.
func (c *Collector) RecordPersistError(error) {
	c.persistErrors.Inc()
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int) {
	c.wsConnections.Add(float64(delta))
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		c.wsMessages.WithLabelValues("in").Inc()
	} else {
		c.wsMessages.WithLabelValues("out").Inc()
	}
}

// RecordWSRejected counts a refused client message.
func (c *Collector) RecordWSRejected(reason string) {
	c.wsRejected.WithLabelValues(reason).Inc()
}

// RecordSave counts a save attempt.
func (c *Collector) RecordSave(err error) {
	if err != nil {
		c.saves.WithLabelValues("error").Inc()
		return
	}
	c.saves.WithLabelValues("ok").Inc()
}

// Attach subscribes the collector to e's reporting stage and to its event
// log persist errors. The returned func unsubscribes.
func (c *Collector) Attach(e *engine.Engine) func() {
	e.EventLog().OnPersistError(c.RecordPersistError)
	cursor := 0
	return e.Subscribe(engine.StageReporting, func(p engine.Ping) {
		c.RecordPing(time.Since(p.Timestamp))
		c.ObserveSnapshot(e.Snapshot())
		var evs []events.GameEvent
		evs, cursor = e.EventLog().Since(cursor)
		c.ObserveEvents(evs)
	})
}
