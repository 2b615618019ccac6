package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	reg, err := content.Default()
	require.NoError(t, err)
	return engine.NewEngine(reg, events.NewEventLog(nil, 0), logger.Discard(), engine.DefaultOptions())
}

func TestCollector_AttachFollowsPingsAndEvents(t *testing.T) {
	// Arrange
	e := newEngine(t)
	c := NewCollector()
	detach := c.Attach(e)
	defer detach()
	require.NoError(t, e.AddProductionLine("pump", "Pump"))
	require.NoError(t, e.SetProductionRecipe("pump", "water_pump"))
	require.NoError(t, e.SetOutputTarget("pump", production.TargetStore))
	_, err := e.ToggleProduction("pump")
	require.NoError(t, err)

	// Act
	e.Step(2)

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pings))
	assert.Equal(t, 55.0, testutil.ToFloat64(c.stock.WithLabelValues("water")))
	assert.Equal(t, 200.0, testutil.ToFloat64(c.capacity.WithLabelValues("water")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeLines))
	assert.Equal(t, 1000.0, testutil.ToFloat64(c.credits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cycles.WithLabelValues("water")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues(string(events.EventTypeLineAdded))))
}

func TestCollector_ObserveEventsCountsFaultsByRecipe(t *testing.T) {
	c := NewCollector()

	c.ObserveEvents([]events.GameEvent{
		{Type: events.EventTypeLineFault, ActorID: "a", TargetID: "corn_farm"},
		{Type: events.EventTypeLineFault, ActorID: "b", TargetID: "corn_farm"},
		{Type: events.EventTypeProductionCompleted, ActorID: "a", TargetID: "corn"},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.faults.WithLabelValues("corn_farm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cycles.WithLabelValues("corn")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues("LINE_FAULT")))
}

func TestCollector_ServerCounters(t *testing.T) {
	c := NewCollector()

	c.RecordWSConnection(1)
	c.RecordWSConnection(1)
	c.RecordWSConnection(-1)
	c.RecordWSMessage(true)
	c.RecordWSMessage(false)
	c.RecordWSMessage(false)
	c.RecordWSRejected("rate_limited")
	c.RecordPersistError(errors.New("disk full"))
	c.RecordSave(nil)
	c.RecordSave(errors.New("locked"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.wsConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wsMessages.WithLabelValues("in")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.wsMessages.WithLabelValues("out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wsRejected.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.persistErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.saves.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.saves.WithLabelValues("error")))
}

func TestCollector_HandlerServesTextFormat(t *testing.T) {
	c := NewCollector()
	c.RecordPing(0)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "industry_server_pings_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
