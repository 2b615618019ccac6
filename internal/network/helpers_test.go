package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
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

func newDispatcher(t *testing.T, e *engine.Engine) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(e, logger.Discard())
	require.NoError(t, err)
	return d
}

// runPump sets up an active water pump that stores its output.
func runPump(t *testing.T, d *Dispatcher) {
	t.Helper()
	for _, raw := range []string{
		`{"type":"ADD_LINE","lineId":"pump","name":"Pump"}`,
		`{"type":"SET_RECIPE","lineId":"pump","recipe":"water_pump"}`,
		`{"type":"SET_OUTPUT_TARGET","lineId":"pump","target":"STORE"}`,
		`{"type":"TOGGLE_PRODUCTION","lineId":"pump"}`,
	} {
		res := d.Handle([]byte(raw))
		require.True(t, res.OK, "%s: %s", raw, res.Error)
	}
}
