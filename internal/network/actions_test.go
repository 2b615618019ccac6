package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
)

func TestDispatcher_DecodeRejectsInvalidActions(t *testing.T) {
	d := newDispatcher(t, newEngine(t))
	cases := map[string]string{
		"not json":           `{"type":`,
		"unknown type":       `{"type":"SELL_EVERYTHING"}`,
		"missing field":      `{"type":"ADD_LINE","lineId":"a"}`,
		"unknown property":   `{"type":"REMOVE_LINE","lineId":"a","force":true}`,
		"malformed amount":   `{"type":"ADD_CREDITS","amount":"ten"}`,
		"negative amount":    `{"type":"SPEND_CREDITS","amount":"-5"}`,
		"bad input source":   `{"type":"SET_INPUT_SOURCE","lineId":"a","index":0,"source":"STEAL","resource":"water"}`,
		"negative index":     `{"type":"SET_INPUT_SOURCE","lineId":"a","index":-1,"source":"PURCHASE","resource":"water"}`,
		"speed out of range": `{"type":"SET_SPEED","speed":1000}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.Decode([]byte(raw))

			assert.True(t, errors.Is(err, ErrInvalidAction), "got %v", err)
		})
	}
}

func TestDispatcher_DecodeAcceptsValidAction(t *testing.T) {
	d := newDispatcher(t, newEngine(t))

	a, err := d.Decode([]byte(`{"type":"SET_INPUT_SOURCE","lineId":"farm","index":0,"source":"PURCHASE","resource":"water","requestId":"r7"}`))

	require.NoError(t, err)
	assert.Equal(t, ActionSetInputSource, a.Type)
	assert.Equal(t, "farm", a.LineID)
	assert.Equal(t, "r7", a.RequestID)
	assert.Equal(t, "PURCHASE", a.Source)
}

func TestDispatcher_AppliesActionsToEngine(t *testing.T) {
	// Arrange
	e := newEngine(t)
	d := newDispatcher(t, e)

	// Act
	runPump(t, d)
	e.Step(2)

	// Assert
	view, err := e.Line("pump")
	require.NoError(t, err)
	assert.True(t, view.Status.IsActive)
	snap := e.Snapshot()
	for _, r := range snap.Resources {
		if r.ID == "water" {
			assert.Equal(t, 55, r.Amount)
		}
	}
}

func TestDispatcher_ToggleReportsActiveState(t *testing.T) {
	e := newEngine(t)
	d := newDispatcher(t, e)
	runPump(t, d)

	res := d.Handle([]byte(`{"type":"TOGGLE_PRODUCTION","lineId":"pump"}`))

	require.True(t, res.OK)
	assert.Equal(t, map[string]interface{}{"active": false, "error": ""}, res.Value)
}

func TestDispatcher_RefusalIsNotAnError(t *testing.T) {
	d := newDispatcher(t, newEngine(t))

	res := d.Handle([]byte(`{"type":"SPEND_CREDITS","amount":"5000","requestId":"x"}`))

	assert.True(t, res.OK)
	assert.Equal(t, false, res.Value)
	assert.Equal(t, "x", res.RequestID)
	assert.NoError(t, res.Err())
}

func TestDispatcher_EngineErrorsSurface(t *testing.T) {
	d := newDispatcher(t, newEngine(t))
	require.True(t, d.Handle([]byte(`{"type":"ADD_LINE","lineId":"a","name":"A"}`)).OK)

	unknown := d.Handle([]byte(`{"type":"SET_RECIPE","lineId":"a","recipe":"perpetuum_mobile"}`))
	missing := d.Handle([]byte(`{"type":"TOGGLE_PRODUCTION","lineId":"ghost"}`))
	dup := d.Handle([]byte(`{"type":"ADD_LINE","lineId":"a","name":"A"}`))

	assert.False(t, unknown.OK)
	assert.True(t, errors.Is(unknown.Err(), content.ErrUnknownID))
	assert.True(t, errors.Is(missing.Err(), engine.ErrLineNotFound))
	assert.True(t, errors.Is(dup.Err(), engine.ErrLineExists))
	assert.NotEmpty(t, dup.Error)
}

func TestDispatcher_CanStartExplainsViolation(t *testing.T) {
	d := newDispatcher(t, newEngine(t))
	require.True(t, d.Handle([]byte(`{"type":"ADD_LINE","lineId":"a","name":"A"}`)).OK)

	res := d.Handle([]byte(`{"type":"CAN_START","lineId":"a"}`))

	require.True(t, res.OK)
	value := res.Value.(map[string]interface{})
	assert.Equal(t, false, value["canStart"])
	assert.NotEmpty(t, value["reason"])
}
