package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
)

func TestNewState_StartsFromContent(t *testing.T) {
	reg := testRegistry(t)

	s := NewState(reg)

	assert.Len(t, s.Resources, 6)
	assert.Equal(t, 20, s.Resources["iron"].Amount)
	assert.Equal(t, 1, s.Resources["iron"].StorageLevel)
	assert.True(t, s.UnlockedModules.Has("basic"))
	assert.True(t, s.UnlockedRecipes.Has("electrochip"))
	assert.False(t, s.UnlockedRecipes.Has("gas_plant"))
	assert.Equal(t, content.MissionID("m1"), s.Missions.ActiveMissionID)
	assert.Equal(t, MissionActive, s.Missions.Data["m1"].Status)
	assert.Equal(t, MissionNotStarted, s.Missions.Data["m2"].Status)
}

func TestState_RoundTripIsExact(t *testing.T) {
	// Arrange: a state with some of everything.
	e := newTestEngine(t)
	e.state.ResearchPoints = 600
	setAmount(e, "water", 30)
	addLine(t, e, "pump", "water_pump", production.SourceFromStock, production.TargetSell)
	addLine(t, e, "farm", "corn_farm", production.SourcePurchase, production.TargetStore)
	_, err := e.ToggleProduction("pump")
	require.NoError(t, err)
	_, err = e.ToggleProduction("farm")
	require.NoError(t, err)
	_, err = e.ResearchTechnology("t1", 10)
	require.NoError(t, err)
	_, err = e.UnlockModule("chemistry")
	require.NoError(t, err)
	_, err = e.UpgradeStorage("corn")
	require.NoError(t, err)
	e.Step(7)

	// Act
	first, err := e.Export()
	require.NoError(t, err)
	decoded, err := UnmarshalState(first, e.registry)
	require.NoError(t, err)
	second, err := MarshalState(decoded)
	require.NoError(t, err)

	// Assert
	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, e.state.Lines, decoded.Lines)
	assert.True(t, e.state.Credits.Equal(decoded.Credits))
	assert.Equal(t, e.state.UnlockedRecipes.Items(), decoded.UnlockedRecipes.Items())
}

func TestCheckpoint_PingMatchesBlobWhileStepping(t *testing.T) {
	// Arrange
	e := newTestEngine(t)
	addLine(t, e, "pump", "water_pump", production.SourceFromStock, production.TargetSell)
	_, err := e.ToggleProduction("pump")
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Step(200)
	}()

	// Act + Assert
	for i := 0; i < 50; i++ {
		raw, ping, err := e.Checkpoint()
		require.NoError(t, err)
		decoded, err := UnmarshalState(raw, e.registry)
		require.NoError(t, err)
		assert.Equal(t, decoded.Ping, ping)
	}
	<-done

	_, ping, err := e.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, int64(200), ping)
}

func TestRestore_ResumesPingsAndProgress(t *testing.T) {
	e := newTestEngine(t)
	addLine(t, e, "chips", "electrochip", production.SourceFromStock, production.TargetStore)
	_, err := e.ToggleProduction("chips")
	require.NoError(t, err)
	e.Step(6)
	raw := mustExport(t, e)

	restored := newTestEngine(t)
	require.NoError(t, restored.Restore(raw))
	restored.Step(4)

	assert.Equal(t, int64(10), restored.Snapshot().Ping)
	assert.Equal(t, 1, amount(restored, "electrochip"))
}

func TestUnmarshalState_Failures(t *testing.T) {
	reg := testRegistry(t)

	_, err := UnmarshalState([]byte("not json"), reg)
	assert.Error(t, err)

	_, err = UnmarshalState([]byte(`{"version": 99}`), reg)
	assert.ErrorContains(t, err, "unsupported state version")
}

func TestUnmarshalState_FillsContentAddedLater(t *testing.T) {
	reg := testRegistry(t)
	raw := []byte(`{"version":1,"credits":"42","productionLines":[{"id":"old","name":"Old"}]}`)

	s, err := UnmarshalState(raw, reg)

	require.NoError(t, err)
	assert.Len(t, s.Resources, 6)
	assert.NotNil(t, s.Configs["old"])
	assert.NotNil(t, s.Status["old"])
	assert.Equal(t, "42", s.Credits.String())
	assert.Len(t, s.Missions.Data, 3)
}

func TestIDSet_OrderedAndGrowOnly(t *testing.T) {
	s := NewIDSet[content.RecipeID]("b", "a")

	assert.False(t, s.Add("b"))
	assert.True(t, s.Add("c"))

	assert.Equal(t, []content.RecipeID{"b", "a", "c"}, s.Items())
	raw, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["b","a","c"]`, string(raw))
}
