package production_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
)

func TestConfig_SelectRecipeResetsInputs(t *testing.T) {
	cfg := production.NewConfig("L1")
	cfg.Inputs = []production.Input{{Source: production.SourcePurchase, Resource: "corn"}}

	cfg.SelectRecipe(&content.RecipeDef{
		ID: "electrochip",
		Inputs: []content.Ingredient{
			{Resource: "iron", Amount: 1},
			{Resource: "copper", Amount: 1},
		},
		Output:         content.Ingredient{Resource: "electrochip", Amount: 1},
		ProductionTime: 10,
	})

	assert.Equal(t, content.RecipeID("electrochip"), cfg.RecipeID)
	assert.Equal(t, []production.Input{
		{Source: production.SourceUnset, Resource: "iron"},
		{Source: production.SourceUnset, Resource: "copper"},
	}, cfg.Inputs)
	assert.Equal(t, production.TargetStore, cfg.OutputTarget)
}

func TestStatus_AdvanceCompletesAfterProductionTime(t *testing.T) {
	st := production.NewStatus("L1")
	now := time.Unix(1700000000, 0)

	for i := 0; i < 2; i++ {
		assert.False(t, st.Complete())
		st.Advance(1, 3, now)
	}
	assert.False(t, st.Complete())
	st.Advance(1, 3, now)
	assert.True(t, st.Complete())
	assert.Equal(t, now, st.LastTickTimestamp)

	st.Restart()
	assert.Zero(t, st.Progress)
	assert.Zero(t, st.ElapsedPings)
}

func TestStatus_FaultAndReset(t *testing.T) {
	st := production.NewStatus("L1")
	st.IsActive = true
	st.Advance(1, 4, time.Now())

	st.Fault(production.ErrInsufficientCredits)
	assert.False(t, st.IsActive)
	assert.Equal(t, "insufficient credits", st.Error)
	assert.Equal(t, 25.0, st.Progress, "a fault keeps progress")

	st.Reset()
	assert.Equal(t, production.Status{LineID: "L1", LastTickTimestamp: st.LastTickTimestamp}, *st)
}

func TestSourcesAndTargets(t *testing.T) {
	assert.True(t, production.SourceFromStock.Valid())
	assert.True(t, production.SourcePurchase.Valid())
	assert.False(t, production.SourceUnset.Valid())
	assert.False(t, production.InputSource("STEAL").Valid())

	assert.True(t, production.TargetSell.Valid())
	assert.False(t, production.OutputTarget("BURN").Valid())
}
