package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

const fixtureYAML = `
economy:
  starting_credits: 1000
  starting_research_points: 0
  storage_upgrade_base_cost: 200
  storage_upgrade_multiplier: 1.5
  storage_capacity_step: 100
  module_unlock_cost: 500
  history_limit: 0
  starter_modules: [basic]
  first_mission: m1

resources:
  - { id: water,       price: 1,  base_capacity: 200, start_amount: 0 }
  - { id: corn,        price: 3,  base_capacity: 400, start_amount: 0 }
  - { id: iron,        price: 10, base_capacity: 200, start_amount: 20 }
  - { id: copper,      price: 12, base_capacity: 200, start_amount: 20 }
  - { id: electrochip, price: 60, base_capacity: 200, start_amount: 0 }
  - { id: watergas,    price: 6,  base_capacity: 200, start_amount: 0 }

recipes:
  - id: water_pump
    output: { resource: water, amount: 5 }
    production_time: 2
  - id: corn_farm
    inputs:
      - { resource: water, amount: 2 }
    output: { resource: corn, amount: 1 }
    production_time: 3
  - id: electrochip
    inputs:
      - { resource: iron, amount: 1 }
      - { resource: copper, amount: 1 }
    output: { resource: electrochip, amount: 1 }
    production_time: 10
  - id: watergas
    inputs:
      - { resource: water, amount: 2 }
    output: { resource: watergas, amount: 1 }
    production_time: 2
  - id: gas_plant
    inputs:
      - { resource: watergas, amount: 1 }
    output: { resource: electrochip, amount: 2 }
    production_time: 1

modules:
  - id: basic
    base_recipes: [water_pump, corn_farm, electrochip, watergas]
  - id: chemistry
    base_recipes: [gas_plant]

technologies:
  - id: t1
    module: basic
    cost: 10
    unlocks:
      passive_effects: { production_efficiency: 0.05 }
  - id: t2
    module: basic
    cost: 20
    prerequisites: [t1]
    unlocks:
      passive_effects: { production_efficiency: 0.1 }

missions:
  - id: m1
    chapter: 1
    conditions:
      - { type: PRODUCE_RESOURCE, resource: corn, amount: 300 }
    rewards:
      credits: 500
      research_points: 100
      unlock_module: chemistry
      passive_bonus: { production_speed: 0.5 }
  - id: m2
    chapter: 2
    conditions:
      - { type: CREDITS, amount: 500 }
    rewards:
      credits: -2000
      resources: { iron: 500 }
  - id: m3
    chapter: 3
    conditions:
      - { type: RESEARCH_TECH, technology: t1 }
`

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	reg, err := content.Parse([]byte(fixtureYAML))
	require.NoError(t, err)
	return reg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	opts := Options{BasePing: 100 * time.Millisecond, SampleRate: 10 * time.Millisecond, Speed: 1}
	return NewEngine(testRegistry(t), events.NewEventLog(nil, 0), logger.Discard(), opts)
}

// addLine creates a line with a recipe and every input set to source.
func addLine(t *testing.T, e *Engine, id production.LineID, recipe content.RecipeID, source production.InputSource, target production.OutputTarget) {
	t.Helper()
	require.NoError(t, e.AddProductionLine(id, string(id)))
	require.NoError(t, e.SetProductionRecipe(id, recipe))
	rec, err := e.registry.Recipe(recipe)
	require.NoError(t, err)
	for i, in := range rec.Inputs {
		require.NoError(t, e.SetInputSource(id, i, source, in.Resource))
	}
	require.NoError(t, e.SetOutputTarget(id, target))
}

func setAmount(e *Engine, id content.ResourceID, n int) {
	e.state.Resources[id].Amount = n
}

func amount(e *Engine, id content.ResourceID) int {
	return e.state.Resources[id].Amount
}

func credits(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
