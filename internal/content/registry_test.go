package content_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
)

func TestDefault_LoadsEmbeddedContent(t *testing.T) {
	reg, err := content.Default()
	require.NoError(t, err)

	water, err := reg.Resource("water")
	require.NoError(t, err)
	assert.Equal(t, 200, water.BaseCapacity)

	chip, err := reg.Recipe("electrochip")
	require.NoError(t, err)
	assert.Len(t, chip.Inputs, 2)
	assert.Equal(t, 10, chip.ProductionTime)

	assert.Equal(t, int64(200), reg.Economy().StorageUpgradeBaseCost)
	assert.Equal(t, content.MissionID("first_harvest"), reg.Economy().FirstMission)
}

func TestRegistry_UnknownIDIsTyped(t *testing.T) {
	reg, err := content.Default()
	require.NoError(t, err)

	_, err = reg.Recipe("perpetual_motion")
	require.Error(t, err)
	assert.True(t, errors.Is(err, content.ErrUnknownID))

	var unknown *content.UnknownIDError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "recipe", unknown.Kind)
	assert.Equal(t, "perpetual_motion", unknown.ID)

	_, err = reg.Technology("time_travel")
	assert.ErrorIs(t, err, content.ErrUnknownID)
	_, err = reg.Module("space")
	assert.ErrorIs(t, err, content.ErrUnknownID)
	_, err = reg.Mission("nope")
	assert.ErrorIs(t, err, content.ErrUnknownID)
}

func TestRegistry_MissionsSortedByChapter(t *testing.T) {
	raw := []byte(`
economy:
  storage_upgrade_base_cost: 10
  storage_upgrade_multiplier: 2
  storage_capacity_step: 10
  starter_modules: [m]
resources:
  - { id: a, price: 1, base_capacity: 10 }
modules:
  - { id: m }
missions:
  - id: late
    chapter: 3
    conditions: [{ type: CREDITS, amount: 1 }]
  - id: early
    chapter: 1
    conditions: [{ type: CREDITS, amount: 1 }]
  - id: middle
    chapter: 2
    conditions: [{ type: PRODUCE_RESOURCE, resource: a, amount: 1 }]
`)
	reg, err := content.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, []content.MissionID{"early", "middle", "late"}, reg.Missions())
}

func TestParse_RejectsDanglingReferences(t *testing.T) {
	raw := []byte(`
economy:
  storage_upgrade_base_cost: 10
  storage_upgrade_multiplier: 2
  storage_capacity_step: 10
  starter_modules: [m]
resources:
  - { id: a, price: 1, base_capacity: 10 }
modules:
  - { id: m }
recipes:
  - id: r
    inputs: [{ resource: ghost, amount: 1 }]
    output: { resource: a, amount: 1 }
    production_time: 1
`)
	_, err := content.Parse(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, content.ErrUnknownID)
}

func TestParse_RejectsInvalidValues(t *testing.T) {
	raw := []byte(`
economy:
  storage_upgrade_base_cost: 10
  storage_upgrade_multiplier: 2
  storage_capacity_step: 10
  starter_modules: [m]
resources:
  - { id: a, price: 1, base_capacity: 10 }
modules:
  - { id: m }
recipes:
  - id: r
    output: { resource: a, amount: 1 }
    production_time: 0
`)
	_, err := content.Parse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProductionTime")
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.yaml")
	raw := []byte(`
economy:
  storage_upgrade_base_cost: 10
  storage_upgrade_multiplier: 2
  storage_capacity_step: 10
  starter_modules: [m]
resources:
  - { id: a, price: 1, base_capacity: 10 }
modules:
  - { id: m, base_resources: [a] }
`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	reg, err := content.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []content.ResourceID{"a"}, reg.Resources())

	_, err = content.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
