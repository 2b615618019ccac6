package rules_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/rules"
)

func TestStorageUpgradeCost(t *testing.T) {
	assert.Equal(t, int64(200), rules.StorageUpgradeCost(200, 1.5, 1))
	assert.Equal(t, int64(300), rules.StorageUpgradeCost(200, 1.5, 2))
	assert.Equal(t, int64(450), rules.StorageUpgradeCost(200, 1.5, 3))
	assert.Equal(t, int64(675), rules.StorageUpgradeCost(200, 1.5, 4))
}

func TestStorageUpgradeCost_StrictlyIncreasing(t *testing.T) {
	cases := []struct {
		base       int64
		multiplier float64
	}{
		{200, 1.5},
		{1, 1.01},
		{10, 1.1},
		{3, 2},
	}
	for _, tc := range cases {
		prev := rules.StorageUpgradeCost(tc.base, tc.multiplier, 1)
		for level := 2; level <= 30; level++ {
			cost := rules.StorageUpgradeCost(tc.base, tc.multiplier, level)
			assert.Greater(t, cost, prev, "base=%d mult=%v level=%d", tc.base, tc.multiplier, level)
			prev = cost
		}
	}
}

func TestStorageUpgradeCost_BumpCarriesForwardForSmallBases(t *testing.T) {
	// floor(1 × 1.5^(l-1)) is 1, 1, 2, 3; each level must cost more than the last.
	got := []int64{
		rules.StorageUpgradeCost(1, 1.5, 1),
		rules.StorageUpgradeCost(1, 1.5, 2),
		rules.StorageUpgradeCost(1, 1.5, 3),
		rules.StorageUpgradeCost(1, 1.5, 4),
		rules.StorageUpgradeCost(1, 1.5, 8),
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 17}, got)
}

func TestApplyBonus(t *testing.T) {
	assert.Equal(t, "105", rules.ApplyBonus(decimal.NewFromInt(100), 0.05).String())
	assert.Equal(t, "11", rules.ApplyBonus(decimal.NewFromInt(10), 0.05).String(), "10.5 rounds half up")
	assert.Equal(t, "60", rules.ApplyBonus(decimal.NewFromInt(60), 0).String())
}

func TestPerPing(t *testing.T) {
	v := rules.Value(60, 1)
	assert.Equal(t, "6", rules.PerPing(v, 10).String())
	assert.Equal(t, "0.33", rules.RoundRate(rules.PerPing(decimal.NewFromInt(1), 3)).String())
	assert.True(t, rules.PerPing(v, 0).IsZero())
}
