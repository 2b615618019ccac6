// Package rules contains the pure calculation logic for the economy.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"

	"github.com/shopspring/decimal"
)

// StorageUpgradeCost is the price of raising a resource from level to
// level+1: floor(base × multiplier^(level-1)). A level whose floored cost
// would not exceed the previous one costs one credit more than it, so the
// sequence is strictly increasing for any multiplier > 1.
func StorageUpgradeCost(base int64, multiplier float64, level int) int64 {
	if level < 1 {
		level = 1
	}
	cost := base
	for l := 2; l <= level; l++ {
		next := int64(math.Floor(float64(base) * math.Pow(multiplier, float64(l-1))))
		if next <= cost {
			next = cost + 1
		}
		cost = next
	}
	return cost
}

// ApplyBonus scales value by (1 + bonus) and rounds to a whole credit.
func ApplyBonus(value decimal.Decimal, bonus float64) decimal.Decimal {
	if bonus == 0 {
		return value
	}
	return value.Mul(decimal.NewFromFloat(1 + bonus)).Round(0)
}

// Value is price × amount.
func Value(price int64, amount int) decimal.Decimal {
	return decimal.NewFromInt(price).Mul(decimal.NewFromInt(int64(amount)))
}

// PerPing spreads a per-cycle value over the cycle duration.
func PerPing(value decimal.Decimal, productionTime int) decimal.Decimal {
	if productionTime <= 0 {
		return decimal.Zero
	}
	return value.Div(decimal.NewFromInt(int64(productionTime)))
}

// RoundRate rounds a derived per-ping figure to two decimals.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
