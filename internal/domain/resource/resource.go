// Package resource defines the stockpile entity for a single resource.
// This package is PURE and must NOT import any infrastructure packages.
package resource

import "github.com/SebastianChristoph/industrygame-sub000/internal/content"

// Stock is the owned quantity of one resource.
// Invariant: 0 <= Amount <= Capacity, StorageLevel >= 1.
type Stock struct {
	ID           content.ResourceID `json:"id"`
	Amount       int                `json:"amount"`
	Capacity     int                `json:"capacity"`
	StorageLevel int                `json:"storageLevel"`
}

// New creates a level 1 stock from its definition. The start amount is
// clamped to the base capacity.
func New(def *content.ResourceDef) *Stock {
	amount := def.StartAmount
	if amount > def.BaseCapacity {
		amount = def.BaseCapacity
	}
	return &Stock{
		ID:           def.ID,
		Amount:       amount,
		Capacity:     def.BaseCapacity,
		StorageLevel: 1,
	}
}

// Headroom returns how many units still fit.
func (s *Stock) Headroom() int {
	return s.Capacity - s.Amount
}

// CanStore reports whether n more units fit.
func (s *Stock) CanStore(n int) bool {
	return n >= 0 && s.Amount+n <= s.Capacity
}

// Has reports whether at least n units are on hand.
func (s *Stock) Has(n int) bool {
	return n >= 0 && s.Amount >= n
}

// Add stores n units. Returns false and leaves the stock untouched if
// they do not fit.
func (s *Stock) Add(n int) bool {
	if !s.CanStore(n) {
		return false
	}
	s.Amount += n
	return true
}

// Remove takes n units out. Returns false and leaves the stock untouched
// if fewer than n are on hand.
func (s *Stock) Remove(n int) bool {
	if !s.Has(n) {
		return false
	}
	s.Amount -= n
	return true
}

// Expand raises the storage level by one and the capacity by step.
func (s *Stock) Expand(step int) {
	s.Capacity += step
	s.StorageLevel++
}
