// Package production defines production lines: their identity, the
// player-chosen configuration and the runtime status the executor drives.
// This package is PURE and must NOT import any infrastructure packages.
package production

import (
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
)

// LineID identifies a production line.
type LineID string

// InputSource says where a recipe input comes from.
type InputSource string

const (
	SourceUnset     InputSource = ""           // Slot not configured yet
	SourceFromStock InputSource = "FROM_STOCK" // Drawn from owned storage
	SourcePurchase  InputSource = "PURCHASE"   // Bought at market price
)

// Valid reports whether s is a selectable source.
func (s InputSource) Valid() bool {
	return s == SourceFromStock || s == SourcePurchase
}

// OutputTarget says what happens to a finished product.
type OutputTarget string

const (
	TargetStore OutputTarget = "STORE"
	TargetSell  OutputTarget = "SELL"
)

// Valid reports whether t is a selectable target.
func (t OutputTarget) Valid() bool {
	return t == TargetStore || t == TargetSell
}

// Violation messages surfaced on Status.Error.
const (
	ErrInsufficientCapacity  = "insufficient storage capacity"
	ErrInsufficientResources = "insufficient resources"
	ErrInsufficientCredits   = "insufficient credits"
	ErrNoRecipe              = "no recipe selected"
)

// Line is the identity of a production line.
type Line struct {
	ID   LineID `json:"id"`
	Name string `json:"name"`
}

// Input is one configured recipe slot.
type Input struct {
	Source   InputSource        `json:"source"`
	Resource content.ResourceID `json:"resourceId"`
}

// Config is the player's setup for a line.
// Once a recipe is chosen len(Inputs) == len(recipe.Inputs).
type Config struct {
	LineID       LineID           `json:"lineId"`
	RecipeID     content.RecipeID `json:"recipeId,omitempty"`
	Inputs       []Input          `json:"inputSources"`
	OutputTarget OutputTarget     `json:"outputTarget"`
}

// NewConfig returns an empty configuration storing its output.
func NewConfig(id LineID) *Config {
	return &Config{LineID: id, OutputTarget: TargetStore}
}

// HasRecipe reports whether a recipe has been selected.
func (c *Config) HasRecipe() bool {
	return c.RecipeID != ""
}

// SelectRecipe switches the recipe and resets every input slot to unset,
// pre-filling the resource each slot consumes.
func (c *Config) SelectRecipe(rec *content.RecipeDef) {
	c.RecipeID = rec.ID
	c.Inputs = make([]Input, len(rec.Inputs))
	for i, in := range rec.Inputs {
		c.Inputs[i] = Input{Source: SourceUnset, Resource: in.Resource}
	}
}

// Status is the runtime state of a line.
type Status struct {
	LineID            LineID    `json:"lineId"`
	IsActive          bool      `json:"isActive"`
	Progress          float64   `json:"progress"` // Percent of the current cycle, >= 0
	ElapsedPings      int       `json:"elapsedPings"`
	LastTickTimestamp time.Time `json:"lastTickTimestamp"`
	Error             string    `json:"error,omitempty"`
}

// NewStatus returns an inactive status with no progress.
func NewStatus(id LineID) *Status {
	return &Status{LineID: id}
}

// Fault forces the line inactive with a human readable reason.
func (s *Status) Fault(reason string) {
	s.IsActive = false
	s.Error = reason
}

// Reset clears progress and error and stops the line.
func (s *Status) Reset() {
	s.IsActive = false
	s.Progress = 0
	s.ElapsedPings = 0
	s.Error = ""
}

// Advance moves the cycle forward by elapsed pings of a recipe taking
// productionTime pings. Progress is derived from whole pings so that a
// cycle always completes after exactly productionTime pings.
func (s *Status) Advance(elapsed, productionTime int, now time.Time) {
	s.Error = ""
	s.ElapsedPings += elapsed
	s.Progress = float64(s.ElapsedPings) * 100 / float64(productionTime)
	s.LastTickTimestamp = now
}

// Complete reports whether the current cycle reached 100%.
func (s *Status) Complete() bool {
	return s.Progress >= 100
}

// Restart drops the finished cycle. Progress past 100% is not carried over.
func (s *Status) Restart() {
	s.Progress = 0
	s.ElapsedPings = 0
}
