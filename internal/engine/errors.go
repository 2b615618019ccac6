package engine

import (
	"errors"
	"fmt"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
)

var (
	ErrLineNotFound      = errors.New("production line not found")
	ErrLineExists        = errors.New("production line already exists")
	ErrRecipeLocked      = errors.New("recipe not unlocked")
	ErrNoRecipe          = errors.New("no recipe selected")
	ErrInvalidInputIndex = errors.New("input index out of range")
	ErrInvalidSource     = errors.New("invalid input source")
	ErrInvalidTarget     = errors.New("invalid output target")
	ErrInvalidAmount     = errors.New("amount must not be negative")
	ErrMissionNotActive  = errors.New("mission is not active")
	ErrConditionsNotMet  = errors.New("mission conditions not met")
	ErrMissionCompleted  = errors.New("mission already completed")
)

// ResourceError is returned by ledger operations that would leave a
// stock outside [0, capacity]. Nothing is mutated when it is returned.
type ResourceError struct {
	Resource content.ResourceID
	Op       string
	Amount   int
	Have     int
	Capacity int
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("cannot %s %d %s (have %d, capacity %d)", e.Op, e.Amount, e.Resource, e.Have, e.Capacity)
}
