// Package content holds the static, read-only tables the simulation runs on:
// resources, recipes, technologies, modules and missions.
//
// Definitions are loaded once from YAML and never mutated afterwards. The
// engine only ever reaches them through a Registry, keyed by the interned id
// types below.
package content

// ResourceID identifies a stockable resource (e.g. "water", "iron").
type ResourceID string

// RecipeID identifies a production recipe.
type RecipeID string

// TechnologyID identifies a node of the research graph.
type TechnologyID string

// ModuleID identifies a content module (a group of resources, recipes and technologies).
type ModuleID string

// MissionID identifies a mission.
type MissionID string

// EconomyDef stores global tuning values loaded from the `economy` section.
type EconomyDef struct {
	StartingCredits          int64      `yaml:"starting_credits" json:"starting_credits"`
	StartingResearchPoints   int        `yaml:"starting_research_points" json:"starting_research_points" validate:"gte=0"`
	StorageUpgradeBaseCost   int64      `yaml:"storage_upgrade_base_cost" json:"storage_upgrade_base_cost" validate:"gte=1"`
	StorageUpgradeMultiplier float64    `yaml:"storage_upgrade_multiplier" json:"storage_upgrade_multiplier" validate:"gt=1"`
	StorageCapacityStep      int        `yaml:"storage_capacity_step" json:"storage_capacity_step" validate:"gte=1"`
	ModuleUnlockCost         int        `yaml:"module_unlock_cost" json:"module_unlock_cost" validate:"gte=0"`
	HistoryLimit             int        `yaml:"history_limit" json:"history_limit" validate:"gte=0"` // 0 keeps every entry
	StarterModules           []ModuleID `yaml:"starter_modules" json:"starter_modules" validate:"min=1"`
	FirstMission             MissionID  `yaml:"first_mission" json:"first_mission"`
}

// ResourceDef describes a resource and its market price.
type ResourceDef struct {
	ID           ResourceID `yaml:"id" json:"id" validate:"required"`
	Name         string     `yaml:"name" json:"name"`
	Price        int64      `yaml:"price" json:"price" validate:"gte=0"`                 // Credits per unit, used for PURCHASE and SELL
	BaseCapacity int        `yaml:"base_capacity" json:"base_capacity" validate:"gte=1"` // Capacity at storage level 1
	StartAmount  int        `yaml:"start_amount" json:"start_amount" validate:"gte=0"`
}

// Ingredient is a (resource, amount) pair used by recipes and rewards.
type Ingredient struct {
	Resource ResourceID `yaml:"resource" json:"resource" validate:"required"`
	Amount   int        `yaml:"amount" json:"amount" validate:"gt=0"`
}

// RecipeDef converts Inputs into Output over ProductionTime pings.
type RecipeDef struct {
	ID             RecipeID     `yaml:"id" json:"id" validate:"required"`
	Name           string       `yaml:"name" json:"name"`
	Inputs         []Ingredient `yaml:"inputs" json:"inputs" validate:"dive"`
	Output         Ingredient   `yaml:"output" json:"output"`
	ProductionTime int          `yaml:"production_time" json:"production_time" validate:"gt=0"`
}

// PassiveEffects are permanent modifiers granted by research or missions.
type PassiveEffects struct {
	ProductionEfficiency float64 `yaml:"production_efficiency" json:"productionEfficiency"`
	ProductionSpeed      float64 `yaml:"production_speed" json:"productionSpeed"`
}

// Add returns the element-wise sum of two effect sets.
func (p PassiveEffects) Add(o PassiveEffects) PassiveEffects {
	return PassiveEffects{
		ProductionEfficiency: p.ProductionEfficiency + o.ProductionEfficiency,
		ProductionSpeed:      p.ProductionSpeed + o.ProductionSpeed,
	}
}

// TechnologyUnlocks lists what researching a technology grants.
type TechnologyUnlocks struct {
	Recipes        []RecipeID     `yaml:"recipes" json:"recipes"`
	PassiveEffects PassiveEffects `yaml:"passive_effects" json:"passive_effects"`
}

// TechnologyDef is a node in the research graph.
type TechnologyDef struct {
	ID            TechnologyID      `yaml:"id" json:"id" validate:"required"`
	Module        ModuleID          `yaml:"module" json:"module" validate:"required"`
	Name          string            `yaml:"name" json:"name"`
	Cost          int               `yaml:"cost" json:"cost" validate:"gte=0"`
	Prerequisites []TechnologyID    `yaml:"prerequisites" json:"prerequisites"`
	Unlocks       TechnologyUnlocks `yaml:"unlocks" json:"unlocks"`
}

// ModuleDef groups the resources and recipes available once the module is unlocked.
type ModuleDef struct {
	ID            ModuleID     `yaml:"id" json:"id" validate:"required"`
	Name          string       `yaml:"name" json:"name"`
	BaseResources []ResourceID `yaml:"base_resources" json:"base_resources"`
	BaseRecipes   []RecipeID   `yaml:"base_recipes" json:"base_recipes"`
}

// ConditionType names a mission predicate.
type ConditionType string

const (
	ConditionProduceResource ConditionType = "PRODUCE_RESOURCE"
	ConditionProductionRate  ConditionType = "PRODUCTION_RATE"
	ConditionResearchTech    ConditionType = "RESEARCH_TECH"
	ConditionUnlockModule    ConditionType = "UNLOCK_MODULE"
	ConditionCredits         ConditionType = "CREDITS"
	ConditionTotalBalance    ConditionType = "TOTAL_BALANCE"
)

// ConditionDef is one declarative mission predicate. Which fields are read
// depends on Type.
type ConditionDef struct {
	Type       ConditionType `yaml:"type" json:"type" validate:"required,oneof=PRODUCE_RESOURCE PRODUCTION_RATE RESEARCH_TECH UNLOCK_MODULE CREDITS TOTAL_BALANCE"`
	Resource   ResourceID    `yaml:"resource,omitempty" json:"resource,omitempty"`
	Technology TechnologyID  `yaml:"technology,omitempty" json:"technology,omitempty"`
	Module     ModuleID      `yaml:"module,omitempty" json:"module,omitempty"`
	Amount     int64         `yaml:"amount,omitempty" json:"amount,omitempty"`
	Rate       int           `yaml:"rate,omitempty" json:"rate,omitempty"`
}

// MissionRewards are applied once, when a mission is completed.
// Credits is signed: a reward may also take credits away.
type MissionRewards struct {
	Credits        int64              `yaml:"credits,omitempty" json:"credits,omitempty"`
	ResearchPoints int                `yaml:"research_points,omitempty" json:"research_points,omitempty" validate:"gte=0"`
	Resources      map[ResourceID]int `yaml:"resources,omitempty" json:"resources,omitempty"`
	UnlockModule   ModuleID           `yaml:"unlock_module,omitempty" json:"unlock_module,omitempty"`
	PassiveBonus   *PassiveEffects    `yaml:"passive_bonus,omitempty" json:"passive_bonus,omitempty"`
}

// MissionDef is an objective, ordered by Chapter.
type MissionDef struct {
	ID         MissionID      `yaml:"id" json:"id" validate:"required"`
	Chapter    int            `yaml:"chapter" json:"chapter" validate:"gte=0"`
	Title      string         `yaml:"title" json:"title"`
	Conditions []ConditionDef `yaml:"conditions" json:"conditions" validate:"min=1,dive"`
	Rewards    MissionRewards `yaml:"rewards" json:"rewards"`
}

// Catalog is the root document of a content file.
type Catalog struct {
	Economy      EconomyDef      `yaml:"economy" json:"economy"`
	Resources    []ResourceDef   `yaml:"resources" json:"resources" validate:"min=1,dive"`
	Recipes      []RecipeDef     `yaml:"recipes" json:"recipes" validate:"dive"`
	Technologies []TechnologyDef `yaml:"technologies" json:"technologies" validate:"dive"`
	Modules      []ModuleDef     `yaml:"modules" json:"modules" validate:"min=1,dive"`
	Missions     []MissionDef    `yaml:"missions" json:"missions" validate:"dive"`
}
