package engine

import (
	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// TechResearchedPayload is attached to TECH_RESEARCHED events.
type TechResearchedPayload struct {
	Technology content.TechnologyID `json:"technology_id"`
	Cost       int                  `json:"cost"`
	Recipes    []content.RecipeID   `json:"recipes,omitempty"`
	Efficiency float64              `json:"production_efficiency,omitempty"`
}

// ModuleUnlockedPayload is attached to MODULE_UNLOCKED events.
type ModuleUnlockedPayload struct {
	Module  content.ModuleID   `json:"module_id"`
	Cost    int                `json:"cost"`
	Recipes []content.RecipeID `json:"recipes,omitempty"`
}

// ResearchSystem gates technologies behind their prerequisites and
// research points, unlocks modules and aggregates passive bonuses.
// Researched technologies and unlocked modules only ever grow.
type ResearchSystem struct {
	state    *EngineState
	registry *content.Registry
	eventLog *events.EventLog
	logger   *logger.Logger
}

func NewResearchSystem(reg *content.Registry, el *events.EventLog, log *logger.Logger) *ResearchSystem {
	return &ResearchSystem{
		registry: reg,
		eventLog: el,
		logger:   log,
	}
}

func (rs *ResearchSystem) bind(s *EngineState) {
	rs.state = s
}

// CanResearch reports whether ResearchTechnology(id, cost) would succeed.
func (rs *ResearchSystem) CanResearch(id content.TechnologyID, cost int) (bool, error) {
	tech, err := rs.registry.Technology(id)
	if err != nil {
		return false, err
	}
	return rs.canResearch(tech, rs.effectiveCost(tech, cost)), nil
}

// effectiveCost never lets a caller pay less than the definition asks.
func (rs *ResearchSystem) effectiveCost(tech *content.TechnologyDef, cost int) int {
	if cost < tech.Cost {
		return tech.Cost
	}
	return cost
}

func (rs *ResearchSystem) canResearch(tech *content.TechnologyDef, cost int) bool {
	if rs.state.ResearchedTechnologies.Has(tech.ID) {
		return false
	}
	for _, pre := range tech.Prerequisites {
		if !rs.state.ResearchedTechnologies.Has(pre) {
			return false
		}
	}
	return rs.state.ResearchPoints >= cost
}

// ResearchTechnology spends research points on a technology. A refusal
// (already researched, missing prerequisite, too few points) returns false
// and changes nothing. Only an unknown id is an error.
func (rs *ResearchSystem) ResearchTechnology(id content.TechnologyID, cost int, ping int64) (bool, error) {
	tech, err := rs.registry.Technology(id)
	if err != nil {
		return false, err
	}
	cost = rs.effectiveCost(tech, cost)
	if !rs.canResearch(tech, cost) {
		rs.logger.Debug("research refused", "technology", id, "points", rs.state.ResearchPoints, "cost", cost)
		return false, nil
	}

	rs.state.ResearchPoints -= cost
	rs.state.ResearchedTechnologies.Add(id)
	for _, rec := range tech.Unlocks.Recipes {
		rs.state.UnlockedRecipes.Add(rec)
	}
	rs.state.PassiveBonus = rs.state.PassiveBonus.Add(tech.Unlocks.PassiveEffects)

	rs.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeTechResearched,
		ActorID:  events.ActorPlayer,
		TargetID: string(id),
		Payload: TechResearchedPayload{
			Technology: id,
			Cost:       cost,
			Recipes:    tech.Unlocks.Recipes,
			Efficiency: tech.Unlocks.PassiveEffects.ProductionEfficiency,
		},
		Ping: ping,
	})
	rs.logger.Event(string(events.EventTypeTechResearched), events.ActorPlayer, string(id))
	return true, nil
}

// UnlockModule spends the flat module cost, independent of the research
// graph. Refusals return false and change nothing.
func (rs *ResearchSystem) UnlockModule(id content.ModuleID, ping int64) (bool, error) {
	mod, err := rs.registry.Module(id)
	if err != nil {
		return false, err
	}
	cost := rs.registry.Economy().ModuleUnlockCost
	if rs.state.UnlockedModules.Has(id) || rs.state.ResearchPoints < cost {
		return false, nil
	}
	rs.state.ResearchPoints -= cost
	rs.grantModule(mod, cost, events.ActorPlayer, ping)
	return true, nil
}

// grantModule unlocks a module and its base recipes without charging.
func (rs *ResearchSystem) grantModule(mod *content.ModuleDef, cost int, actor string, ping int64) bool {
	if !rs.state.UnlockedModules.Add(mod.ID) {
		return false
	}
	for _, rec := range mod.BaseRecipes {
		rs.state.UnlockedRecipes.Add(rec)
	}
	rs.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeModuleUnlocked,
		ActorID:  actor,
		TargetID: string(mod.ID),
		Payload:  ModuleUnlockedPayload{Module: mod.ID, Cost: cost, Recipes: mod.BaseRecipes},
		Ping:     ping,
	})
	rs.logger.Event(string(events.EventTypeModuleUnlocked), actor, string(mod.ID))
	return true
}

// AddPoints grants research points.
func (rs *ResearchSystem) AddPoints(n int) {
	rs.state.ResearchPoints += n
}

// TotalBonus is the aggregate production efficiency bonus.
func (rs *ResearchSystem) TotalBonus() float64 {
	return rs.state.PassiveBonus.ProductionEfficiency
}
