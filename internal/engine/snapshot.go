package engine

import (
	"github.com/shopspring/decimal"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/resource"
)

// ResourceView is one stock plus the price of its next storage level.
type ResourceView struct {
	resource.Stock
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	UpgradeCost int64  `json:"upgradeCost"`
}

// LineView is a copy of one line with its configuration and status.
type LineView struct {
	production.Line
	Config production.Config `json:"config"`
	Status production.Status `json:"status"`
}

// MissionView describes the active mission.
type MissionView struct {
	ID         content.MissionID `json:"id"`
	Chapter    int               `json:"chapter"`
	Title      string            `json:"title"`
	Status     MissionStatus     `json:"status"`
	Conditions []bool            `json:"conditions"`
	AllMet     bool              `json:"allConditionsMet"`
}

// Snapshot is a consistent, detached copy of everything a client shows.
type Snapshot struct {
	Ping              int64                  `json:"ping"`
	Speed             float64                `json:"speed"`
	Credits           decimal.Decimal        `json:"credits"`
	ResearchPoints    int                    `json:"researchPoints"`
	Resources         []ResourceView         `json:"resources"`
	Lines             []LineView             `json:"productionLines"`
	Rates             Rates                  `json:"rates"`
	TotalProfit       decimal.Decimal        `json:"totalProfit"`
	Researched        []content.TechnologyID `json:"researchedTechnologies"`
	UnlockedModules   []content.ModuleID     `json:"unlockedModules"`
	UnlockedRecipes   []content.RecipeID     `json:"unlockedRecipes"`
	PassiveBonus      content.PassiveEffects `json:"passiveBonus"`
	ActiveMission     *MissionView           `json:"activeMission,omitempty"`
	CompletedMissions []content.MissionID    `json:"completedMissionIds"`
}

// Snapshot copies the current state. Resources follow content order,
// lines follow creation order.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	snap := Snapshot{
		Ping:              s.Ping,
		Speed:             e.ticker.Speed(),
		Credits:           s.Credits,
		ResearchPoints:    s.ResearchPoints,
		Rates:             e.economy.Rates(),
		TotalProfit:       s.Statistics.TotalProfit,
		Researched:        s.ResearchedTechnologies.Items(),
		UnlockedModules:   s.UnlockedModules.Items(),
		UnlockedRecipes:   s.UnlockedRecipes.Items(),
		PassiveBonus:      s.PassiveBonus,
		CompletedMissions: s.Missions.CompletedMissionIDs.Items(),
	}

	for _, id := range e.registry.Resources() {
		st, err := e.resources.Stock(id)
		if err != nil {
			continue
		}
		def, _ := e.registry.Resource(id)
		cost, _ := e.resources.UpgradeCost(id)
		snap.Resources = append(snap.Resources, ResourceView{Stock: *st, Name: def.Name, Price: def.Price, UpgradeCost: cost})
	}

	for _, l := range s.Lines {
		view := LineView{Line: l}
		if cfg := s.Configs[l.ID]; cfg != nil {
			view.Config = *cfg
			view.Config.Inputs = append([]production.Input(nil), cfg.Inputs...)
		}
		if st := s.Status[l.ID]; st != nil {
			view.Status = *st
		}
		snap.Lines = append(snap.Lines, view)
	}

	if def := e.missions.Active(); def != nil {
		p := e.missions.progress(def.ID)
		view := &MissionView{
			ID:         def.ID,
			Chapter:    def.Chapter,
			Title:      def.Title,
			Status:     p.Status,
			Conditions: append([]bool(nil), p.Conditions...),
			AllMet:     len(p.Conditions) > 0,
		}
		for _, ok := range p.Conditions {
			view.AllMet = view.AllMet && ok
		}
		snap.ActiveMission = view
	}
	return snap
}

// Line returns a copy of one line.
func (e *Engine) Line(id production.LineID) (LineView, error) {
	for _, l := range e.Snapshot().Lines {
		if l.ID == id {
			return l, nil
		}
	}
	return LineView{}, ErrLineNotFound
}

// Statistics returns a copy of the statistics log.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state.Statistics
	return Statistics{
		ProductionHistory:  append([]ProductionEntry(nil), st.ProductionHistory...),
		ProfitHistory:      append([]ProfitEntry(nil), st.ProfitHistory...),
		GlobalStatsHistory: append([]GlobalStatsEntry(nil), st.GlobalStatsHistory...),
		TotalProfit:        st.TotalProfit,
	}
}
