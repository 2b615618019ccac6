package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/resource"
)

// StateVersion is written into every persisted blob.
const StateVersion = 1

// MissionStatus is the lifecycle of one mission.
type MissionStatus string

const (
	MissionNotStarted MissionStatus = "NOT_STARTED"
	MissionActive     MissionStatus = "ACTIVE"
	MissionCompleted  MissionStatus = "COMPLETED"
)

// MissionProgress is the per-mission record kept in MissionState.Data.
type MissionProgress struct {
	Status        MissionStatus `json:"status"`
	Conditions    []bool        `json:"conditions,omitempty"` // Result of the last evaluation
	ActivatedPing int64         `json:"activatedPing,omitempty"`
	CompletedPing int64         `json:"completedPing,omitempty"`
}

// MissionState tracks mission progression. At most one mission is ACTIVE.
type MissionState struct {
	ActiveMissionID     content.MissionID                      `json:"activeMissionId,omitempty"`
	CompletedMissionIDs IDSet[content.MissionID]               `json:"completedMissionIds"`
	Data                map[content.MissionID]*MissionProgress `json:"data"`
}

// ProductionEntry records one finished cycle.
type ProductionEntry struct {
	LineID    production.LineID  `json:"lineId"`
	Timestamp time.Time          `json:"timestamp"`
	Ping      int64              `json:"ping"`
	Resource  content.ResourceID `json:"resourceId"`
	Amount    int                `json:"amount"`
	Sold      bool               `json:"sold"`
}

// ProfitEntry records the credit effect of one finished cycle.
type ProfitEntry struct {
	LineID    production.LineID `json:"lineId"`
	Timestamp time.Time         `json:"timestamp"`
	Ping      int64             `json:"ping"`
	Profit    decimal.Decimal   `json:"profit"`
}

// GlobalStatsEntry is the per-ping aggregate.
type GlobalStatsEntry struct {
	Timestamp    time.Time       `json:"timestamp"`
	Ping         int64           `json:"ping"`
	PerPing      decimal.Decimal `json:"perPing"`      // Derived balance per ping at this moment
	TotalBalance decimal.Decimal `json:"totalBalance"` // Sum of every profit entry so far
	Credits      decimal.Decimal `json:"credits"`
}

// Statistics is the append-only reporting log. Simulation logic never
// reads it back.
type Statistics struct {
	ProductionHistory  []ProductionEntry  `json:"productionHistory"`
	ProfitHistory      []ProfitEntry      `json:"profitHistory"`
	GlobalStatsHistory []GlobalStatsEntry `json:"globalStatsHistory"`
	TotalProfit        decimal.Decimal    `json:"totalProfit"`
}

// keepLast trims a history to its newest limit entries. limit <= 0 keeps all.
func keepLast[T any](s []T, limit int) []T {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return append(s[:0:0], s[len(s)-limit:]...)
}

// EngineState is every piece of mutable simulation state.
type EngineState struct {
	Version                int                                      `json:"version"`
	Ping                   int64                                    `json:"ping"`
	Resources              map[content.ResourceID]*resource.Stock   `json:"resources"`
	Lines                  []production.Line                        `json:"productionLines"` // Creation order
	Configs                map[production.LineID]*production.Config `json:"productionConfigs"`
	Status                 map[production.LineID]*production.Status `json:"productionStatus"`
	Credits                decimal.Decimal                          `json:"credits"`
	ResearchPoints         int                                      `json:"researchPoints"`
	ResearchedTechnologies IDSet[content.TechnologyID]              `json:"researchedTechnologies"`
	UnlockedModules        IDSet[content.ModuleID]                  `json:"unlockedModules"`
	UnlockedRecipes        IDSet[content.RecipeID]                  `json:"unlockedRecipes"`
	PassiveBonus           content.PassiveEffects                   `json:"passiveBonus"`
	Missions               MissionState                             `json:"missions"`
	Statistics             Statistics                               `json:"statistics"`
}

// NewState builds the starting state for a registry: every resource at
// level 1, starter modules unlocked and the first mission active.
func NewState(reg *content.Registry) *EngineState {
	econ := reg.Economy()
	s := &EngineState{
		Version:        StateVersion,
		Resources:      make(map[content.ResourceID]*resource.Stock),
		Configs:        make(map[production.LineID]*production.Config),
		Status:         make(map[production.LineID]*production.Status),
		Credits:        decimal.NewFromInt(econ.StartingCredits),
		ResearchPoints: econ.StartingResearchPoints,
		Missions: MissionState{
			Data: make(map[content.MissionID]*MissionProgress),
		},
	}
	s.fillFromRegistry(reg)

	for _, id := range econ.StarterModules {
		s.UnlockedModules.Add(id)
		if mod, err := reg.Module(id); err == nil {
			for _, rec := range mod.BaseRecipes {
				s.UnlockedRecipes.Add(rec)
			}
		}
	}

	first := econ.FirstMission
	if first == "" {
		if ids := reg.Missions(); len(ids) > 0 {
			first = ids[0]
		}
	}
	if first != "" {
		s.Missions.ActiveMissionID = first
		s.Missions.Data[first].Status = MissionActive
	}
	return s
}

// fillFromRegistry adds resources and missions the state does not know yet.
func (s *EngineState) fillFromRegistry(reg *content.Registry) {
	for _, id := range reg.Resources() {
		if _, ok := s.Resources[id]; ok {
			continue
		}
		def, _ := reg.Resource(id)
		s.Resources[id] = resource.New(def)
	}
	for _, id := range reg.Missions() {
		if _, ok := s.Missions.Data[id]; ok {
			continue
		}
		status := MissionNotStarted
		if s.Missions.CompletedMissionIDs.Has(id) {
			status = MissionCompleted
		}
		s.Missions.Data[id] = &MissionProgress{Status: status}
	}
}

func (s *EngineState) lineIndex(id production.LineID) int {
	for i, l := range s.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// MarshalState encodes the state as a versioned JSON blob. Map keys are
// sorted, so equal states encode to equal bytes.
func MarshalState(s *EngineState) ([]byte, error) {
	s.Version = StateVersion
	return json.Marshal(s)
}

// UnmarshalState decodes a blob produced by MarshalState and completes it
// against the registry, so content added since the save shows up.
func UnmarshalState(raw []byte, reg *content.Registry) (*EngineState, error) {
	var s EngineState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	if s.Version != StateVersion {
		return nil, fmt.Errorf("unsupported state version %d", s.Version)
	}
	if s.Resources == nil {
		s.Resources = make(map[content.ResourceID]*resource.Stock)
	}
	if s.Configs == nil {
		s.Configs = make(map[production.LineID]*production.Config)
	}
	if s.Status == nil {
		s.Status = make(map[production.LineID]*production.Status)
	}
	if s.Missions.Data == nil {
		s.Missions.Data = make(map[content.MissionID]*MissionProgress)
	}
	for _, l := range s.Lines {
		if s.Configs[l.ID] == nil {
			s.Configs[l.ID] = production.NewConfig(l.ID)
		}
		if s.Status[l.ID] == nil {
			s.Status[l.ID] = production.NewStatus(l.ID)
		}
	}
	s.fillFromRegistry(reg)
	return &s, nil
}
