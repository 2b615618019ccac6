package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// MissionCompletedPayload is attached to MISSION_COMPLETED events.
type MissionCompletedPayload struct {
	Mission content.MissionID          `json:"mission_id"`
	Rewards content.MissionRewards     `json:"rewards"`
	Granted map[content.ResourceID]int `json:"granted,omitempty"` // Units that fit in storage
	Next    content.MissionID          `json:"next,omitempty"`
}

// MissionSystem evaluates mission conditions and moves missions through
// NOT_STARTED -> ACTIVE -> COMPLETED. Completion is always an explicit
// player action; nothing completes a mission automatically.
type MissionSystem struct {
	state     *EngineState
	registry  *content.Registry
	resources *ResourceSystem
	economy   *EconomySystem
	research  *ResearchSystem
	eventLog  *events.EventLog
	logger    *logger.Logger
}

func NewMissionSystem(reg *content.Registry, resources *ResourceSystem, economy *EconomySystem, research *ResearchSystem, el *events.EventLog, log *logger.Logger) *MissionSystem {
	return &MissionSystem{
		registry:  reg,
		resources: resources,
		economy:   economy,
		research:  research,
		eventLog:  el,
		logger:    log,
	}
}

func (ms *MissionSystem) bind(s *EngineState) {
	ms.state = s
}

// Evaluate tests one condition against the current state. It has no side
// effects.
func (ms *MissionSystem) Evaluate(c content.ConditionDef) bool {
	switch c.Type {
	case content.ConditionProduceResource:
		st, ok := ms.state.Resources[c.Resource]
		return ok && int64(st.Amount) >= c.Amount
	case content.ConditionProductionRate:
		return ms.producesAtRate(c.Resource, c.Rate)
	case content.ConditionResearchTech:
		return ms.state.ResearchedTechnologies.Has(c.Technology)
	case content.ConditionUnlockModule:
		return ms.state.UnlockedModules.Has(c.Module)
	case content.ConditionCredits, content.ConditionTotalBalance:
		return ms.state.Credits.GreaterThanOrEqual(decimal.NewFromInt(c.Amount))
	default:
		return false
	}
}

// producesAtRate compares the per-cycle output amount of each active line,
// not a per-ping rate.
func (ms *MissionSystem) producesAtRate(id content.ResourceID, rate int) bool {
	for _, line := range ms.state.Lines {
		st, cfg := ms.state.Status[line.ID], ms.state.Configs[line.ID]
		if st == nil || cfg == nil || !st.IsActive || !cfg.HasRecipe() {
			continue
		}
		rec, err := ms.registry.Recipe(cfg.RecipeID)
		if err != nil {
			continue
		}
		if rec.Output.Resource == id && rec.Output.Amount >= rate {
			return true
		}
	}
	return false
}

// EvaluateMission returns the result of each condition of a mission.
func (ms *MissionSystem) EvaluateMission(id content.MissionID) ([]bool, error) {
	def, err := ms.registry.Mission(id)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(def.Conditions))
	for i, c := range def.Conditions {
		out[i] = ms.Evaluate(c)
	}
	return out, nil
}

// AllConditionsMet reports whether every condition of a mission holds.
func (ms *MissionSystem) AllConditionsMet(id content.MissionID) (bool, error) {
	results, err := ms.EvaluateMission(id)
	if err != nil {
		return false, err
	}
	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Active returns the active mission, or nil when every mission is done.
func (ms *MissionSystem) Active() *content.MissionDef {
	id := ms.state.Missions.ActiveMissionID
	if id == "" {
		return nil
	}
	def, err := ms.registry.Mission(id)
	if err != nil {
		return nil
	}
	return def
}

// Refresh caches the condition results of the active mission so that
// snapshots do not need to evaluate.
func (ms *MissionSystem) Refresh() {
	id := ms.state.Missions.ActiveMissionID
	if id == "" {
		return
	}
	results, err := ms.EvaluateMission(id)
	if err != nil {
		return
	}
	ms.progress(id).Conditions = results
}

func (ms *MissionSystem) progress(id content.MissionID) *MissionProgress {
	p, ok := ms.state.Missions.Data[id]
	if !ok {
		p = &MissionProgress{Status: MissionNotStarted}
		ms.state.Missions.Data[id] = p
	}
	return p
}

// Activate makes id the active mission. A previously active mission goes
// back to NOT_STARTED so that exactly one mission stays active.
func (ms *MissionSystem) Activate(id content.MissionID, ping int64) error {
	if _, err := ms.registry.Mission(id); err != nil {
		return err
	}
	if ms.state.Missions.CompletedMissionIDs.Has(id) {
		return fmt.Errorf("%w: %s", ErrMissionCompleted, id)
	}
	if ms.state.Missions.ActiveMissionID == id {
		return nil
	}
	if prev := ms.state.Missions.ActiveMissionID; prev != "" {
		p := ms.progress(prev)
		p.Status = MissionNotStarted
		p.Conditions = nil
	}
	ms.activate(id, ping)
	return nil
}

func (ms *MissionSystem) activate(id content.MissionID, ping int64) {
	ms.state.Missions.ActiveMissionID = id
	p := ms.progress(id)
	p.Status = MissionActive
	p.ActivatedPing = ping
	p.Conditions = nil

	ms.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeMissionActivated,
		ActorID:  events.ActorSystem,
		TargetID: string(id),
		Ping:     ping,
	})
}

// Complete grants the rewards of the active mission and activates the next
// one by ascending chapter. The mission must be active with every
// condition met.
func (ms *MissionSystem) Complete(id content.MissionID, ping int64) error {
	def, err := ms.registry.Mission(id)
	if err != nil {
		return err
	}
	if ms.state.Missions.CompletedMissionIDs.Has(id) {
		return fmt.Errorf("%w: %s", ErrMissionCompleted, id)
	}
	if ms.state.Missions.ActiveMissionID != id {
		return fmt.Errorf("%w: %s", ErrMissionNotActive, id)
	}
	met, err := ms.AllConditionsMet(id)
	if err != nil {
		return err
	}
	if !met {
		return fmt.Errorf("%w: %s", ErrConditionsNotMet, id)
	}

	granted := ms.applyRewards(def, ping)

	p := ms.progress(id)
	p.Status = MissionCompleted
	p.CompletedPing = ping
	p.Conditions = nil
	ms.state.Missions.CompletedMissionIDs.Add(id)
	ms.state.Missions.ActiveMissionID = ""

	next := ms.next()
	ms.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeMissionCompleted,
		ActorID:  events.ActorPlayer,
		TargetID: string(id),
		Payload:  MissionCompletedPayload{Mission: id, Rewards: def.Rewards, Granted: granted, Next: next},
		Ping:     ping,
	})
	ms.logger.Event(string(events.EventTypeMissionCompleted), events.ActorPlayer, string(id))

	if next != "" {
		ms.activate(next, ping)
	}
	return nil
}

// applyRewards books every reward field. Resource grants are clamped to
// free storage; the returned map holds what was actually stored.
func (ms *MissionSystem) applyRewards(def *content.MissionDef, ping int64) map[content.ResourceID]int {
	r := def.Rewards
	if r.Credits != 0 {
		ms.economy.Adjust(decimal.NewFromInt(r.Credits), "mission "+string(def.ID), events.ActorSystem, ping)
	}
	if r.ResearchPoints > 0 {
		ms.research.AddPoints(r.ResearchPoints)
	}

	var granted map[content.ResourceID]int
	for res, n := range r.Resources {
		stored, err := ms.resources.Grant(res, n)
		if err != nil {
			ms.logger.Warn("mission reward skipped", "mission", def.ID, "resource", res, "err", err)
			continue
		}
		if granted == nil {
			granted = make(map[content.ResourceID]int)
		}
		granted[res] = stored
	}

	if r.UnlockModule != "" {
		if mod, err := ms.registry.Module(r.UnlockModule); err == nil {
			ms.research.grantModule(mod, 0, events.ActorSystem, ping)
		}
	}
	if r.PassiveBonus != nil {
		ms.state.PassiveBonus = ms.state.PassiveBonus.Add(*r.PassiveBonus)
	}
	return granted
}

// next picks the lowest-chapter mission not completed yet.
func (ms *MissionSystem) next() content.MissionID {
	for _, id := range ms.registry.Missions() {
		if !ms.state.Missions.CompletedMissionIDs.Has(id) {
			return id
		}
	}
	return ""
}
