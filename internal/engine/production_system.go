package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/rules"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// ProductionCompletedPayload is attached to PRODUCTION_COMPLETED events.
type ProductionCompletedPayload struct {
	Recipe   content.RecipeID        `json:"recipe_id"`
	Resource content.ResourceID      `json:"resource_id"`
	Amount   int                     `json:"amount"`
	Target   production.OutputTarget `json:"target"`
	Profit   decimal.Decimal         `json:"profit"`
}

// LineFaultPayload is attached to LINE_FAULT events.
type LineFaultPayload struct {
	Recipe content.RecipeID `json:"recipe_id"`
	Reason string           `json:"reason"`
}

// ledgerView is what the feasibility checks read: either the start-of-ping
// snapshot or the live ledger.
type ledgerView struct {
	amount  func(content.ResourceID) (stock, capacity int)
	credits decimal.Decimal
}

// ProductionSystem owns production lines: their configuration, the
// activation state machine and the per-ping executor.
type ProductionSystem struct {
	state     *EngineState
	registry  *content.Registry
	resources *ResourceSystem
	economy   *EconomySystem
	eventLog  *events.EventLog
	logger    *logger.Logger
}

func NewProductionSystem(reg *content.Registry, resources *ResourceSystem, economy *EconomySystem, el *events.EventLog, log *logger.Logger) *ProductionSystem {
	return &ProductionSystem{
		registry:  reg,
		resources: resources,
		economy:   economy,
		eventLog:  el,
		logger:    log,
	}
}

func (ps *ProductionSystem) bind(s *EngineState) {
	ps.state = s
}

func (ps *ProductionSystem) line(id production.LineID) (*production.Config, *production.Status, error) {
	if ps.state.lineIndex(id) < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	return ps.state.Configs[id], ps.state.Status[id], nil
}

// AddLine creates an inactive, unconfigured line.
func (ps *ProductionSystem) AddLine(id production.LineID, name string, ping int64) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrLineNotFound)
	}
	if ps.state.lineIndex(id) >= 0 {
		return fmt.Errorf("%w: %s", ErrLineExists, id)
	}
	ps.state.Lines = append(ps.state.Lines, production.Line{ID: id, Name: name})
	ps.state.Configs[id] = production.NewConfig(id)
	ps.state.Status[id] = production.NewStatus(id)

	ps.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeLineAdded,
		ActorID: string(id),
		Payload: map[string]string{"name": name},
		Ping:    ping,
	})
	return nil
}

// RemoveLine deletes a line. Its history entries stay.
func (ps *ProductionSystem) RemoveLine(id production.LineID, ping int64) error {
	i := ps.state.lineIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	ps.state.Lines = append(ps.state.Lines[:i], ps.state.Lines[i+1:]...)
	delete(ps.state.Configs, id)
	delete(ps.state.Status, id)

	ps.eventLog.Append(events.GameEvent{Type: events.EventTypeLineRemoved, ActorID: string(id), Ping: ping})
	return nil
}

// RenameLine changes the display name.
func (ps *ProductionSystem) RenameLine(id production.LineID, name string) error {
	i := ps.state.lineIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	ps.state.Lines[i].Name = name
	return nil
}

// SetRecipe selects an unlocked recipe. Inputs are reset and the line is
// stopped with its progress and error cleared.
func (ps *ProductionSystem) SetRecipe(id production.LineID, recipeID content.RecipeID, ping int64) error {
	cfg, st, err := ps.line(id)
	if err != nil {
		return err
	}
	rec, err := ps.registry.Recipe(recipeID)
	if err != nil {
		return err
	}
	if !ps.state.UnlockedRecipes.Has(recipeID) {
		return fmt.Errorf("%w: %s", ErrRecipeLocked, recipeID)
	}
	cfg.SelectRecipe(rec)
	st.Reset()

	ps.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeLineConfigured,
		ActorID:  string(id),
		TargetID: string(recipeID),
		Ping:     ping,
	})
	return nil
}

// SetInputSource configures one input slot. resourceID, when given, must
// be the resource that slot consumes.
func (ps *ProductionSystem) SetInputSource(id production.LineID, index int, source production.InputSource, resourceID content.ResourceID) error {
	cfg, _, err := ps.line(id)
	if err != nil {
		return err
	}
	if !cfg.HasRecipe() {
		return fmt.Errorf("%w: line %s", ErrNoRecipe, id)
	}
	if index < 0 || index >= len(cfg.Inputs) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidInputIndex, index, len(cfg.Inputs))
	}
	if !source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if resourceID != "" {
		if _, err := ps.registry.Resource(resourceID); err != nil {
			return err
		}
		if resourceID != cfg.Inputs[index].Resource {
			return fmt.Errorf("%w: slot %d consumes %s, not %s", ErrInvalidInputIndex, index, cfg.Inputs[index].Resource, resourceID)
		}
	}
	cfg.Inputs[index].Source = source
	return nil
}

// SetOutputTarget chooses between storing and selling the output.
func (ps *ProductionSystem) SetOutputTarget(id production.LineID, target production.OutputTarget) error {
	cfg, _, err := ps.line(id)
	if err != nil {
		return err
	}
	if !target.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	cfg.OutputTarget = target
	return nil
}

// CanStart runs the capacity and availability checks against the live
// ledger. It returns "" when the line could start now, otherwise the
// reason it cannot.
func (ps *ProductionSystem) CanStart(id production.LineID) (string, error) {
	cfg, _, err := ps.line(id)
	if err != nil {
		return "", err
	}
	if !cfg.HasRecipe() {
		return production.ErrNoRecipe, nil
	}
	rec, err := ps.registry.Recipe(cfg.RecipeID)
	if err != nil {
		return "", err
	}
	return ps.check(cfg, rec, ps.liveView()), nil
}

// Toggle stops an active line or starts an inactive one. Starting an
// infeasible line is refused: the line stays inactive and the reason is
// recorded on its status. It returns the resulting active flag.
func (ps *ProductionSystem) Toggle(id production.LineID, ping int64) (bool, error) {
	_, st, err := ps.line(id)
	if err != nil {
		return false, err
	}
	if st.IsActive {
		st.IsActive = false
		ps.logToggle(id, false, "", ping)
		return false, nil
	}

	reason, err := ps.CanStart(id)
	if err != nil {
		return false, err
	}
	if reason != "" {
		st.Fault(reason)
		ps.logToggle(id, false, reason, ping)
		return false, nil
	}
	st.IsActive = true
	st.Error = ""
	ps.logToggle(id, true, "", ping)
	return true, nil
}

func (ps *ProductionSystem) logToggle(id production.LineID, active bool, reason string, ping int64) {
	ps.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeLineToggled,
		ActorID: string(id),
		Payload: map[string]interface{}{"active": active, "reason": reason},
		Ping:    ping,
	})
}

func (ps *ProductionSystem) liveView() ledgerView {
	return ledgerView{
		amount: func(id content.ResourceID) (int, int) {
			st, err := ps.resources.Stock(id)
			if err != nil {
				return 0, 0
			}
			return st.Amount, st.Capacity
		},
		credits: ps.economy.Balance(),
	}
}

// snapshotView freezes every stock and the balance as of now.
func (ps *ProductionSystem) snapshotView() ledgerView {
	frozen := make(map[content.ResourceID][2]int, len(ps.state.Resources))
	for id, st := range ps.state.Resources {
		frozen[id] = [2]int{st.Amount, st.Capacity}
	}
	return ledgerView{
		amount: func(id content.ResourceID) (int, int) {
			v := frozen[id]
			return v[0], v[1]
		},
		credits: ps.economy.Balance(),
	}
}

// purchaseCost sums the market price of every PURCHASE input.
func (ps *ProductionSystem) purchaseCost(cfg *production.Config, rec *content.RecipeDef) decimal.Decimal {
	total := decimal.Zero
	for i, in := range rec.Inputs {
		if i < len(cfg.Inputs) && cfg.Inputs[i].Source == production.SourcePurchase {
			price, _ := ps.economy.Price(in.Resource)
			total = total.Add(rules.Value(price, in.Amount))
		}
	}
	return total
}

// check evaluates the capacity and availability rules against view and
// returns the violated rule's message, or "".
func (ps *ProductionSystem) check(cfg *production.Config, rec *content.RecipeDef, view ledgerView) string {
	if cfg.OutputTarget != production.TargetSell {
		stock, capacity := view.amount(rec.Output.Resource)
		if stock+rec.Output.Amount > capacity {
			return production.ErrInsufficientCapacity
		}
	}

	for i, in := range rec.Inputs {
		var source production.InputSource
		if i < len(cfg.Inputs) {
			source = cfg.Inputs[i].Source
		}
		switch source {
		case production.SourceFromStock:
			if stock, _ := view.amount(in.Resource); stock < in.Amount {
				return production.ErrInsufficientResources
			}
		case production.SourcePurchase:
		default:
			// An unconfigured slot cannot be fed.
			return production.ErrInsufficientResources
		}
	}

	if view.credits.LessThan(ps.purchaseCost(cfg, rec)) {
		return production.ErrInsufficientCredits
	}
	return ""
}

// OnPing advances every active line with a recipe, in creation order.
// Checks read the state as it was when the ping started; commits write to
// the live ledger one line at a time and are re-checked against it first,
// so a line whose inputs were taken by an earlier line this ping faults
// instead of driving a stock negative.
func (ps *ProductionSystem) OnPing(p Ping) {
	snapshot := ps.snapshotView()

	for _, line := range ps.state.Lines {
		cfg, st := ps.state.Configs[line.ID], ps.state.Status[line.ID]
		if !st.IsActive || !cfg.HasRecipe() {
			continue
		}
		rec, err := ps.registry.Recipe(cfg.RecipeID)
		if err != nil {
			ps.fault(line.ID, cfg, st, production.ErrNoRecipe, p)
			continue
		}

		if reason := ps.check(cfg, rec, snapshot); reason != "" {
			ps.fault(line.ID, cfg, st, reason, p)
			continue
		}

		st.Advance(p.Elapsed, rec.ProductionTime, p.Timestamp)
		if !st.Complete() {
			continue
		}

		if reason := ps.check(cfg, rec, ps.liveView()); reason != "" {
			ps.fault(line.ID, cfg, st, reason, p)
			continue
		}
		ps.commit(line.ID, cfg, rec, p)
		st.Restart()
	}
}

func (ps *ProductionSystem) fault(id production.LineID, cfg *production.Config, st *production.Status, reason string, p Ping) {
	st.Fault(reason)
	st.LastTickTimestamp = p.Timestamp
	ps.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeLineFault,
		ActorID:  string(id),
		TargetID: string(cfg.RecipeID),
		Payload:  LineFaultPayload{Recipe: cfg.RecipeID, Reason: reason},
		Ping:     p.Number,
	})
	ps.logger.Warn("production line stopped", "line", id, "recipe", cfg.RecipeID, "reason", reason)
}

// commit books one finished cycle. It is the only place production
// changes stocks or credits. Order: take FROM_STOCK inputs, pay for
// PURCHASE inputs, store or sell the output, record history.
func (ps *ProductionSystem) commit(id production.LineID, cfg *production.Config, rec *content.RecipeDef, p Ping) {
	for i, in := range rec.Inputs {
		if cfg.Inputs[i].Source == production.SourceFromStock {
			if err := ps.resources.Debit(in.Resource, in.Amount); err != nil {
				ps.logger.Error("commit debit failed after check", "line", id, "err", err)
			}
		}
	}

	cost := ps.purchaseCost(cfg, rec)
	ps.economy.SpendCredits(cost)

	revenue := decimal.Zero
	sold := cfg.OutputTarget == production.TargetSell
	if sold {
		price, _ := ps.economy.Price(rec.Output.Resource)
		revenue = rules.ApplyBonus(rules.Value(price, rec.Output.Amount), ps.state.PassiveBonus.ProductionEfficiency)
		ps.economy.AddCredits(revenue)
	} else if err := ps.resources.Credit(rec.Output.Resource, rec.Output.Amount); err != nil {
		ps.logger.Error("commit credit failed after check", "line", id, "err", err)
	}

	profit := revenue.Sub(cost)
	ps.economy.RecordCycle(
		ProductionEntry{LineID: id, Timestamp: p.Timestamp, Ping: p.Number, Resource: rec.Output.Resource, Amount: rec.Output.Amount, Sold: sold},
		ProfitEntry{LineID: id, Timestamp: p.Timestamp, Ping: p.Number, Profit: profit},
	)

	ps.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeProductionCompleted,
		ActorID:  string(id),
		TargetID: string(rec.Output.Resource),
		Payload: ProductionCompletedPayload{
			Recipe:   rec.ID,
			Resource: rec.Output.Resource,
			Amount:   rec.Output.Amount,
			Target:   cfg.OutputTarget,
			Profit:   profit,
		},
		Ping: p.Number,
	})
	ps.logger.Debug("cycle completed", "line", id, "recipe", rec.ID, "profit", profit.String())
}
