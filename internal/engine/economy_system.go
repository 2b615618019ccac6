package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/rules"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// Rates are the derived per-ping figures over every active line.
type Rates struct {
	Income  decimal.Decimal `json:"incomePerTick"`
	Expense decimal.Decimal `json:"expensePerTick"`
	Balance decimal.Decimal `json:"balancePerTick"`
}

// EconomySystem owns the credit balance and the statistics log.
// Credits are signed: nothing here enforces a floor.
type EconomySystem struct {
	state    *EngineState
	registry *content.Registry
	eventLog *events.EventLog
	logger   *logger.Logger
}

func NewEconomySystem(reg *content.Registry, el *events.EventLog, log *logger.Logger) *EconomySystem {
	return &EconomySystem{
		registry: reg,
		eventLog: el,
		logger:   log,
	}
}

func (es *EconomySystem) bind(s *EngineState) {
	es.state = s
}

// Balance returns the current credits.
func (es *EconomySystem) Balance() decimal.Decimal {
	return es.state.Credits
}

// AddCredits adds a signed delta.
func (es *EconomySystem) AddCredits(delta decimal.Decimal) {
	es.state.Credits = es.state.Credits.Add(delta)
}

// SpendCredits subtracts amount. It may take the balance below zero.
func (es *EconomySystem) SpendCredits(amount decimal.Decimal) {
	es.state.Credits = es.state.Credits.Sub(amount)
}

// CanAfford reports credits >= amount.
func (es *EconomySystem) CanAfford(amount decimal.Decimal) bool {
	return es.state.Credits.GreaterThanOrEqual(amount)
}

// Price returns the market price of one unit.
func (es *EconomySystem) Price(id content.ResourceID) (int64, error) {
	def, err := es.registry.Resource(id)
	if err != nil {
		return 0, err
	}
	return def.Price, nil
}

// Rates derives income, expense and balance per ping for all active lines
// with a recipe. Sale income includes the production bonus, matching what
// the executor books on completion.
func (es *EconomySystem) Rates() Rates {
	income, expense := decimal.Zero, decimal.Zero
	bonus := es.state.PassiveBonus.ProductionEfficiency

	for _, line := range es.state.Lines {
		st := es.state.Status[line.ID]
		cfg := es.state.Configs[line.ID]
		if st == nil || cfg == nil || !st.IsActive || !cfg.HasRecipe() {
			continue
		}
		rec, err := es.registry.Recipe(cfg.RecipeID)
		if err != nil {
			continue
		}
		if cfg.OutputTarget == production.TargetSell {
			price, _ := es.Price(rec.Output.Resource)
			sale := rules.Value(price, rec.Output.Amount).Mul(decimal.NewFromFloat(1 + bonus))
			income = income.Add(rules.PerPing(sale, rec.ProductionTime))
		}
		for i, in := range rec.Inputs {
			if i < len(cfg.Inputs) && cfg.Inputs[i].Source == production.SourcePurchase {
				price, _ := es.Price(in.Resource)
				expense = expense.Add(rules.PerPing(rules.Value(price, in.Amount), rec.ProductionTime))
			}
		}
	}

	return Rates{
		Income:  rules.RoundRate(income),
		Expense: rules.RoundRate(expense),
		Balance: rules.RoundRate(income.Sub(expense)),
	}
}

func (es *EconomySystem) historyLimit() int {
	return es.registry.Economy().HistoryLimit
}

// RecordCycle appends one production and one profit entry.
func (es *EconomySystem) RecordCycle(prod ProductionEntry, profit ProfitEntry) {
	stats := &es.state.Statistics
	limit := es.historyLimit()
	stats.ProductionHistory = keepLast(append(stats.ProductionHistory, prod), limit)
	stats.ProfitHistory = keepLast(append(stats.ProfitHistory, profit), limit)
	stats.TotalProfit = stats.TotalProfit.Add(profit.Profit)
}

// RecordGlobalStats appends the aggregate for one ping.
func (es *EconomySystem) RecordGlobalStats(ping int64, now time.Time) GlobalStatsEntry {
	entry := GlobalStatsEntry{
		Timestamp:    now,
		Ping:         ping,
		PerPing:      es.Rates().Balance,
		TotalBalance: es.state.Statistics.TotalProfit,
		Credits:      es.state.Credits,
	}
	stats := &es.state.Statistics
	stats.GlobalStatsHistory = keepLast(append(stats.GlobalStatsHistory, entry), es.historyLimit())
	return entry
}

// CreditsChangedPayload is attached to CREDITS_CHANGED events.
type CreditsChangedPayload struct {
	Delta   decimal.Decimal `json:"delta"`
	Balance decimal.Decimal `json:"balance"`
	Reason  string          `json:"reason"`
}

// Adjust applies a signed delta outside production and records why.
func (es *EconomySystem) Adjust(delta decimal.Decimal, reason, actor string, ping int64) {
	es.AddCredits(delta)
	es.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeCreditsChanged,
		ActorID: actor,
		Payload: CreditsChangedPayload{Delta: delta, Balance: es.state.Credits, Reason: reason},
		Ping:    ping,
	})
}
