package engine

import (
	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/resource"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/rules"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// StorageUpgradedPayload is attached to STORAGE_UPGRADED events.
type StorageUpgradedPayload struct {
	Resource     content.ResourceID `json:"resource_id"`
	Cost         int64              `json:"cost"`
	StorageLevel int                `json:"storage_level"`
	Capacity     int                `json:"capacity"`
}

// ResourceSystem is the per-resource ledger: amount, capacity and
// storage level.
type ResourceSystem struct {
	state    *EngineState
	registry *content.Registry
	economy  *EconomySystem
	eventLog *events.EventLog
	logger   *logger.Logger
}

func NewResourceSystem(reg *content.Registry, economy *EconomySystem, el *events.EventLog, log *logger.Logger) *ResourceSystem {
	return &ResourceSystem{
		registry: reg,
		economy:  economy,
		eventLog: el,
		logger:   log,
	}
}

func (rs *ResourceSystem) bind(s *EngineState) {
	rs.state = s
}

// Stock returns the live stock of a resource.
func (rs *ResourceSystem) Stock(id content.ResourceID) (*resource.Stock, error) {
	if st, ok := rs.state.Resources[id]; ok {
		return st, nil
	}
	def, err := rs.registry.Resource(id)
	if err != nil {
		return nil, err
	}
	// Known to the registry but missing from a hand-built state.
	st := resource.New(def)
	rs.state.Resources[id] = st
	return st, nil
}

// Amount returns the units on hand.
func (rs *ResourceSystem) Amount(id content.ResourceID) (int, error) {
	st, err := rs.Stock(id)
	if err != nil {
		return 0, err
	}
	return st.Amount, nil
}

// Capacity returns the storage capacity.
func (rs *ResourceSystem) Capacity(id content.ResourceID) (int, error) {
	st, err := rs.Stock(id)
	if err != nil {
		return 0, err
	}
	return st.Capacity, nil
}

// Credit stores delta units. It refuses, without mutating, anything that
// would exceed capacity.
func (rs *ResourceSystem) Credit(id content.ResourceID, delta int) error {
	st, err := rs.Stock(id)
	if err != nil {
		return err
	}
	if !st.Add(delta) {
		return &ResourceError{Resource: id, Op: "store", Amount: delta, Have: st.Amount, Capacity: st.Capacity}
	}
	return nil
}

// Debit removes delta units. It refuses, without mutating, anything that
// would go below zero.
func (rs *ResourceSystem) Debit(id content.ResourceID, delta int) error {
	st, err := rs.Stock(id)
	if err != nil {
		return err
	}
	if !st.Remove(delta) {
		return &ResourceError{Resource: id, Op: "take", Amount: delta, Have: st.Amount, Capacity: st.Capacity}
	}
	return nil
}

// UpgradeCost is the price of the next storage level.
func (rs *ResourceSystem) UpgradeCost(id content.ResourceID) (int64, error) {
	st, err := rs.Stock(id)
	if err != nil {
		return 0, err
	}
	econ := rs.registry.Economy()
	return rules.StorageUpgradeCost(econ.StorageUpgradeBaseCost, econ.StorageUpgradeMultiplier, st.StorageLevel), nil
}

// Upgrade buys the next storage level. An unaffordable upgrade is a
// no-op and reports false.
func (rs *ResourceSystem) Upgrade(id content.ResourceID, ping int64) (bool, error) {
	cost, err := rs.UpgradeCost(id)
	if err != nil {
		return false, err
	}
	if !rs.economy.CanAfford(rules.Value(cost, 1)) {
		rs.logger.Debug("storage upgrade refused", "resource", id, "cost", cost, "credits", rs.economy.Balance().String())
		return false, nil
	}

	st, _ := rs.Stock(id)
	rs.economy.SpendCredits(rules.Value(cost, 1))
	st.Expand(rs.registry.Economy().StorageCapacityStep)

	rs.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeStorageUpgraded,
		ActorID:  events.ActorPlayer,
		TargetID: string(id),
		Payload: StorageUpgradedPayload{
			Resource:     id,
			Cost:         cost,
			StorageLevel: st.StorageLevel,
			Capacity:     st.Capacity,
		},
		Ping: ping,
	})
	rs.logger.Event(string(events.EventTypeStorageUpgraded), events.ActorPlayer, string(id))
	return true, nil
}

// Grant stores up to delta units and returns how many fit.
func (rs *ResourceSystem) Grant(id content.ResourceID, delta int) (int, error) {
	st, err := rs.Stock(id)
	if err != nil {
		return 0, err
	}
	n := delta
	if n > st.Headroom() {
		n = st.Headroom()
	}
	if n <= 0 {
		return 0, nil
	}
	st.Add(n)
	return n, nil
}
