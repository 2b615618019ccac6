package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// Options tune the ticker an Engine drives.
type Options struct {
	BasePing   time.Duration
	SampleRate time.Duration
	Speed      float64 // Player multiplier, 0 pauses
}

// DefaultOptions runs one ping per second at normal speed.
func DefaultOptions() Options {
	return Options{BasePing: BasePingDuration, SampleRate: SampleRate, Speed: 1}
}

// Engine is the central orchestrator. It owns the EngineState and is its
// only mutator: pings and player actions are serialised by one mutex.
type Engine struct {
	mu       sync.Mutex
	registry *content.Registry
	eventLog *events.EventLog
	logger   *logger.Logger
	ticker   *Ticker

	// Sub-systems
	economy    *EconomySystem
	resources  *ResourceSystem
	research   *ResearchSystem
	production *ProductionSystem
	missions   *MissionSystem

	// State
	state *EngineState
	speed float64
}

// NewEngine wires the systems around a fresh state for reg.
func NewEngine(reg *content.Registry, eventLog *events.EventLog, log *logger.Logger, opts Options) *Engine {
	e := &Engine{
		registry: reg,
		eventLog: eventLog,
		logger:   log,
		ticker:   NewTicker(opts.BasePing, opts.SampleRate, log),
		speed:    opts.Speed,
	}
	e.economy = NewEconomySystem(reg, eventLog, log)
	e.resources = NewResourceSystem(reg, e.economy, eventLog, log)
	e.research = NewResearchSystem(reg, eventLog, log)
	e.production = NewProductionSystem(reg, e.resources, e.economy, eventLog, log)
	e.missions = NewMissionSystem(reg, e.resources, e.economy, e.research, eventLog, log)

	e.bind(NewState(reg))
	e.ticker.Subscribe(StageExecutor, e.onPing)
	return e
}

func (e *Engine) bind(s *EngineState) {
	e.state = s
	e.economy.bind(s)
	e.resources.bind(s)
	e.research.bind(s)
	e.production.bind(s)
	e.missions.bind(s)
	e.missions.Refresh()
	e.ticker.SetPingNumber(s.Ping)
	e.applySpeed()
}

// applySpeed feeds the player speed and the passive speed bonus into the
// ticker.
func (e *Engine) applySpeed() {
	e.ticker.SetSpeed(e.speed * (1 + e.state.PassiveBonus.ProductionSpeed))
}

// Start runs the ticker until ctx is done.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("starting economy engine", "lines", len(e.state.Lines), "ping", e.state.Ping)
	go e.ticker.Start(ctx)
}

// Step fires n pings synchronously.
func (e *Engine) Step(n int) {
	e.ticker.Step(n, time.Now())
}

// Ticker exposes the scheduler for subscriptions.
func (e *Engine) Ticker() *Ticker {
	return e.ticker
}

// Subscribe is shorthand for Ticker().Subscribe.
func (e *Engine) Subscribe(stage Stage, fn PingHandler) func() {
	return e.ticker.Subscribe(stage, fn)
}

// Registry returns the content the engine runs on.
func (e *Engine) Registry() *content.Registry {
	return e.registry
}

// EventLog exposes the event log for streaming and persistence.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// onPing is the executor-stage handler: production, then mission
// evaluation, then the global statistics entry for this ping.
func (e *Engine) onPing(p Ping) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Ping = p.Number
	e.production.OnPing(p)
	e.missions.Refresh()
	e.economy.RecordGlobalStats(p.Number, p.Timestamp)
}

// Export encodes the current state.
func (e *Engine) Export() ([]byte, error) {
	raw, _, err := e.Checkpoint()
	return raw, err
}

// Checkpoint encodes the current state and returns the ping it was taken at.
func (e *Engine) Checkpoint() ([]byte, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	raw, err := MarshalState(e.state)
	return raw, e.state.Ping, err
}

// Restore replaces the state with a decoded blob.
func (e *Engine) Restore(raw []byte) error {
	s, err := UnmarshalState(raw, e.registry)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bind(s)
	e.logger.Info("state restored", "ping", s.Ping, "lines", len(s.Lines), "credits", s.Credits.String())
	return nil
}

// Reset discards all progress and starts over from the content defaults.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bind(NewState(e.registry))
}

func (e *Engine) ping() int64 {
	return e.state.Ping
}

// --- Economy actions ---

// AddCredits adds a non-negative amount.
func (e *Engine) AddCredits(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.economy.Adjust(amount, "deposit", events.ActorPlayer, e.ping())
	return nil
}

// SpendCredits removes amount when the balance covers it. An unaffordable
// spend changes nothing and reports false.
func (e *Engine) SpendCredits(amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.economy.CanAfford(amount) {
		return false, nil
	}
	e.economy.Adjust(amount.Neg(), "spend", events.ActorPlayer, e.ping())
	return true, nil
}

// UpgradeStorage buys the next storage level of a resource.
func (e *Engine) UpgradeStorage(id content.ResourceID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resources.Upgrade(id, e.ping())
}

// --- Production actions ---

func (e *Engine) AddProductionLine(id production.LineID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.AddLine(id, name, e.ping())
}

func (e *Engine) RemoveProductionLine(id production.LineID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.RemoveLine(id, e.ping())
}

func (e *Engine) RenameProductionLine(id production.LineID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.RenameLine(id, name)
}

func (e *Engine) SetProductionRecipe(id production.LineID, recipe content.RecipeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.SetRecipe(id, recipe, e.ping())
}

func (e *Engine) SetInputSource(id production.LineID, index int, source production.InputSource, resource content.ResourceID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.SetInputSource(id, index, source, resource)
}

func (e *Engine) SetOutputTarget(id production.LineID, target production.OutputTarget) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.SetOutputTarget(id, target)
}

// ToggleProduction starts or stops a line and returns whether it is now
// active. A refused start leaves the reason on the line status.
func (e *Engine) ToggleProduction(id production.LineID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.Toggle(id, e.ping())
}

// CanStart returns "" when the line could start now, else the reason.
func (e *Engine) CanStart(id production.LineID) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.production.CanStart(id)
}

// --- Research actions ---

func (e *Engine) ResearchTechnology(id content.TechnologyID, cost int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok, err := e.research.ResearchTechnology(id, cost, e.ping())
	if ok {
		e.applySpeed()
	}
	return ok, err
}

func (e *Engine) UnlockModule(id content.ModuleID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.research.UnlockModule(id, e.ping())
}

// --- Mission actions ---

func (e *Engine) ActivateMission(id content.MissionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.missions.Activate(id, e.ping()); err != nil {
		return err
	}
	e.missions.Refresh()
	return nil
}

// CompleteMission is the player's confirmation of a finished mission.
func (e *Engine) CompleteMission(id content.MissionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.missions.Complete(id, e.ping()); err != nil {
		return err
	}
	e.missions.Refresh()
	e.applySpeed()
	return nil
}

// EvaluateMission returns the current result of each condition.
func (e *Engine) EvaluateMission(id content.MissionID) ([]bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.missions.EvaluateMission(id)
}

// --- Speed ---

// SetSpeed sets the player multiplier. 0 pauses.
func (e *Engine) SetSpeed(speed float64) error {
	if speed < 0 {
		return fmt.Errorf("%w: speed %v", ErrInvalidAmount, speed)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
	e.applySpeed()
	return nil
}
