package network

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/domain/production"
	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

//go:embed schemas/action.schema.json
var actionSchema []byte

// Action types accepted over the websocket and POST /api/actions.
const (
	ActionAddCredits         = "ADD_CREDITS"
	ActionSpendCredits       = "SPEND_CREDITS"
	ActionUpgradeStorage     = "UPGRADE_STORAGE"
	ActionAddLine            = "ADD_LINE"
	ActionRemoveLine         = "REMOVE_LINE"
	ActionRenameLine         = "RENAME_LINE"
	ActionSetRecipe          = "SET_RECIPE"
	ActionSetInputSource     = "SET_INPUT_SOURCE"
	ActionSetOutputTarget    = "SET_OUTPUT_TARGET"
	ActionToggleProduction   = "TOGGLE_PRODUCTION"
	ActionCanStart           = "CAN_START"
	ActionResearchTechnology = "RESEARCH_TECHNOLOGY"
	ActionUnlockModule       = "UNLOCK_MODULE"
	ActionActivateMission    = "ACTIVATE_MISSION"
	ActionCompleteMission    = "COMPLETE_MISSION"
	ActionEvaluateMission    = "EVALUATE_MISSION"
	ActionSetSpeed           = "SET_SPEED"
)

// ErrInvalidAction is returned for messages that fail the action schema.
var ErrInvalidAction = errors.New("invalid action")

// PlayerAction represents an incoming command from a client.
type PlayerAction struct {
	Type       string  `json:"type"`
	RequestID  string  `json:"requestId,omitempty"`
	Amount     string  `json:"amount,omitempty"` // Decimal credits
	Resource   string  `json:"resource,omitempty"`
	LineID     string  `json:"lineId,omitempty"`
	Name       string  `json:"name,omitempty"`
	Recipe     string  `json:"recipe,omitempty"`
	Index      int     `json:"index,omitempty"`
	Source     string  `json:"source,omitempty"`
	Target     string  `json:"target,omitempty"`
	Technology string  `json:"technology,omitempty"`
	Cost       int     `json:"cost,omitempty"`
	Module     string  `json:"module,omitempty"`
	Mission    string  `json:"mission,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
}

// ActionResult answers one PlayerAction. Refusals the engine reports as
// false (an unaffordable upgrade, a start blocked by a violation) are OK
// results with a false value; Error is set only when the action failed.
type ActionResult struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	OK        bool        `json:"ok"`
	Value     interface{} `json:"value,omitempty"`
	Error     string      `json:"error,omitempty"`

	err error
}

// Err returns the failure behind Error, for status mapping.
func (r ActionResult) Err() error {
	return r.err
}

// Dispatcher validates actions and applies them to the engine.
type Dispatcher struct {
	engine *engine.Engine
	schema *jsonschema.Schema
	logger *logger.Logger
}

// NewDispatcher compiles the embedded action schema.
func NewDispatcher(e *engine.Engine, log *logger.Logger) (*Dispatcher, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("action.schema.json", bytes.NewReader(actionSchema)); err != nil {
		return nil, fmt.Errorf("failed to load action schema: %w", err)
	}
	schema, err := c.Compile("action.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile action schema: %w", err)
	}
	return &Dispatcher{engine: e, schema: schema, logger: log}, nil
}

// Decode validates raw against the action schema and parses it.
func (d *Dispatcher) Decode(raw []byte) (PlayerAction, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return PlayerAction{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if err := d.schema.Validate(doc); err != nil {
		return PlayerAction{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	var a PlayerAction
	if err := json.Unmarshal(raw, &a); err != nil {
		return PlayerAction{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return a, nil
}

// Handle decodes and dispatches one raw message.
func (d *Dispatcher) Handle(raw []byte) ActionResult {
	a, err := d.Decode(raw)
	if err != nil {
		return ActionResult{Type: "INVALID", Error: err.Error(), err: err}
	}
	return d.Dispatch(a)
}

// Dispatch applies a decoded action.
func (d *Dispatcher) Dispatch(a PlayerAction) ActionResult {
	value, err := d.apply(a)
	res := ActionResult{Type: a.Type, RequestID: a.RequestID, OK: err == nil, Value: value}
	if err != nil {
		res.Error = err.Error()
		res.err = err
		d.logger.Debug("action refused", "type", a.Type, "err", err)
		return res
	}
	d.logger.Event("PLAYER_ACTION_"+a.Type, "PLAYER", actionTarget(a))
	return res
}

func (d *Dispatcher) apply(a PlayerAction) (interface{}, error) {
	e := d.engine
	line := production.LineID(a.LineID)

	switch a.Type {
	case ActionAddCredits, ActionSpendCredits:
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q", ErrInvalidAction, a.Amount)
		}
		if a.Type == ActionAddCredits {
			return nil, e.AddCredits(amount)
		}
		return e.SpendCredits(amount)
	case ActionUpgradeStorage:
		return e.UpgradeStorage(content.ResourceID(a.Resource))
	case ActionAddLine:
		return nil, e.AddProductionLine(line, a.Name)
	case ActionRemoveLine:
		return nil, e.RemoveProductionLine(line)
	case ActionRenameLine:
		return nil, e.RenameProductionLine(line, a.Name)
	case ActionSetRecipe:
		return nil, e.SetProductionRecipe(line, content.RecipeID(a.Recipe))
	case ActionSetInputSource:
		return nil, e.SetInputSource(line, a.Index, production.InputSource(a.Source), content.ResourceID(a.Resource))
	case ActionSetOutputTarget:
		return nil, e.SetOutputTarget(line, production.OutputTarget(a.Target))
	case ActionToggleProduction:
		active, err := e.ToggleProduction(line)
		if err != nil {
			return nil, err
		}
		view, err := e.Line(line)
		if err != nil {
			return active, nil
		}
		return map[string]interface{}{"active": active, "error": view.Status.Error}, nil
	case ActionCanStart:
		reason, err := e.CanStart(line)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"canStart": reason == "", "reason": reason}, nil
	case ActionResearchTechnology:
		return e.ResearchTechnology(content.TechnologyID(a.Technology), a.Cost)
	case ActionUnlockModule:
		return e.UnlockModule(content.ModuleID(a.Module))
	case ActionActivateMission:
		return nil, e.ActivateMission(content.MissionID(a.Mission))
	case ActionCompleteMission:
		return nil, e.CompleteMission(content.MissionID(a.Mission))
	case ActionEvaluateMission:
		return e.EvaluateMission(content.MissionID(a.Mission))
	case ActionSetSpeed:
		return nil, e.SetSpeed(a.Speed)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, a.Type)
	}
}

func actionTarget(a PlayerAction) string {
	for _, s := range []string{a.LineID, a.Resource, a.Technology, a.Module, a.Mission} {
		if s != "" {
			return s
		}
	}
	return a.Amount
}
