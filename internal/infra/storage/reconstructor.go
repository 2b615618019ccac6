package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Reconstructor rebuilds a production recap from the persisted event log.
// It is used for the "while you were away" summary and for auditing a
// save slot without loading its state.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new recap builder.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// LineRecap totals one production line.
type LineRecap struct {
	LineID    string          `json:"line_id"`
	Cycles    int             `json:"cycles"`
	Stored    map[string]int  `json:"stored,omitempty"`
	Sold      map[string]int  `json:"sold,omitempty"`
	Profit    decimal.Decimal `json:"profit"`
	Faults    int             `json:"faults"`
	LastFault string          `json:"last_fault,omitempty"`
}

// Recap is everything that happened in a slot from a ping onwards.
type Recap struct {
	Slot        string          `json:"slot"`
	SincePing   int64           `json:"since_ping"`
	LastPing    int64           `json:"last_ping"`
	Lines       []LineRecap     `json:"lines"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Researched  []string        `json:"researched,omitempty"`
	Modules     []string        `json:"modules,omitempty"`
	Missions    []string        `json:"missions_completed,omitempty"`
	Upgrades    int             `json:"storage_upgrades"`
}

// GenerateRecap folds the events of slot at or after sincePing.
func (r *Reconstructor) GenerateRecap(ctx context.Context, slot string, sincePing int64) (*Recap, error) {
	evs, err := r.eventRepo.GetSincePing(ctx, slot, sincePing)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for slot: %w", err)
	}

	recap := &Recap{Slot: slot, SincePing: sincePing, TotalProfit: decimal.Zero}
	lines := make(map[string]*LineRecap)
	line := func(id string) *LineRecap {
		l, ok := lines[id]
		if !ok {
			l = &LineRecap{LineID: id, Profit: decimal.Zero}
			lines[id] = l
		}
		return l
	}

	for _, e := range evs {
		if e.Ping > recap.LastPing {
			recap.LastPing = e.Ping
		}
		switch e.EventType {
		case "PRODUCTION_COMPLETED":
			l := line(e.ActorID)
			l.Cycles++
			resource := stringField(e.Payload, "resource_id")
			amount := intField(e.Payload, "amount")
			if stringField(e.Payload, "target") == "SELL" {
				l.Sold = addCount(l.Sold, resource, amount)
			} else {
				l.Stored = addCount(l.Stored, resource, amount)
			}
			profit := decimalField(e.Payload, "profit")
			l.Profit = l.Profit.Add(profit)
			recap.TotalProfit = recap.TotalProfit.Add(profit)
		case "LINE_FAULT":
			l := line(e.ActorID)
			l.Faults++
			l.LastFault = stringField(e.Payload, "reason")
		case "TECH_RESEARCHED":
			recap.Researched = append(recap.Researched, e.TargetID)
		case "MODULE_UNLOCKED":
			recap.Modules = append(recap.Modules, e.TargetID)
		case "MISSION_COMPLETED":
			recap.Missions = append(recap.Missions, e.TargetID)
		case "STORAGE_UPGRADED":
			recap.Upgrades++
		}
	}

	for _, l := range lines {
		recap.Lines = append(recap.Lines, *l)
	}
	sort.Slice(recap.Lines, func(i, j int) bool { return recap.Lines[i].LineID < recap.Lines[j].LineID })
	return recap, nil
}

func addCount(m map[string]int, key string, n int) map[string]int {
	if m == nil {
		m = make(map[string]int)
	}
	m[key] += n
	return m
}

func stringField(p map[string]interface{}, key string) string {
	s, _ := p[key].(string)
	return s
}

func intField(p map[string]interface{}, key string) int {
	f, _ := p[key].(float64)
	return int(f)
}

// decimalField reads a decimal stored as a JSON string or number.
func decimalField(p map[string]interface{}, key string) decimal.Decimal {
	switch v := p[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}
