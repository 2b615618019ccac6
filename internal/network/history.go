package network

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/infra/storage"
)

// RecapSource rebuilds production recaps from persisted events.
type RecapSource interface {
	GenerateRecap(ctx context.Context, slot string, sincePing int64) (*storage.Recap, error)
}

// History kinds.
const (
	HistoryProduction = "production"
	HistoryProfit     = "profit"
	HistoryGlobal     = "global"
)

// HistoryResponse is the API response for statistics replay.
type HistoryResponse struct {
	Kind        string      `json:"kind"`
	Total       int         `json:"total"`
	FilteredBy  []string    `json:"filtered_by,omitempty"`
	GeneratedAt string      `json:"generated_at"`
	Entries     interface{} `json:"entries"`
}

// historyFilter holds the query filters shared by every kind.
type historyFilter struct {
	line     string
	from, to int64
	limit    int
	applied  []string
}

func parseHistoryFilter(r *http.Request) (historyFilter, error) {
	q := r.URL.Query()
	f := historyFilter{line: q.Get("line"), to: -1}
	if f.line != "" {
		f.applied = append(f.applied, "line="+f.line)
	}
	for _, p := range []struct {
		key string
		dst *int64
	}{{"from", &f.from}, {"to", &f.to}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return f, errBadQuery(p.key)
		}
		*p.dst = n
		f.applied = append(f.applied, p.key+"="+raw)
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, errBadQuery("limit")
		}
		f.limit = n
		f.applied = append(f.applied, "limit="+raw)
	}
	return f, nil
}

type errBadQuery string

func (e errBadQuery) Error() string { return "invalid " + string(e) }

func (f historyFilter) inRange(ping int64) bool {
	return ping >= f.from && (f.to < 0 || ping <= f.to)
}

// filterEntries keeps matching entries; limit keeps the newest.
func filterEntries[T any](in []T, f historyFilter, line func(T) string, ping func(T) int64) []T {
	out := make([]T, 0, len(in))
	for _, e := range in {
		if f.line != "" && line(e) != f.line {
			continue
		}
		if !f.inRange(ping(e)) {
			continue
		}
		out = append(out, e)
	}
	if f.limit > 0 && len(out) > f.limit {
		out = out[len(out)-f.limit:]
	}
	return out
}

// HandleHistory returns one statistics history with optional filters.
// GET /api/history?kind=profit&line=L1&from=10&to=50&limit=20
func (a *API) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := parseHistoryFilter(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats := a.engine.Statistics()
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = HistoryProfit
	}

	var entries interface{}
	var total int
	switch kind {
	case HistoryProduction:
		out := filterEntries(stats.ProductionHistory, f,
			func(e engine.ProductionEntry) string { return string(e.LineID) },
			func(e engine.ProductionEntry) int64 { return e.Ping })
		entries, total = out, len(out)
	case HistoryProfit:
		out := filterEntries(stats.ProfitHistory, f,
			func(e engine.ProfitEntry) string { return string(e.LineID) },
			func(e engine.ProfitEntry) int64 { return e.Ping })
		entries, total = out, len(out)
	case HistoryGlobal:
		if f.line != "" {
			jsonError(w, "line filter does not apply to global history", http.StatusBadRequest)
			return
		}
		out := filterEntries(stats.GlobalStatsHistory, f,
			func(engine.GlobalStatsEntry) string { return "" },
			func(e engine.GlobalStatsEntry) int64 { return e.Ping })
		entries, total = out, len(out)
	default:
		jsonError(w, "Unknown history kind", http.StatusBadRequest)
		return
	}

	jsonSuccess(w, HistoryResponse{
		Kind:        kind,
		Total:       total,
		FilteredBy:  f.applied,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:     entries,
	})
}

// ReplayEvent is an event with a readable summary.
type ReplayEvent struct {
	events.GameEvent
	Summary string `json:"summary"`
	Impact  string `json:"impact"`
}

// HandleEvents lists retained events from the in-memory log.
// GET /api/events?type=LINE_FAULT&actor=L1&since=100
func (a *API) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	var since int64
	if raw := q.Get("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			jsonError(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}
	eventType, actor := strings.ToUpper(q.Get("type")), q.Get("actor")

	out := []ReplayEvent{}
	for _, e := range a.engine.EventLog().Replay() {
		if e.Ping < since {
			continue
		}
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if actor != "" && e.ActorID != actor {
			continue
		}
		out = append(out, ReplayEvent{GameEvent: e, Summary: summarizeEvent(e), Impact: determineImpact(e)})
	}
	jsonSuccess(w, map[string]interface{}{
		"total":        len(out),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"events":       out,
	})
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.GameEvent) string {
	switch e.Type {
	case events.EventTypeProductionCompleted:
		return "Line " + e.ActorID + " finished a cycle of " + e.TargetID + "."
	case events.EventTypeLineFault:
		return "Line " + e.ActorID + " stopped."
	case events.EventTypeLineToggled:
		return "Line " + e.ActorID + " was toggled."
	case events.EventTypeStorageUpgraded:
		return "Storage for " + e.TargetID + " was upgraded."
	case events.EventTypeTechResearched:
		return "Researched " + e.TargetID + "."
	case events.EventTypeModuleUnlocked:
		return "Unlocked module " + e.TargetID + "."
	case events.EventTypeMissionActivated:
		return "Mission " + e.TargetID + " started."
	case events.EventTypeMissionCompleted:
		return "Mission " + e.TargetID + " completed."
	default:
		return string(e.Type)
	}
}

// determineImpact classifies the event impact.
func determineImpact(e events.GameEvent) string {
	switch e.Type {
	case events.EventTypeLineFault:
		return "NEGATIVE"
	case events.EventTypeProductionCompleted, events.EventTypeTechResearched,
		events.EventTypeModuleUnlocked, events.EventTypeMissionCompleted:
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}

// HandleRecap summarizes persisted production since a ping.
// GET /api/recap?since=120&slot=main
func (a *API) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.recaps == nil {
		jsonError(w, "Recap requires a database", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	slot := q.Get("slot")
	if slot == "" {
		slot = a.slot
	}
	var since int64
	if raw := q.Get("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			jsonError(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}

	recap, err := a.recaps.GenerateRecap(r.Context(), slot, since)
	if err != nil {
		a.logger.Error("recap failed", "slot", slot, "err", err)
		jsonError(w, "Recap failed", http.StatusInternalServerError)
		return
	}
	jsonSuccess(w, recap)
}
