// Package reporting turns the engine's statistics log into summaries and
// CSV exports for the CLI.
package reporting

import (
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
)

// LineSummary totals one production line.
type LineSummary struct {
	LineID     string          `json:"lineId"`
	Cycles     int             `json:"cycles"`
	Units      int             `json:"units"`
	Profit     decimal.Decimal `json:"profit"`
	MeanProfit float64         `json:"meanProfit"`
}

// Summary describes a statistics log.
type Summary struct {
	FirstPing int64 `json:"firstPing"`
	LastPing  int64 `json:"lastPing"`
	Cycles    int   `json:"cycles"`

	// Per-cycle profit distribution
	ProfitMean   float64 `json:"profitMean"`
	ProfitStdDev float64 `json:"profitStdDev"`
	ProfitMedian float64 `json:"profitMedian"`
	ProfitP90    float64 `json:"profitP90"`

	// Per-ping balance and credits over the global history
	PerPingMean float64         `json:"perPingMean"`
	CreditsMin  float64         `json:"creditsMin"`
	CreditsMax  float64         `json:"creditsMax"`
	TotalProfit decimal.Decimal `json:"totalProfit"`

	Lines []LineSummary `json:"lines"`
}

// Summarize computes a Summary. An empty log gives a zero summary.
func Summarize(st engine.Statistics) Summary {
	s := Summary{TotalProfit: st.TotalProfit, Cycles: len(st.ProfitHistory)}

	profits := make([]float64, len(st.ProfitHistory))
	lines := make(map[string]*LineSummary)
	line := func(id string) *LineSummary {
		l, ok := lines[id]
		if !ok {
			l = &LineSummary{LineID: id, Profit: decimal.Zero}
			lines[id] = l
		}
		return l
	}
	for i, p := range st.ProfitHistory {
		profits[i] = p.Profit.InexactFloat64()
		l := line(string(p.LineID))
		l.Cycles++
		l.Profit = l.Profit.Add(p.Profit)
	}
	for _, p := range st.ProductionHistory {
		line(string(p.LineID)).Units += p.Amount
	}

	if len(profits) > 0 {
		s.ProfitMean, s.ProfitStdDev = stat.MeanStdDev(profits, nil)
		if len(profits) == 1 {
			s.ProfitStdDev = 0
		}
		sorted := append([]float64(nil), profits...)
		sort.Float64s(sorted)
		s.ProfitMedian = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		s.ProfitP90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	}

	if n := len(st.GlobalStatsHistory); n > 0 {
		s.FirstPing = st.GlobalStatsHistory[0].Ping
		s.LastPing = st.GlobalStatsHistory[n-1].Ping
		perPing := make([]float64, n)
		credits := make([]float64, n)
		for i, g := range st.GlobalStatsHistory {
			perPing[i] = g.PerPing.InexactFloat64()
			credits[i] = g.Credits.InexactFloat64()
		}
		s.PerPingMean = stat.Mean(perPing, nil)
		sort.Float64s(credits)
		s.CreditsMin, s.CreditsMax = credits[0], credits[n-1]
	}

	for _, l := range lines {
		if l.Cycles > 0 {
			l.MeanProfit = l.Profit.InexactFloat64() / float64(l.Cycles)
		}
		s.Lines = append(s.Lines, *l)
	}
	sort.Slice(s.Lines, func(i, j int) bool { return s.Lines[i].LineID < s.Lines[j].LineID })
	return s
}
