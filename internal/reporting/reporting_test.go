package reporting

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleStats() engine.Statistics {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return engine.Statistics{
		ProductionHistory: []engine.ProductionEntry{
			{LineID: "pump", Timestamp: at, Ping: 2, Resource: "water", Amount: 5, Sold: true},
			{LineID: "farm", Timestamp: at, Ping: 3, Resource: "corn", Amount: 1},
			{LineID: "pump", Timestamp: at, Ping: 4, Resource: "water", Amount: 5, Sold: true},
			{LineID: "pump", Timestamp: at, Ping: 6, Resource: "water", Amount: 5, Sold: true},
		},
		ProfitHistory: []engine.ProfitEntry{
			{LineID: "pump", Timestamp: at, Ping: 2, Profit: d("5")},
			{LineID: "farm", Timestamp: at, Ping: 3, Profit: d("-2")},
			{LineID: "pump", Timestamp: at, Ping: 4, Profit: d("5")},
			{LineID: "pump", Timestamp: at, Ping: 6, Profit: d("5.5")},
		},
		GlobalStatsHistory: []engine.GlobalStatsEntry{
			{Timestamp: at, Ping: 1, PerPing: d("1"), TotalBalance: d("0"), Credits: d("1000")},
			{Timestamp: at, Ping: 2, PerPing: d("2"), TotalBalance: d("5"), Credits: d("990")},
			{Timestamp: at, Ping: 3, PerPing: d("3"), TotalBalance: d("3"), Credits: d("1010")},
		},
		TotalProfit: d("13.5"),
	}
}

func TestSummarize(t *testing.T) {
	// Act
	s := Summarize(sampleStats())

	// Assert
	assert.Equal(t, 4, s.Cycles)
	assert.InDelta(t, 3.375, s.ProfitMean, 1e-9)
	assert.InDelta(t, 3.5911, s.ProfitStdDev, 1e-3)
	assert.Equal(t, 5.0, s.ProfitMedian)
	assert.Equal(t, 5.5, s.ProfitP90)
	assert.Equal(t, int64(1), s.FirstPing)
	assert.Equal(t, int64(3), s.LastPing)
	assert.InDelta(t, 2.0, s.PerPingMean, 1e-9)
	assert.Equal(t, 990.0, s.CreditsMin)
	assert.Equal(t, 1010.0, s.CreditsMax)
	assert.True(t, s.TotalProfit.Equal(d("13.5")))

	require.Len(t, s.Lines, 2)
	farm, pump := s.Lines[0], s.Lines[1]
	assert.Equal(t, "farm", farm.LineID)
	assert.Equal(t, 1, farm.Units)
	assert.Equal(t, 3, pump.Cycles)
	assert.Equal(t, 15, pump.Units)
	assert.True(t, pump.Profit.Equal(d("15.5")))
	assert.InDelta(t, 15.5/3, pump.MeanProfit, 1e-9)
}

func TestSummarize_EmptyLog(t *testing.T) {
	s := Summarize(engine.Statistics{TotalProfit: decimal.Zero})

	assert.Zero(t, s.Cycles)
	assert.Zero(t, s.ProfitMean)
	assert.Empty(t, s.Lines)
}

func TestSummarize_SingleCycleHasNoSpread(t *testing.T) {
	st := engine.Statistics{ProfitHistory: []engine.ProfitEntry{{LineID: "a", Profit: d("4")}}}

	s := Summarize(st)

	assert.Equal(t, 4.0, s.ProfitMean)
	assert.Zero(t, s.ProfitStdDev)
}

func TestExportCSV_ProfitKeepsExactDecimals(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, ExportCSV(&buf, sampleStats(), KindProfit))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "ping,timestamp,line_id,profit", lines[0])
	assert.Equal(t, "6,2026-01-02T03:04:05Z,pump,5.5", lines[4])
}

func TestExportCSV_ProductionAndGlobal(t *testing.T) {
	var prod, global bytes.Buffer

	require.NoError(t, ExportCSV(&prod, sampleStats(), KindProduction))
	require.NoError(t, ExportCSV(&global, sampleStats(), KindGlobal))

	assert.Contains(t, prod.String(), "ping,timestamp,line_id,resource_id,amount,sold")
	assert.Contains(t, prod.String(), "3,2026-01-02T03:04:05Z,farm,corn,1,false")
	assert.Contains(t, global.String(), "2,2026-01-02T03:04:05Z,2,5,990")
}

func TestExportCSV_UnknownKind(t *testing.T) {
	assert.Error(t, ExportCSV(&bytes.Buffer{}, sampleStats(), "pie"))
}

func TestExportDir_WritesEveryKind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	written, err := ExportDir(dir, sampleStats())

	require.NoError(t, err)
	require.Len(t, written, 3)
	for _, kind := range Kinds {
		raw, err := os.ReadFile(filepath.Join(dir, kind+".csv"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(raw), "ping,timestamp"))
	}
}
