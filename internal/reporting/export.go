package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
)

// Export kinds, also used as file names.
const (
	KindProduction = "production"
	KindProfit     = "profit"
	KindGlobal     = "global"
)

// Kinds lists every export kind.
var Kinds = []string{KindProduction, KindProfit, KindGlobal}

type productionRow struct {
	Ping      int64  `csv:"ping"`
	Timestamp string `csv:"timestamp"`
	LineID    string `csv:"line_id"`
	Resource  string `csv:"resource_id"`
	Amount    int    `csv:"amount"`
	Sold      bool   `csv:"sold"`
}

type profitRow struct {
	Ping      int64  `csv:"ping"`
	Timestamp string `csv:"timestamp"`
	LineID    string `csv:"line_id"`
	Profit    string `csv:"profit"`
}

type globalRow struct {
	Ping         int64  `csv:"ping"`
	Timestamp    string `csv:"timestamp"`
	PerPing      string `csv:"per_ping"`
	TotalBalance string `csv:"total_balance"`
	Credits      string `csv:"credits"`
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ExportCSV writes one history of st as CSV with a header row. Decimals
// are written as exact strings.
func ExportCSV(w io.Writer, st engine.Statistics, kind string) error {
	switch kind {
	case KindProduction:
		rows := make([]productionRow, 0, len(st.ProductionHistory))
		for _, e := range st.ProductionHistory {
			rows = append(rows, productionRow{e.Ping, ts(e.Timestamp), string(e.LineID), string(e.Resource), e.Amount, e.Sold})
		}
		return gocsv.Marshal(rows, w)
	case KindProfit:
		rows := make([]profitRow, 0, len(st.ProfitHistory))
		for _, e := range st.ProfitHistory {
			rows = append(rows, profitRow{e.Ping, ts(e.Timestamp), string(e.LineID), e.Profit.String()})
		}
		return gocsv.Marshal(rows, w)
	case KindGlobal:
		rows := make([]globalRow, 0, len(st.GlobalStatsHistory))
		for _, e := range st.GlobalStatsHistory {
			rows = append(rows, globalRow{e.Ping, ts(e.Timestamp), e.PerPing.String(), e.TotalBalance.String(), e.Credits.String()})
		}
		return gocsv.Marshal(rows, w)
	default:
		return fmt.Errorf("unknown export kind %q", kind)
	}
}

// ExportDir writes every kind to dir/<kind>.csv.
func ExportDir(dir string, st engine.Statistics) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	var written []string
	for _, kind := range Kinds {
		path := filepath.Join(dir, kind+".csv")
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("creating %s: %w", path, err)
		}
		err = ExportCSV(f, st, kind)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
