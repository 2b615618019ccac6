package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/network"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
	"github.com/SebastianChristoph/industrygame-sub000/internal/reporting"
	"github.com/SebastianChristoph/industrygame-sub000/internal/server"
)

type simulateOptions struct {
	pings   int
	setup   string
	resume  bool
	save    bool
	jsonOut bool
	csvDir  string
}

// NewSimulateCommand creates the simulate command
func NewSimulateCommand() *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the engine offline for a number of pings",
		Long: `Build an engine from the configured content, optionally resume the save
slot, apply a JSON array of setup actions (the same messages the websocket
accepts), then fire pings as fast as possible and print a summary.

Example setup file:
  [
    {"type": "ADD_LINE", "lineId": "pump", "name": "Pump"},
    {"type": "SET_RECIPE", "lineId": "pump", "recipe": "water_pump"},
    {"type": "SET_OUTPUT_TARGET", "lineId": "pump", "target": "SELL"},
    {"type": "TOGGLE_PRODUCTION", "lineId": "pump"}
  ]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.pings < 0 {
				return fmt.Errorf("--pings must not be negative")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			reg, err := content.Load(cfg.Content.Path)
			if err != nil {
				return err
			}

			var store *server.Store
			if opts.resume || opts.save {
				store, err = server.OpenStore(cfg.Database.Path)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			e := engine.NewEngine(reg, events.NewEventLog(nil, cfg.Engine.EventRetention), log, engine.DefaultOptions())
			ctx := cmd.Context()
			if opts.resume {
				raw, _, err := store.Saves.Get(ctx, cfg.Database.Slot)
				if err != nil {
					return fmt.Errorf("failed to load slot %q: %w", cfg.Database.Slot, err)
				}
				if err := e.Restore(raw); err != nil {
					return err
				}
			}

			if opts.setup != "" {
				if err := applySetup(e, opts.setup, log); err != nil {
					return err
				}
			}

			e.Step(opts.pings)

			if opts.save {
				if err := saveState(ctx, store, cfg.Database.Slot, e); err != nil {
					return err
				}
				log.Info("state saved", "slot", cfg.Database.Slot, "ping", e.Snapshot().Ping)
			}

			st := e.Statistics()
			if opts.csvDir != "" {
				files, err := reporting.ExportDir(opts.csvDir, st)
				if err != nil {
					return err
				}
				for _, f := range files {
					log.Info("wrote export", "file", f)
				}
			}

			summary := reporting.Summarize(st)
			if opts.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), e.Snapshot(), summary)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.pings, "pings", "n", 100, "Number of pings to run")
	cmd.Flags().StringVar(&opts.setup, "setup", "", "JSON file with actions applied before the first ping")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "Start from the save slot instead of a fresh state")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Write the final state to the save slot")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the summary as JSON")
	cmd.Flags().StringVar(&opts.csvDir, "csv", "", "Also export the statistics as CSV files into this directory")

	return cmd
}

// applySetup dispatches every action in path and stops at the first one
// that fails.
func applySetup(e *engine.Engine, path string, log *logger.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read setup file: %w", err)
	}
	var actions []json.RawMessage
	if err := json.Unmarshal(raw, &actions); err != nil {
		return fmt.Errorf("setup file must be a JSON array of actions: %w", err)
	}

	d, err := network.NewDispatcher(e, log)
	if err != nil {
		return err
	}
	for i, a := range actions {
		res := d.Handle(a)
		if !res.OK {
			return fmt.Errorf("setup action %d (%s): %s", i, res.Type, res.Error)
		}
	}
	return nil
}

func saveState(ctx context.Context, store *server.Store, slot string, e *engine.Engine) error {
	raw, ping, err := e.Checkpoint()
	if err != nil {
		return err
	}
	return store.Saves.Put(ctx, slot, ping, raw)
}

func printSummary(w io.Writer, snap engine.Snapshot, s reporting.Summary) {
	fmt.Fprintf(w, "Pings:              %s\n", humanize.Comma(snap.Ping))
	fmt.Fprintf(w, "Credits:            %s\n", humanize.Commaf(snap.Credits.InexactFloat64()))
	fmt.Fprintf(w, "Research points:    %s\n", humanize.Comma(int64(snap.ResearchPoints)))
	fmt.Fprintf(w, "Production cycles:  %s\n", humanize.Comma(int64(s.Cycles)))
	fmt.Fprintf(w, "Total profit:       %s\n", s.TotalProfit.StringFixed(2))
	fmt.Fprintf(w, "Profit per cycle:   mean %s, sd %s, median %s, p90 %s\n",
		humanize.FormatFloat("#,###.##", s.ProfitMean),
		humanize.FormatFloat("#,###.##", s.ProfitStdDev),
		humanize.FormatFloat("#,###.##", s.ProfitMedian),
		humanize.FormatFloat("#,###.##", s.ProfitP90))

	if len(s.Lines) > 0 {
		fmt.Fprintln(w, "\nLines:")
		for _, l := range s.Lines {
			fmt.Fprintf(w, "  %-20s %8s cycles %10s units  profit %s\n",
				l.LineID, humanize.Comma(int64(l.Cycles)), humanize.Comma(int64(l.Units)), l.Profit.StringFixed(2))
		}
	}

	fmt.Fprintln(w, "\nStock:")
	for _, r := range snap.Resources {
		if r.Amount == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-20s %s / %s\n", r.ID, humanize.Comma(int64(r.Amount)), humanize.Comma(int64(r.Capacity)))
	}
}
