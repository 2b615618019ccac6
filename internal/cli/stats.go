package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/reporting"
	"github.com/SebastianChristoph/industrygame-sub000/internal/server"
)

// NewStatsCommand creates the stats command group
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Inspect save slots and their statistics",
	}

	cmd.AddCommand(newStatsExportCommand())
	cmd.AddCommand(newStatsRecapCommand())
	cmd.AddCommand(newStatsSlotsCommand())

	return cmd
}

func newStatsExportCommand() *cobra.Command {
	var kind, outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a slot's statistics history as CSV",
		Long: `Write one history (production, profit or global) of the save slot to
stdout, or every history into --out as <kind>.csv.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := server.OpenStore(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			raw, _, err := store.Saves.Get(cmd.Context(), cfg.Database.Slot)
			if err != nil {
				return fmt.Errorf("failed to load slot %q: %w", cfg.Database.Slot, err)
			}
			reg, err := content.Load(cfg.Content.Path)
			if err != nil {
				return err
			}
			e := engine.NewEngine(reg, events.NewEventLog(nil, 0), newLogger(cfg), engine.DefaultOptions())
			if err := e.Restore(raw); err != nil {
				return err
			}

			if outDir != "" {
				files, err := reporting.ExportDir(outDir, e.Statistics())
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}
			return reporting.ExportCSV(cmd.OutOrStdout(), e.Statistics(), kind)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", reporting.KindProfit, "History to export: production, profit or global")
	cmd.Flags().StringVar(&outDir, "out", "", "Write every history into this directory instead of stdout")
	return cmd
}

func newStatsRecapCommand() *cobra.Command {
	var since int64

	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Summarise the persisted events of a slot",
		Long:  `Fold the slot's event log from --since onwards into per-line totals.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since < 0 {
				return fmt.Errorf("--since must not be negative")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := server.OpenStore(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			recap, err := store.Recaps.GenerateRecap(cmd.Context(), cfg.Database.Slot, since)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(recap)
		},
	}

	cmd.Flags().Int64Var(&since, "since", 0, "First ping to include")
	return cmd
}

func newStatsSlotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List the stored save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := server.OpenStore(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			slots, err := store.Saves.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No save slots")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLOT\tPING\tSAVED")
			for _, s := range slots {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Slot, humanize.Comma(s.Ping), humanize.Time(s.UpdatedAt))
			}
			return tw.Flush()
		},
	}
}
