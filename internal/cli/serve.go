package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SebastianChristoph/industrygame-sub000/internal/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the economy engine and its network API",
		Long: `Restore the configured save slot, start the tick scheduler and serve the
websocket, REST and metrics endpoints until interrupted. The state is
saved on shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.New(cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Restore(ctx); err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
