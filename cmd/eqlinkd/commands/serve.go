package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	eqlink "github.com/cbegin/eqlink-go"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon",
	Long: `Run the controller and the websocket control link until interrupted.

If transport.path is configured, the file (typically a FIFO written by the
transport layer) is attached as the audio stream at startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Link.Listen = listen
		}
		d, err := eqlink.NewDaemon(cfg, eqlink.WithLogger(log))
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("eqlinkd starting", "version", Version, "listen", cfg.Link.Listen)
		return d.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "override link.listen")
	rootCmd.AddCommand(serveCmd)
}
