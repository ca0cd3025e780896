package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/eqlink-go/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "eqlinkd",
	Short: "Equalizer link daemon",
	Long: `eqlinkd receives equalizer filters from remote control clients and applies
them to the audio stream handed over by the transport layer.

Filters travel as 4-byte records {type, frequency index, gain in 0.5 dB
steps, Q index}. A crossover entry in the auxiliary group switches the
pipeline to a low/high split.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the configuration and installs the configured logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	level, _ := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return cfg, log, nil
}
