package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	eqlink "github.com/cbegin/eqlink-go"
)

var renderCmd = &cobra.Command{
	Use:   "render <in.wav> <out.wav>",
	Short: "Equalize a WAV file offline",
	Long: `Run a 16-bit WAV file through the equalizer chain.

The equalizer and auxiliary groups are given in their hex wire form, as
printed by 'eqlinkd encode'. A crossover entry in the auxiliary group
writes a 4-channel file ordered low-L, low-R, high-L, high-R.

Example:
  eqlinkd render --peq 0190f111 --aux 07380011 in.wav out.wav`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		peqHex, _ := cmd.Flags().GetString("peq")
		auxHex, _ := cmd.Flags().GetString("aux")
		volume, _ := cmd.Flags().GetFloat64("volume")
		peq, err := decodeHex(peqHex)
		if err != nil {
			return fmt.Errorf("--peq: %w", err)
		}
		aux, err := decodeHex(auxHex)
		if err != nil {
			return fmt.Errorf("--aux: %w", err)
		}

		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		info, err := eqlink.Render(in, out, peq, aux, eqlink.RenderOptions{
			Processor: eqlink.ProcessorConfig(cfg.Audio),
			Volume:    volume,
			Logger:    log,
		})
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames, %d channels, %d Hz, %s\n",
			args[1], info.Frames, info.Channels, info.SampleRate, info.Topology)
		return nil
	},
}

func init() {
	renderCmd.Flags().String("peq", "", "equalizer filters in hex wire form")
	renderCmd.Flags().String("aux", "", "auxiliary filters in hex wire form")
	renderCmd.Flags().Float64("volume", 0, "output volume (0 keeps unity)")
	rootCmd.AddCommand(renderCmd)
}
