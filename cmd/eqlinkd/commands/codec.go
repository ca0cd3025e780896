package commands

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbegin/eqlink-go/internal/codec"
	"github.com/cbegin/eqlink-go/internal/eq"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <type:freq:gain:q>...",
	Short: "Print the wire form of filters",
	Long: `Encode filters into their hex wire form. Frequency and Q snap to the
nearest table entry, gain to 0.5 dB.

Types: peak, lowpass, highpass, lowshelf, highshelf, allpass, crossover,
subwoofer, loudness. Missing fields default to 1000 Hz, 0 dB and Q 0.71.

Example:
  eqlinkd encode peak:1000:-7.5:0.71 crossover:80`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters := make([]eq.Filter, 0, len(args))
		for _, arg := range args {
			f, err := parseFilter(arg)
			if err != nil {
				return err
			}
			filters = append(filters, f)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(codec.EncodeFilters(filters)))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Print the filters of a wire buffer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := decodeHex(args[0])
		if err != nil {
			return err
		}
		for i, f := range filters {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i, f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd, decodeCmd)
}

// parseFilter parses "type:freq:gain:q" with trailing fields optional.
func parseFilter(s string) (eq.Filter, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 4 {
		return eq.Filter{}, fmt.Errorf("filter %q has more than 4 fields", s)
	}
	t, ok := eq.TypeByName(strings.ToLower(parts[0]))
	if !ok || t == eq.TypeInvalid {
		return eq.Filter{}, fmt.Errorf("filter %q: unknown type %q", s, parts[0])
	}
	f := eq.Filter{
		Type: t,
		F:    eq.FrequencyTable[eq.DefaultFrequencyIndex],
		Q:    eq.QTable[eq.DefaultQIndex],
	}
	fields := []*float64{&f.F, &f.G, &f.Q}
	for i, p := range parts[1:] {
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return eq.Filter{}, fmt.Errorf("filter %q: %w", s, err)
		}
		*fields[i] = v
	}
	return f, nil
}

func decodeHex(s string) ([]eq.Filter, error) {
	if s == "" {
		return nil, nil
	}
	data, err := hex.DecodeString(strings.TrimPrefix(strings.ReplaceAll(s, " ", ""), "0x"))
	if err != nil {
		return nil, err
	}
	return codec.DecodeFilters(data)
}
