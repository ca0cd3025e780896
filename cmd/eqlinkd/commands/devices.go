package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	eqlink "github.com/cbegin/eqlink-go"
	"github.com/cbegin/eqlink-go/internal/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the addressable inputs and outputs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		reg := device.NewRegistry(eqlink.NewEnumerator(cfg.Devices), log)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IDENTITY\tWIRE\tHANDLE")
		for _, id := range reg.Capabilities() {
			handle := reg.Resolve(id)
			if handle == "" {
				handle = "-"
			}
			fmt.Fprintf(w, "%s\t%02x%02x%02x\t%s\n", id, byte(id.Type), boolByte(id.Output), byte(id.Instance), handle)
		}
		return w.Flush()
	},
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
