// Command eqlinkd runs the equalizer link daemon.
//
// Usage:
//
//	eqlinkd [--config eqlink.yaml] <command> [args]
//
// Commands:
//
//	serve    - run the daemon and its control link
//	render   - equalize a WAV file offline
//	devices  - list the addressable inputs and outputs
//	encode   - print the wire form of filters
//	decode   - print the filters of a wire buffer
//	version  - print the version
package main

import (
	"fmt"
	"os"

	"github.com/cbegin/eqlink-go/cmd/eqlinkd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
