// Command seatctl arranges and prints seating charts from the command line,
// using the same engine and file format as the server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seatctl",
		Short:         "Classroom seating charts from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newArrangeCmd(), newShowCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
