package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/classroom-seating/internal/seating"
)

func newShowCmd() *cobra.Command {
	var orientation string
	cmd := &cobra.Command{
		Use:   "show <chart.json>",
		Short: "Print a saved seating chart",
		Long: `Print a seating chart file written by seatctl or exported by the server.

Examples:
  seatctl show 座位表_2024-03-09.json
  seatctl show chart.json --orientation far`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := ""
			if cmd.Flags().Changed("orientation") {
				o = orientation
			}
			return runShow(cmd.OutOrStdout(), args[0], o)
		},
	}
	cmd.Flags().StringVar(&orientation, "orientation", "", "View from the other side: near or far")
	return cmd
}

// runShow prints the chart at path, switching to orientation first when it
// is not empty.
func runShow(out io.Writer, path, orientation string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	snap, err := seating.ParseSnapshot(data)
	if err != nil {
		return err
	}
	s, err := seating.FromSnapshot(snap, nil)
	if err != nil {
		return err
	}
	if orientation != "" {
		o, err := seating.ParseOrientation(orientation)
		if err != nil {
			return err
		}
		if err := s.SetOrientation(o); err != nil {
			return err
		}
	}

	fmt.Fprint(out, s.Format())
	if rest := s.Unassigned(); len(rest) > 0 {
		names := make([]string, len(rest))
		for i, st := range rest {
			names[i] = st.Name
		}
		fmt.Fprintf(out, "not seated: %s\n", strings.Join(names, ", "))
	}
	return nil
}
