package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/classroom-seating/internal/roster"
	"github.com/iliyamo/classroom-seating/internal/seating"
)

type arrangeOptions struct {
	roster      string
	rows        int
	cols        int
	orientation string
	mode        string
	disable     []int
	seed        int64
	force       bool
	output      string
}

func newArrangeCmd() *cobra.Command {
	opts := &arrangeOptions{}
	cmd := &cobra.Command{
		Use:   "arrange",
		Short: "Arrange a roster into a seating chart",
		Long: `Arrange the students of a roster file (id,name,gender per line) into a
rows x cols grid and print the chart.

Examples:
  seatctl arrange --roster class.csv
  seatctl arrange --roster class.csv --rows 6 --cols 5 --mode gender --disable 3,7
  seatctl arrange --roster class.csv --orientation far --seed 42 -o charts/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArrange(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.roster, "roster", "r", "", "Roster file (id,name,gender per line)")
	cmd.Flags().IntVar(&opts.rows, "rows", 6, "Seats per room-row (1-15)")
	cmd.Flags().IntVar(&opts.cols, "cols", 5, "Number of room-rows (1-15)")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "near", "Blackboard side: near (below the grid) or far (above)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "random", "Arrangement: random or gender")
	cmd.Flags().IntSliceVar(&opts.disable, "disable", nil, "Display indexes of seats to take out of use, e.g. 3,7")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed for a reproducible chart (0 = time based)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Arrange even when locked seats conflict with the gender pattern")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the chart file here (a directory gets the dated default name)")
	_ = cmd.MarkFlagRequired("roster")
	return cmd
}

func runArrange(out, errOut io.Writer, opts *arrangeOptions) error {
	o, err := seating.ParseOrientation(opts.orientation)
	if err != nil {
		return err
	}
	mode, err := seating.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.roster)
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	res, err := roster.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	if res.Skipped > 0 {
		fmt.Fprintf(errOut, "skipped %d malformed roster line(s)\n", res.Skipped)
	}

	s, err := seating.New(opts.rows, opts.cols, &seating.Options{Seed: opts.seed, Orientation: o})
	if err != nil {
		return err
	}
	s.SetRoster(res.Students)
	for _, i := range opts.disable {
		if err := s.Disable(i); err != nil {
			return fmt.Errorf("disable seat: %w", err)
		}
	}

	report, err := s.Arrange(mode, func(conflicts []seating.Conflict) bool {
		fmt.Fprintf(errOut, "%d locked seat(s) break the gender pattern:\n", len(conflicts))
		for _, c := range conflicts {
			fmt.Fprintf(errOut, "  %s\n", c)
		}
		return opts.force
	})
	if errors.Is(err, seating.ErrArrangementCancelled) {
		return fmt.Errorf("%w: rerun with --force to keep the locked seats anyway", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, report.Message())
	fmt.Fprint(out, s.Format())
	if report.Unplaced > 0 {
		fmt.Fprintf(out, "%d student(s) could not be placed\n", report.Unplaced)
	}

	if opts.output == "" {
		return nil
	}
	path := opts.output
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, seating.SnapshotFilename(time.Now()))
	}
	data, err := s.ExportJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(out, "saved %s\n", path)
	return nil
}
