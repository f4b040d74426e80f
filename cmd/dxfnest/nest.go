package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/dxfnest/pkg/nesting"
	"github.com/chazu/dxfnest/pkg/solver"
)

func newNestCmd(rf *rootFlags) *cobra.Command {
	var (
		input, output, svgOut string
		r                     solver.Runner
		timeout               time.Duration
	)
	cmd := &cobra.Command{
		Use:   "nest --input job.json",
		Short: "Run the solver on a job produced by convert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			if err := nesting.ValidateJSON(job); err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			r.Timeout = timeout
			r.Logger = rf.logger()

			res, err := r.Run(cmd.Context(), job)
			if err != nil {
				return err
			}
			out := res.Output
			if !out.Complete() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: placed %d of %d item(s), unplaced %v\n",
					out.TotalItemsPlaced, out.ItemsRequested, out.UnplacedItemIDs)
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("encode output: %w", err)
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			if svgOut != "" && res.SVG != "" {
				if err := os.WriteFile(svgOut, []byte(res.SVG), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", svgOut, err)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "job JSON produced by convert")
	f.StringVarP(&output, "output", "o", "", "write the solver result here instead of stdout")
	f.StringVar(&svgOut, "svg-out", "", "write the layout SVG here")
	f.StringVar(&r.Binary, "binary", solver.DefaultBinary, "solver executable")
	f.DurationVar(&timeout, "timeout", solver.DefaultTimeout, "solver time limit")
	f.IntVar(&r.Workers, "workers", 1, "solver worker threads")
	f.StringVar(&r.WorkDir, "work-dir", "", "parent directory for run scratch files")
	f.BoolVar(&r.Keep, "keep", false, "keep the scratch directory after the run")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
