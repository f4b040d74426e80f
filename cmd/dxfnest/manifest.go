package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/dxfnest/pkg/convert"
	"github.com/chazu/dxfnest/pkg/engine"
)

func newManifestCmd(rf *rootFlags) *cobra.Command {
	var output string
	var indent bool
	cmd := &cobra.Command{
		Use:   "manifest FILE.zy",
		Short: "Evaluate a job manifest and convert the parts it lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			m, evalErrs, err := engine.NewEngine().EvaluateFile(path)
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				errs := make([]error, len(evalErrs))
				for i, e := range evalErrs {
					errs[i] = e
				}
				return fmt.Errorf("%s: %w", path, errors.Join(errs...))
			}
			for _, w := range m.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s:%d: %s\n", filepath.Base(path), w.Line, w.Message)
			}
			files, err := m.Inputs(filepath.Dir(path))
			if err != nil {
				return err
			}
			_, err = emit(files, convert.Options{Options: m.Options, Indent: indent, Logger: rf.logger()},
				output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write job JSON here instead of stdout")
	cmd.Flags().BoolVar(&indent, "indent", true, "pretty print the job")
	return cmd
}
