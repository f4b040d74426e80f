package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/dxfnest/pkg/config"
	"github.com/chazu/dxfnest/pkg/convert"
)

type rootFlags struct {
	verbose    bool
	configPath string
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "dxfnest",
		Short:         "Convert DXF drawings into strip nesting jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if rf.verbose {
				level = slog.LevelDebug
			}
			rf.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	cmd.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "log each pipeline step")
	cmd.PersistentFlags().StringVar(&rf.configPath, "config", "", "job defaults file (.toml, .yaml or .json)")

	cmd.AddCommand(newConvertCmd(rf), newManifestCmd(rf), newNestCmd(rf))
	return cmd
}

// baseOptions returns the defaults, overlaid with --config when given.
func (rf *rootFlags) baseOptions() (config.Options, error) {
	if rf.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(rf.configPath)
}

func (rf *rootFlags) logger() *slog.Logger {
	if rf.log != nil {
		return rf.log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// emit converts files, reports per-file problems on errOut and writes the
// job JSON to path, or to out when path is empty.
func emit(files []convert.FileInput, opts convert.Options, path string, out, errOut io.Writer) (convert.Result, error) {
	res := convert.Convert(files, opts)
	for _, w := range res.Warnings {
		fmt.Fprintf(errOut, "warning: %s: %s\n", w.File, w.Message)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(errOut, "error: %s [%s]: %s\n", e.File, e.Stage, e.Message)
	}
	if !res.Success {
		return res, batchError(res.Errors)
	}
	if path == "" {
		_, err := fmt.Fprintln(out, res.JSON)
		return res, err
	}
	if err := os.WriteFile(path, []byte(res.JSON+"\n"), 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(errOut, "wrote %d item(s) to %s\n", len(res.Items), path)
	return res, nil
}

// batchError summarizes why a batch produced no job. Files can convert and
// the batch still be rejected at the format stage.
func batchError(errs []convert.FileError) error {
	if len(errs) == 0 {
		return fmt.Errorf("batch rejected")
	}
	first := errs[0]
	return fmt.Errorf("batch rejected: %d error(s), first %s [%s]: %s", len(errs), first.File, first.Stage, first.Message)
}
