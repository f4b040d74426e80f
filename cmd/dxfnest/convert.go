package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/dxfnest/pkg/config"
	"github.com/chazu/dxfnest/pkg/convert"
	"github.com/chazu/dxfnest/pkg/dxf"
)

type convertFlags struct {
	inputs      []string
	output      string
	exportDXF   string
	height      float64
	spacing     float64
	arcSegs     int
	splineSegs  int
	tolerance   float64
	noRotations bool
	noAutoClose bool
	name        string
	splitParts  bool
	classifier  string
	layers      []string
	indent      bool
}

func newConvertCmd(rf *rootFlags) *cobra.Command {
	cf := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert -i PATH[:QTY] [-i ...]",
		Short: "Convert DXF files into a solver job",
		Example: `  dxfnest convert -i bracket.dxf:4 -i plate.dxf --height 1200 -o job.json
  dxfnest convert -i sheet.dxf --split-parts --export-dxf preview.dxf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := rf.baseOptions()
			if err != nil {
				return err
			}
			cf.apply(cmd, &opts)

			files, err := readInputs(cf.inputs)
			if err != nil {
				return err
			}
			res, err := emit(files, convert.Options{Options: opts, Indent: cf.indent, Logger: rf.logger()},
				cf.output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cf.exportDXF != "" {
				if err := dxf.WriteRings(cf.exportDXF, convert.Preview(res.Items), opts.Spacing+10); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&cf.inputs, "input", "i", nil, "input drawing as PATH[:QTY] (repeatable)")
	f.StringVarP(&cf.output, "output", "o", "", "write job JSON here instead of stdout")
	f.StringVar(&cf.exportDXF, "export-dxf", "", "also write the converted outlines as a DXF preview")
	f.Float64Var(&cf.height, "height", 0, "strip height")
	f.Float64Var(&cf.spacing, "spacing", 0, "part spacing, recorded in item metadata")
	f.IntVar(&cf.arcSegs, "arc-segments", 0, "segments per full circle")
	f.IntVar(&cf.splineSegs, "spline-segments", 0, "segments per spline")
	f.Float64Var(&cf.tolerance, "tolerance", 0, "endpoint matching tolerance")
	f.BoolVar(&cf.noRotations, "no-rotations", false, "only allow 0 degree placement")
	f.BoolVar(&cf.noAutoClose, "no-auto-close", false, "do not close nearly closed chains")
	f.StringVar(&cf.name, "name", "", "problem name")
	f.BoolVar(&cf.splitParts, "split-parts", false, "treat far apart contour groups as separate parts")
	f.StringVar(&cf.classifier, "classifier", "", "hole classifier: bbox or winding")
	f.StringSliceVar(&cf.layers, "layer", nil, "only read entities on these layers")
	f.BoolVar(&cf.indent, "indent", true, "pretty print the job")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// apply overlays flags the user actually set onto opts.
func (cf *convertFlags) apply(cmd *cobra.Command, opts *config.Options) {
	f := cmd.Flags()
	if f.Changed("height") {
		opts.StripHeight = cf.height
	}
	if f.Changed("spacing") {
		opts.Spacing = cf.spacing
	}
	if f.Changed("arc-segments") {
		opts.ArcSegments = cf.arcSegs
	}
	if f.Changed("spline-segments") {
		opts.SplineSegments = cf.splineSegs
	}
	if f.Changed("tolerance") {
		opts.Tolerance = cf.tolerance
	}
	if cf.noRotations {
		opts.AllowRotations = false
	}
	if cf.noAutoClose {
		opts.AutoClose = false
	}
	if f.Changed("name") {
		opts.ProblemName = cf.name
	}
	if cf.splitParts {
		opts.SplitParts = true
	}
	if f.Changed("classifier") {
		opts.Classifier = config.Classifier(cf.classifier)
	}
	if f.Changed("layer") {
		opts.Layers = cf.layers
	}
}

func readInputs(specs []string) ([]convert.FileInput, error) {
	files := make([]convert.FileInput, 0, len(specs))
	for _, spec := range specs {
		path, qty, err := convert.ParseFileSpec(spec)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, convert.FileInput{Name: filepath.Base(path), Content: string(data), Quantity: qty})
	}
	return files, nil
}
