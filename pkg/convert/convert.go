// Package convert runs the whole pipeline over a batch of DXF files and
// produces the solver job, collecting per-file errors and warnings instead of
// aborting the batch.
package convert

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/chazu/dxfnest/pkg/config"
	"github.com/chazu/dxfnest/pkg/contour"
	"github.com/chazu/dxfnest/pkg/discretize"
	"github.com/chazu/dxfnest/pkg/dxf"
	"github.com/chazu/dxfnest/pkg/entity"
	"github.com/chazu/dxfnest/pkg/kernel"
	"github.com/chazu/dxfnest/pkg/kernel/sdfx"
	"github.com/chazu/dxfnest/pkg/nesting"
	"github.com/chazu/dxfnest/pkg/polygon"
	"github.com/chazu/dxfnest/pkg/shape"
)

// FileInput is one uploaded drawing.
type FileInput struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Quantity int    `json:"quantity"`
}

// FileError records why a file was left out of the job.
type FileError struct {
	File    string `json:"file"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// FileWarning is a non-fatal finding for a file.
type FileWarning struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Options configures Convert.
type Options struct {
	config.Options
	// Indent pretty-prints the job JSON.
	Indent bool
	// Kernel checks hole containment. Nil uses the sdfx kernel.
	Kernel kernel.Kernel
	Logger *slog.Logger
}

// DefaultOptions wraps config.Default.
func DefaultOptions() Options {
	return Options{Options: config.Default()}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) kernel() kernel.Kernel {
	if o.Kernel != nil {
		return o.Kernel
	}
	return sdfx.New()
}

// Result is the outcome of a batch. On failure JSON is empty and Job and
// Items are nil.
type Result struct {
	Success  bool                `json:"success"`
	JSON     string              `json:"json,omitempty"`
	Job      *nesting.Job        `json:"-"`
	Items    []nesting.InputItem `json:"items,omitempty"`
	Errors   []FileError         `json:"errors"`
	Warnings []FileWarning       `json:"warnings"`
}

// FileResult is what one file contributes to a batch.
type FileResult struct {
	Items    []nesting.InputItem
	Warnings []string
}

// Convert processes files in order. A file that fails at any stage is
// recorded in Errors and skipped; item ids stay dense over the files that
// succeed. The batch succeeds when at least one item was produced and the
// assembled job passes structural validation.
func Convert(files []FileInput, opts Options) Result {
	log := opts.logger()
	res := Result{Errors: []FileError{}, Warnings: []FileWarning{}}
	if err := opts.Validate(); err != nil {
		res.Errors = append(res.Errors, FileError{Stage: StageInput, Message: err.Error()})
		return res
	}

	var items []nesting.InputItem
	for _, f := range files {
		fr, err := ConvertFile(f, len(items), opts)
		for _, w := range fr.Warnings {
			res.Warnings = append(res.Warnings, FileWarning{File: f.Name, Message: w})
		}
		if err != nil {
			log.Warn("file skipped", "file", f.Name, "stage", StageOf(err), "err", err)
			res.Errors = append(res.Errors, FileError{File: f.Name, Stage: StageOf(err), Message: err.Error()})
			continue
		}
		log.Debug("file converted", "file", f.Name, "items", len(fr.Items))
		items = append(items, fr.Items...)
	}
	if len(items) == 0 {
		return res
	}

	job, warnings, err := nesting.FormatJob(opts.ProblemName, opts.StripHeight, items)
	if err != nil {
		res.Errors = append(res.Errors, FileError{Stage: StageFormat, Message: err.Error()})
		return res
	}
	holed := lo.Filter(items, func(it nesting.InputItem, _ int) bool { return len(it.Shape.Interiors) > 0 })
	for i, w := range warnings {
		file := ""
		if i < len(holed) {
			file = holed[i].Metadata.File
		}
		res.Warnings = append(res.Warnings, FileWarning{File: file, Message: w})
	}

	out, err := nesting.Marshal(job, opts.Indent)
	if err == nil {
		err = nesting.ValidateJSON(out)
	}
	if err != nil {
		res.Errors = append(res.Errors, FileError{Stage: StageFormat, Message: err.Error()})
		return res
	}

	log.Info("batch converted", "files", len(files), "items", len(items), "errors", len(res.Errors))
	res.Success = true
	res.JSON = string(out)
	res.Job = &job
	res.Items = items
	return res
}

// ConvertFile runs the pipeline on one file. Items are numbered from
// firstID. Warnings gathered before a failure are returned with the error.
func ConvertFile(f FileInput, firstID int, opts Options) (FileResult, error) {
	log := opts.logger().With("file", f.Name)
	fr := FileResult{Items: []nesting.InputItem{}, Warnings: []string{}}

	if f.Quantity < 1 {
		return fr, fail(StageInput, fmt.Errorf("quantity %d, must be at least 1", f.Quantity))
	}

	doc, err := dxf.ParseString(f.Content, dxf.Options{NormalizeUnits: opts.NormalizeUnits, Logger: log})
	if err != nil {
		return fr, fail(StageParsing, err)
	}

	ents := entity.ExtractEntities(doc)
	if len(ents) == 0 {
		return fr, fail(StageExtraction, ErrNoEntities)
	}
	if len(opts.Layers) > 0 {
		ents = entity.FilterByLayer(ents, opts.Layers...)
		if len(ents) == 0 {
			return fr, fail(StageExtraction, fmt.Errorf("%w on layers %s", ErrNoEntities, strings.Join(opts.Layers, ", ")))
		}
	}
	supported, skipped := entity.SplitSupported(ents)
	for _, typ := range entity.SkippedTypes(skipped) {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf("ignored %d unsupported %s entity(ies)", skipped[typ], typ))
	}
	if len(supported) == 0 {
		return fr, fail(StageExtraction, ErrNoSupportedEntities)
	}

	built := contour.Build(supported, contour.Options{
		Tolerance: opts.Tolerance,
		MinLength: opts.EffectiveMinContourLength(),
		AutoClose: opts.AutoClose,
		Logger:    log,
	})
	fr.Warnings = append(fr.Warnings, built.Warnings...)
	closed := built.Closed()
	if len(closed) == 0 {
		return fr, fail(StageContour, ErrNoContours)
	}

	groups := [][]contour.Contour{closed}
	if opts.SplitParts {
		groups = shape.GroupContoursByProximity(closed, opts.GroupDistance)
	}

	var firstErr error
	for gi, group := range groups {
		name := f.Name
		if len(groups) > 1 {
			name = fmt.Sprintf("%s#%d", f.Name, gi)
		}
		s, warnings, err := buildShape(group, opts)
		if err == nil {
			var it nesting.InputItem
			it, err = nesting.NewItem(firstID+len(fr.Items), f.Quantity, s, nesting.Rotations(opts.AllowRotations), nesting.Metadata{
				File:     name,
				Spacing:  opts.Spacing,
				Warnings: warnings,
			})
			if err != nil {
				err = fail(StagePolygon, err)
			} else {
				fr.Items = append(fr.Items, it)
			}
		}
		fr.Warnings = append(fr.Warnings, prefix(name, len(groups) > 1, warnings)...)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if len(groups) > 1 {
				fr.Warnings = append(fr.Warnings, fmt.Sprintf("%s: skipped: %v", name, err))
			}
		}
	}
	if len(fr.Items) == 0 {
		return fr, firstErr
	}
	log.Debug("contours converted", "contours", len(closed), "parts", len(fr.Items))
	return fr, nil
}

func prefix(name string, on bool, msgs []string) []string {
	if !on {
		return msgs
	}
	return lo.Map(msgs, func(m string, _ int) string { return name + ": " + m })
}

// buildShape classifies one group of closed contours and turns it into
// cleaned rings.
func buildShape(group []contour.Contour, opts Options) (nesting.Shape, []string, error) {
	dopts := discretize.Options{ArcSegments: opts.ArcSegments, SplineSegments: opts.SplineSegments}
	ring := func(c contour.Contour) polygon.Polygon {
		return polygon.Assemble(discretize.Contour(c, dopts), opts.MaxEdgeLength)
	}

	var exterior polygon.Polygon
	var holes []polygon.Polygon
	var warnings []string
	switch opts.Classifier {
	case config.ClassifierWinding:
		rings := lo.Map(group, func(c contour.Contour, _ int) polygon.Polygon { return ring(c) })
		r, w, err := shape.DetectShape(rings)
		if err != nil {
			return nesting.Shape{}, w, fail(StageClassification, err)
		}
		warnings = append(warnings, w...)
		exterior, holes = r.Exterior, r.Holes
	default:
		s, w, err := shape.SeparateExteriorAndHoles(group)
		if err != nil {
			return nesting.Shape{}, w, fail(StageClassification, err)
		}
		warnings = append(warnings, w...)
		exterior = ring(s.Exterior)
		holes = lo.Map(s.Holes, func(c contour.Contour, _ int) polygon.Polygon { return ring(c) })
	}

	ext, vr := polygon.Normalize(exterior, opts.MaxEdgeLength)
	warnings = append(warnings, messages(vr)...)
	if !vr.OK() {
		return nesting.Shape{}, warnings, fail(StagePolygon, vr.Err())
	}

	interiors := []polygon.Polygon{}
	for i, h := range holes {
		hp, hr := polygon.Normalize(h, opts.MaxEdgeLength)
		if !hr.OK() {
			warnings = append(warnings, fmt.Sprintf("dropped hole %d: %v", i, hr.Err()))
			continue
		}
		interiors = append(interiors, hp)
	}
	k := opts.kernel()
	warnings = append(warnings, shape.CheckHoles(k, ext, interiors, opts.Tolerance)...)
	if h, rot, err := shape.StripFit(k, ext, nesting.Rotations(opts.AllowRotations)); err != nil {
		warnings = append(warnings, err.Error())
	} else if h > opts.StripHeight {
		warnings = append(warnings, fmt.Sprintf("part is %.4g tall at its best rotation (%d deg), strip height is %.4g", h, rot, opts.StripHeight))
	}
	return nesting.Shape{Exterior: ext, Interiors: interiors}, warnings, nil
}

func messages(r polygon.ValidationResult) []string {
	return lo.Map(r.Warnings, func(w polygon.ValidationWarning, _ int) string { return w.Message })
}

// ParseFileSpec splits a "PATH[:QTY]" argument. A colon at index 1 is taken
// as a drive letter, and a suffix after the last colon that is not an
// integer is part of the path, so "scans/v1:rev-b.dxf" reads with quantity 1.
// An integer quantity below 1 is an error.
func ParseFileSpec(spec string) (string, int, error) {
	if spec == "" {
		return "", 0, fmt.Errorf("convert: empty file spec")
	}
	i := strings.LastIndex(spec, ":")
	if i <= 1 {
		return spec, 1, nil
	}
	path, q := spec[:i], spec[i+1:]
	qty, err := strconv.Atoi(q)
	if err != nil {
		return spec, 1, nil
	}
	if qty < 1 {
		return "", 0, fmt.Errorf("convert: file spec %q: quantity %d, must be at least 1", spec, qty)
	}
	return path, qty, nil
}

// Preview turns converted items into outlines for dxf.WriteRings.
func Preview(items []nesting.InputItem) []dxf.Outline {
	toPts := func(p polygon.Polygon) []entity.Point2D {
		return lo.Map(p, func(q polygon.Point, _ int) entity.Point2D { return entity.Pt(q[0], q[1]) })
	}
	return lo.Map(items, func(it nesting.InputItem, _ int) dxf.Outline {
		rings := [][]entity.Point2D{toPts(it.Shape.Exterior)}
		for _, h := range it.Shape.Interiors {
			rings = append(rings, toPts(h))
		}
		return dxf.Outline{Name: it.Metadata.File, Rings: rings}
	})
}
