package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chazu/dxfnest/pkg/config"
	"github.com/chazu/dxfnest/pkg/convert"
	"github.com/chazu/dxfnest/pkg/engine"
	"github.com/chazu/dxfnest/pkg/solver"
)

// colorPalette is a default palette used to tell parts apart in the UI.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	runner *solver.Runner
	log    *slog.Logger
}

// ItemData summarizes one converted part for the frontend.
type ItemData struct {
	ID       int     `json:"id"`
	File     string  `json:"file"`
	Quantity int     `json:"quantity"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Area     float64 `json:"area"`
	Points   int     `json:"points"`
	Holes    int     `json:"holes"`
	Color    string  `json:"color"`
}

// ConvertResult is what ConvertFiles returns to the frontend.
type ConvertResult struct {
	Success  bool                  `json:"success"`
	JSON     string                `json:"json"`
	Items    []ItemData            `json:"items"`
	Errors   []convert.FileError   `json:"errors"`
	Warnings []convert.FileWarning `json:"warnings"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// PartData is one part line of a manifest.
type PartData struct {
	File     string `json:"file"`
	Quantity int    `json:"quantity"`
}

// ManifestResult is the evaluated manifest returned to the frontend.
type ManifestResult struct {
	Name     string          `json:"name"`
	Options  config.Options  `json:"options"`
	Parts    []PartData      `json:"parts"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NestingResult is the outcome of a solver run.
type NestingResult struct {
	Success bool           `json:"success"`
	Output  *solver.Output `json:"output,omitempty"`
	SVG     string         `json:"svg,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// NewApp creates a new App with a manifest engine and a solver runner.
func NewApp() *App {
	return &App{
		engine: engine.NewEngine(),
		runner: &solver.Runner{},
		log:    slog.Default().With("component", "app"),
	}
}

// startup is called by Wails on app startup. The context is saved so
// long-running bindings can be cancelled when the window closes.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// DefaultOptions returns the conversion defaults the upload form starts from.
func (a *App) DefaultOptions() config.Options {
	return config.Default()
}

// ConvertFiles converts uploaded drawings into a solver job.
// This is the primary binding called by the upload page.
func (a *App) ConvertFiles(files []convert.FileInput, opts config.Options) ConvertResult {
	res := convert.Convert(files, convert.Options{Options: opts, Indent: true, Logger: a.log})
	return toConvertResult(res)
}

// ConvertManifestFile evaluates a manifest on disk and converts the parts it
// lists, reading drawings relative to the manifest's directory.
func (a *App) ConvertManifestFile(path string) ConvertResult {
	m, evalErrs, err := a.engine.EvaluateFile(path)
	if err == nil && len(evalErrs) > 0 {
		err = evalErrs[0]
	}
	if err != nil {
		a.log.Error("manifest failed", "path", path, "err", err)
		return failedConvert(path, err)
	}
	files, err := m.Inputs(filepath.Dir(path))
	if err != nil {
		return failedConvert(path, err)
	}
	res := convert.Convert(files, convert.Options{Options: m.Options, Indent: true, Logger: a.log})
	out := toConvertResult(res)
	for _, w := range m.Warnings {
		out.Warnings = append(out.Warnings, convert.FileWarning{File: filepath.Base(path), Message: w.Message})
	}
	return out
}

func failedConvert(path string, err error) ConvertResult {
	return ConvertResult{
		Items:    []ItemData{},
		Errors:   []convert.FileError{{File: filepath.Base(path), Stage: convert.StageInput, Message: err.Error()}},
		Warnings: []convert.FileWarning{},
	}
}

func toConvertResult(res convert.Result) ConvertResult {
	out := ConvertResult{
		Success:  res.Success,
		JSON:     res.JSON,
		Items:    []ItemData{},
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
	for i, it := range res.Items {
		out.Items = append(out.Items, ItemData{
			ID:       it.ID,
			File:     it.Metadata.File,
			Quantity: it.Quantity,
			Width:    it.Metadata.Width,
			Height:   it.Metadata.Height,
			Area:     it.Metadata.Area,
			Points:   len(it.Shape.Exterior),
			Holes:    len(it.Shape.Interiors),
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return out
}

// EvaluateManifest evaluates manifest source typed into the editor.
func (a *App) EvaluateManifest(source string) ManifestResult {
	result := ManifestResult{
		Parts:    []PartData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("manifest evaluation failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if m == nil {
		return result
	}

	result.Name = m.Name()
	result.Options = m.Options
	for _, p := range m.Parts {
		result.Parts = append(result.Parts, PartData{File: p.File, Quantity: p.Quantity})
	}
	for _, w := range m.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Line: w.Line, Col: w.Col, Message: w.Message})
	}
	return result
}

// RunNesting hands a job produced by ConvertFiles to the solver.
func (a *App) RunNesting(jobJSON string, timeoutSecs, workers int) NestingResult {
	r := *a.runner
	if timeoutSecs > 0 {
		r.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	if workers > 0 {
		r.Workers = workers
	}
	r.Logger = a.log

	res, err := r.Run(a.context(), []byte(jobJSON))
	if err != nil {
		a.log.Error("nesting failed", "err", err)
		return NestingResult{Error: err.Error()}
	}
	return NestingResult{Success: true, Output: &res.Output, SVG: res.SVG}
}
