// Package config holds the conversion options and loads them from TOML or
// YAML files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Classifier names how exterior and hole rings are told apart.
type Classifier string

const (
	// ClassifierBBox uses bounding-box containment on contours.
	ClassifierBBox Classifier = "bbox"
	// ClassifierWinding uses the signed area of discretized rings.
	ClassifierWinding Classifier = "winding"
)

// Options controls a conversion run. Lengths are in millimetres.
type Options struct {
	StripHeight    float64 `json:"stripHeight" toml:"strip_height" yaml:"strip_height"`
	Spacing        float64 `json:"spacing" toml:"spacing" yaml:"spacing"`
	ArcSegments    int     `json:"arcSegments" toml:"arc_segments" yaml:"arc_segments"`
	SplineSegments int     `json:"splineSegments" toml:"spline_segments" yaml:"spline_segments"`
	Tolerance      float64 `json:"tolerance" toml:"tolerance" yaml:"tolerance"`
	AutoClose      bool    `json:"autoClose" toml:"auto_close" yaml:"auto_close"`
	AllowRotations bool    `json:"allowRotations" toml:"allow_rotations" yaml:"allow_rotations"`
	ProblemName    string  `json:"problemName" toml:"problem_name" yaml:"problem_name"`

	MaxEdgeLength    float64    `json:"maxEdgeLength" toml:"max_edge_length" yaml:"max_edge_length"`
	MinContourLength float64    `json:"minContourLength" toml:"min_contour_length" yaml:"min_contour_length"`
	SplitParts       bool       `json:"splitParts" toml:"split_parts" yaml:"split_parts"`
	GroupDistance    float64    `json:"groupDistance" toml:"group_distance" yaml:"group_distance"`
	Classifier       Classifier `json:"classifier" toml:"classifier" yaml:"classifier"`
	Layers           []string   `json:"layers" toml:"layers" yaml:"layers"`
	NormalizeUnits   bool       `json:"normalizeUnits" toml:"normalize_units" yaml:"normalize_units"`
}

// Default returns the stock options.
func Default() Options {
	return Options{
		StripHeight:    6000,
		Spacing:        5,
		ArcSegments:    32,
		SplineSegments: 64,
		Tolerance:      0.1,
		AutoClose:      true,
		AllowRotations: true,
		ProblemName:    "nesting_job",
		MaxEdgeLength:  20,
		GroupDistance:  10,
		Classifier:     ClassifierBBox,
		Layers:         []string{},
	}
}

// EffectiveMinContourLength returns MinContourLength, or Tolerance when it
// is unset.
func (o Options) EffectiveMinContourLength() float64 {
	if o.MinContourLength > 0 {
		return o.MinContourLength
	}
	return o.Tolerance
}

// Validate reports every out-of-range option.
func (o Options) Validate() error {
	var problems []string
	if o.StripHeight <= 0 {
		problems = append(problems, fmt.Sprintf("strip_height %v must be positive", o.StripHeight))
	}
	if o.Spacing < 0 {
		problems = append(problems, fmt.Sprintf("spacing %v must not be negative", o.Spacing))
	}
	if o.ArcSegments < 3 {
		problems = append(problems, fmt.Sprintf("arc_segments %d must be at least 3", o.ArcSegments))
	}
	if o.SplineSegments < 3 {
		problems = append(problems, fmt.Sprintf("spline_segments %d must be at least 3", o.SplineSegments))
	}
	if o.Tolerance <= 0 {
		problems = append(problems, fmt.Sprintf("tolerance %v must be positive", o.Tolerance))
	}
	if o.MaxEdgeLength < 0 {
		problems = append(problems, fmt.Sprintf("max_edge_length %v must not be negative", o.MaxEdgeLength))
	}
	if o.MinContourLength < 0 {
		problems = append(problems, fmt.Sprintf("min_contour_length %v must not be negative", o.MinContourLength))
	}
	if o.SplitParts && o.GroupDistance <= 0 {
		problems = append(problems, fmt.Sprintf("group_distance %v must be positive when split_parts is set", o.GroupDistance))
	}
	switch o.Classifier {
	case ClassifierBBox, ClassifierWinding, "":
	default:
		problems = append(problems, fmt.Sprintf("classifier %q must be %q or %q", o.Classifier, ClassifierBBox, ClassifierWinding))
	}
	if strings.TrimSpace(o.ProblemName) == "" {
		problems = append(problems, "problem_name must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads options from a .toml, .yaml/.yml or .json file on top of the
// defaults and validates the result.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes options in the format named by ext (".toml", ".yaml",
// ".yml" or ".json") on top of the defaults.
func Parse(data []byte, ext string) (Options, error) {
	opts := Default()
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(data, &opts)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &opts)
	case ".json":
		err = json.Unmarshal(data, &opts)
	default:
		return Options{}, fmt.Errorf("config: unsupported config format %q", ext)
	}
	if err != nil {
		return Options{}, fmt.Errorf("config: decode %s: %w", ext, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
