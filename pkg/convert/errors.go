package convert

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a file failed in.
type Stage string

const (
	StageInput          Stage = "input"
	StageParsing        Stage = "parsing"
	StageExtraction     Stage = "extraction"
	StageContour        Stage = "contour"
	StageClassification Stage = "classification"
	StagePolygon        Stage = "polygon"
	StageFormat         Stage = "format"
)

var (
	// ErrNoEntities means the drawing has nothing in its ENTITIES section,
	// or nothing on the selected layers.
	ErrNoEntities = errors.New("convert: drawing contains no entities")
	// ErrNoSupportedEntities means every entity was of an unsupported type.
	ErrNoSupportedEntities = errors.New("convert: drawing contains no supported entities")
	// ErrNoContours means no closed contour could be built.
	ErrNoContours = errors.New("convert: no closed contours found")
)

// StageError is a file-fatal failure and the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage err carries, or "" when it is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
