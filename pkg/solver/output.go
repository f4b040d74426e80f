package solver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PlacedItem is one placement in the solver's layout.
type PlacedItem struct {
	ItemID          int     `json:"item_id"`
	RotationDegrees float64 `json:"rotation_degrees"`
	PositionX       float64 `json:"position_x"`
	PositionY       float64 `json:"position_y"`
}

// Output is the solver's result document. It is passed through to callers
// without interpretation.
type Output struct {
	InstanceName        string       `json:"instance_name"`
	StripWidth          float64      `json:"strip_width"`
	StripHeight         float64      `json:"strip_height"`
	TotalItemsPlaced    int          `json:"total_items_placed"`
	Layouts             []PlacedItem `json:"layouts"`
	Utilization         float64      `json:"utilization"`
	ComputationTimeSecs float64      `json:"computation_time_secs"`
	Status              string       `json:"status,omitempty"`
	ItemsRequested      int          `json:"items_requested,omitempty"`
	UnplacedItemIDs     []int        `json:"unplaced_item_ids,omitempty"`
	SVG                 string       `json:"svg_string,omitempty"`
}

// Complete reports whether every requested item was placed. Older solver
// builds omit status; then an empty unplaced list counts as complete.
func (o Output) Complete() bool {
	if o.Status != "" {
		return o.Status == "complete"
	}
	return len(o.UnplacedItemIDs) == 0
}

// ParseOutput decodes a solver result document.
func ParseOutput(data []byte) (Output, error) {
	var o Output
	if err := json.Unmarshal(data, &o); err != nil {
		return Output{}, fmt.Errorf("solver: decode output: %w", err)
	}
	if o.Layouts == nil {
		o.Layouts = []PlacedItem{}
	}
	return o, nil
}

// DefaultViewBoxMargin is the margin ExpandViewBox callers use so parts on
// the strip edge are not clipped.
const DefaultViewBoxMargin = 50

var viewBox = regexp.MustCompile(`viewBox="([^"]+)"`)

// ExpandViewBox grows the first viewBox in svg by margin on every side. An
// svg without a parsable viewBox is returned unchanged.
func ExpandViewBox(svg string, margin float64) string {
	loc := viewBox.FindStringSubmatchIndex(svg)
	if loc == nil {
		return svg
	}
	fields := strings.FieldsFunc(svg[loc[2]:loc[3]], func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	if len(fields) != 4 {
		return svg
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return svg
		}
		v[i] = n
	}
	v[0] -= margin
	v[1] -= margin
	v[2] += 2 * margin
	v[3] += 2 * margin

	parts := make([]string, 4)
	for i, n := range v {
		parts[i] = strconv.FormatFloat(n, 'f', -1, 64)
	}
	return svg[:loc[0]] + `viewBox="` + strings.Join(parts, " ") + `"` + svg[loc[1]:]
}
