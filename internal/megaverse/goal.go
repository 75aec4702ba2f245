// internal/megaverse/goal.go
//
// Goal map decoding and grid shapes.
// Responsibilities:
//   - Decode the challenge's goal map ({"goal": [[cell, ...], ...]}).
//   - Turn cell tokens (SPACE, POLYANET, RED_SOLOON, UP_COMETH, ...) into Objects.
//   - Produce the X-shaped Polyanet layout used by the first challenge phase.

package megaverse

import (
	"fmt"
	"strings"
)

// Space marks an empty cell in a goal map.
const Space = "SPACE"

// GoalMap is the target megaverse returned by GET /map/{candidateId}/goal.
type GoalMap struct {
	Goal [][]string `json:"goal"`
}

// Objects lists every non-space cell of the goal map in row-major order.
func (g GoalMap) Objects() ([]Object, error) {
	var out []Object
	for r, row := range g.Goal {
		for c, cell := range row {
			obj, ok, err := ParseCell(cell, r, c)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, obj)
			}
		}
	}
	return out, nil
}

// Size returns the number of rows and the widest row length.
func (g GoalMap) Size() (rows, cols int) {
	rows = len(g.Goal)
	for _, row := range g.Goal {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return rows, cols
}

// ParseCell decodes one goal-map token at (row, column).
// ok is false for SPACE cells.
func ParseCell(cell string, row, column int) (obj Object, ok bool, err error) {
	token := strings.ToUpper(strings.TrimSpace(cell))
	switch {
	case token == Space || token == "":
		return Object{}, false, nil
	case token == string(KindPolyanet):
		return Polyanet(row, column), true, nil
	case strings.HasSuffix(token, "_"+string(KindSoloon)):
		obj = Soloon(row, column, strings.TrimSuffix(token, "_"+string(KindSoloon)))
	case strings.HasSuffix(token, "_"+string(KindCometh)):
		obj = Cometh(row, column, strings.TrimSuffix(token, "_"+string(KindCometh)))
	default:
		return Object{}, false, fmt.Errorf("goal cell %q at [%d, %d]: unknown token", cell, row, column)
	}
	if err := obj.Validate(); err != nil {
		return Object{}, false, fmt.Errorf("goal cell %q at [%d, %d]: %w", cell, row, column, err)
	}
	return obj, true, nil
}

// Cell renders o as its goal-map token; the inverse of ParseCell.
func Cell(o Object) string {
	switch o.Kind {
	case KindSoloon:
		return strings.ToUpper(o.Color) + "_" + string(KindSoloon)
	case KindCometh:
		return strings.ToUpper(o.Direction) + "_" + string(KindCometh)
	case KindPolyanet:
		return string(KindPolyanet)
	}
	return Space
}

// XShape returns the cells of both diagonals of a size×size grid, skipping
// margin cells at every edge. Cells are row-major; the centre appears once.
func XShape(size, margin int) []Placement {
	var out []Placement
	for r := margin; r < size-margin; r++ {
		lo, hi := r, size-1-r
		if hi < lo {
			lo, hi = hi, lo
		}
		out = append(out, Placement{Row: r, Column: lo})
		if hi != lo {
			out = append(out, Placement{Row: r, Column: hi})
		}
	}
	return out
}
