// internal/simulator/goal.go
//
// Goal map loading for the simulator.
//
// Initialization behavior (LoadGoal):
//   1. If path is non-empty, read the goal map JSON from that file.
//   2. Otherwise fall back to the embedded 11x11 default (assets/goal_default.json).
//
// The map must be rectangular and every cell must be a known token.

package simulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/robalobadob/megaverse/assets"
	"github.com/robalobadob/megaverse/internal/megaverse"
)

// LoadGoal reads a goal map from path, or the embedded default when path is "".
func LoadGoal(path string) (megaverse.GoalMap, error) {
	var (
		raw []byte
		err error
	)
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = assets.DefaultGoal()
	}
	if err != nil {
		return megaverse.GoalMap{}, fmt.Errorf("read goal map: %w", err)
	}

	var g megaverse.GoalMap
	if err := json.Unmarshal(raw, &g); err != nil {
		return megaverse.GoalMap{}, fmt.Errorf("decode goal map: %w", err)
	}
	if err := checkGoal(g); err != nil {
		return megaverse.GoalMap{}, err
	}
	return g, nil
}

func checkGoal(g megaverse.GoalMap) error {
	rows, cols := g.Size()
	if rows == 0 || cols == 0 {
		return errors.New("goal map is empty")
	}
	for i, row := range g.Goal {
		if len(row) != cols {
			return fmt.Errorf("goal map row %d has %d cells, want %d", i, len(row), cols)
		}
	}
	if _, err := g.Objects(); err != nil {
		return err
	}
	return nil
}
