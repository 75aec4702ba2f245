package megaverse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalMapObjects(t *testing.T) {
	raw := `{"goal":[
		["SPACE","POLYANET","SPACE"],
		["RED_SOLOON","SPACE","UP_COMETH"],
		["SPACE","SPACE","WHITE_SOLOON"]
	]}`

	var g GoalMap
	require.NoError(t, json.Unmarshal([]byte(raw), &g))

	objs, err := g.Objects()
	require.NoError(t, err)
	require.Len(t, objs, 4)

	assert.Equal(t, Polyanet(0, 1), objs[0])
	assert.Equal(t, Soloon(1, 0, "red"), objs[1])
	assert.Equal(t, Cometh(1, 2, "up"), objs[2])
	assert.Equal(t, Soloon(2, 2, "white"), objs[3])

	rows, cols := g.Size()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
}

func TestGoalMapUnknownToken(t *testing.T) {
	g := GoalMap{Goal: [][]string{{"SPACE", "BLACK_HOLE"}}}
	_, err := g.Objects()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLACK_HOLE")
}

func TestGoalMapInvalidAttribute(t *testing.T) {
	g := GoalMap{Goal: [][]string{{"GREEN_SOLOON"}}}
	_, err := g.Objects()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "color")
}

func TestCellRoundTrip(t *testing.T) {
	for _, o := range []Object{Polyanet(3, 4), Soloon(1, 1, "purple"), Cometh(0, 9, "left")} {
		got, ok, err := ParseCell(Cell(o), o.Placement.Row, o.Placement.Column)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, o, got)
	}
}

func TestXShape(t *testing.T) {
	cells := XShape(11, 2)
	require.Len(t, cells, 13)

	assert.Equal(t, Placement{Row: 2, Column: 2}, cells[0])
	assert.Equal(t, Placement{Row: 2, Column: 8}, cells[1])
	assert.Contains(t, cells, Placement{Row: 5, Column: 5})
	assert.Equal(t, Placement{Row: 8, Column: 2}, cells[len(cells)-2])
	assert.Equal(t, Placement{Row: 8, Column: 8}, cells[len(cells)-1])

	seen := map[Placement]bool{}
	for _, c := range cells {
		assert.False(t, seen[c], "duplicate cell %s", c)
		seen[c] = true
	}
}

func TestXShapeEmpty(t *testing.T) {
	assert.Empty(t, XShape(3, 2))
	assert.Empty(t, XShape(0, 0))
}
