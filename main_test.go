package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/megaverse/internal/megaverse"
	"github.com/robalobadob/megaverse/internal/simulator"
	"github.com/robalobadob/megaverse/internal/store"
)

type fixture struct {
	sim    *simulator.Server
	store  store.Store
	config string
}

// newFixture starts a simulator and writes a config pointing at it.
func newFixture(t *testing.T, opts simulator.Options, extraConfig string) fixture {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	goal, err := simulator.LoadGoal("")
	require.NoError(t, err)
	st := store.NewMemoryStore()
	sim := simulator.New(st, goal, opts)
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)

	path := filepath.Join(dir, "megaverse.yaml")
	content := fmt.Sprintf("candidate_id: abc\napi_url: %s/api\nlog_format: json\n%s", ts.URL, extraConfig)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return fixture{sim: sim, store: st, config: path}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDefaultCommandPlacesPositions(t *testing.T) {
	f := newFixture(t, simulator.Options{FailFirst: 2}, "positions:\n  - {row: 8, column: 8}\n  - {row: 2, column: 2}\n")

	out, err := execute(t, "--config", f.config)
	require.NoError(t, err)

	objs, err := f.store.Objects(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []megaverse.Object{megaverse.Polyanet(2, 2), megaverse.Polyanet(8, 8)}, objs)
	assert.Equal(t, 4, f.sim.Writes())
	assert.Contains(t, out, "Polyanet created at [8, 8]")
	assert.Contains(t, out, "retrying [8, 8]")
}

func TestPlaceExhaustedStillExitsCleanly(t *testing.T) {
	f := newFixture(t, simulator.Options{FailFirst: 100}, "max_retries: 3\npositions:\n  - {row: 8, column: 8}\n")

	out, err := execute(t, "place", "--config", f.config)
	require.NoError(t, err)
	assert.Equal(t, 4, f.sim.Writes())
	assert.Contains(t, out, "giving up on Polyanet [8, 8]")
}

func TestPlaceHonoursConfiguredRetryBudget(t *testing.T) {
	f := newFixture(t, simulator.Options{FailFirst: 100}, "max_retries: 1\npositions:\n  - {row: 8, column: 8}\n")

	out, err := execute(t, "place", "--config", f.config, "--log-level", "debug")
	require.NoError(t, err)
	assert.Equal(t, 2, f.sim.Writes())
	assert.Contains(t, out, "giving up on Polyanet [8, 8]")
	assert.Contains(t, out, `"exhausted":1`)
}

func TestPlaceEmptyPositions(t *testing.T) {
	f := newFixture(t, simulator.Options{}, "")

	_, err := execute(t, "place", "--config", f.config)
	require.NoError(t, err)
	assert.Zero(t, f.sim.Writes())
}

func TestBuildCreatesGoal(t *testing.T) {
	f := newFixture(t, simulator.Options{}, "")

	_, err := execute(t, "build", "--config", f.config)
	require.NoError(t, err)

	objs, err := f.store.Objects(context.Background(), "abc")
	require.NoError(t, err)
	assert.Len(t, objs, 17)
	assert.Contains(t, objs, megaverse.Soloon(0, 0, "red"))
	assert.Contains(t, objs, megaverse.Cometh(10, 0, "left"))
}

func TestClearDeletesPositions(t *testing.T) {
	f := newFixture(t, simulator.Options{}, "shape: x\n")
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, "abc", megaverse.Polyanet(5, 5)))

	out, err := execute(t, "clear", "--config", f.config)
	require.NoError(t, err)

	objs, err := f.store.Objects(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, objs)
	assert.Contains(t, out, "Polyanet deleted at [5, 5]")
}

func TestGoalPrintsTable(t *testing.T) {
	f := newFixture(t, simulator.Options{}, "")

	out, err := execute(t, "goal", "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, out, "S:red")
	assert.Contains(t, out, "C:up")
	assert.Contains(t, out, "Total objects: 17")
}

func TestMissingCandidateIsAnError(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CANDIDATE_ID", "")
	t.Setenv("MEGAVERSE_CANDIDATE_ID", "")

	_, err = execute(t, "place")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidate_id")
}

func TestShortCell(t *testing.T) {
	assert.Equal(t, ".", shortCell("SPACE"))
	assert.Equal(t, "P", shortCell("POLYANET"))
	assert.Equal(t, "S:blue", shortCell("BLUE_SOLOON"))
	assert.Equal(t, "C:down", shortCell("DOWN_COMETH"))
	assert.Equal(t, "?", shortCell("NEBULA"))
}

func TestServeRejectsBadGoalFile(t *testing.T) {
	f := newFixture(t, simulator.Options{}, "simulator:\n  goal_file: missing.json\n")

	_, err := execute(t, "serve", "--config", f.config)
	require.Error(t, err)
}
