// Package assets embeds the simulator's SQLite migrations and default goal map.
package assets

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql goal_default.json
var FS embed.FS

// Migration is one embedded SQL file.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded *.sql files in lexical order.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(FS, "migrations")
	if err != nil {
		return nil, err
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		b, err := FS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: e.Name(), SQL: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DefaultGoal returns the raw JSON of the built-in 11x11 goal map.
func DefaultGoal() ([]byte, error) {
	return FS.ReadFile("goal_default.json")
}
