// internal/store/memory.go
//
// Grid storage for the local API simulator.
// Defines the Store interface and an in-memory implementation.
//
// Characteristics:
//   - Grids are kept per candidate ID; each cell holds at most one object.
//   - Every accepted write is also appended to a per-candidate log, so a
//     duplicate create (same cell twice) stays observable even though the
//     grid itself only shows the last object.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/megaverse/internal/megaverse"
)

// ErrEmptyCell is returned by Delete when nothing occupies the cell.
var ErrEmptyCell = errors.New("cell is empty")

// Op is the type of a recorded write.
type Op string

const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
)

// Write is one entry of the append-only write log.
type Write struct {
	Op     Op
	Object megaverse.Object
}

// Store defines the persistence interface for simulated megaverses.
// Implementations may be backed by memory (this file) or SQLite.
type Store interface {
	// Put occupies the object's cell, replacing whatever was there.
	Put(ctx context.Context, candidateID string, obj megaverse.Object) error

	// Delete clears a cell. Returns ErrEmptyCell if it was already empty.
	Delete(ctx context.Context, candidateID string, p megaverse.Placement) error

	// Objects lists the occupied cells in row-major order.
	Objects(ctx context.Context, candidateID string) ([]megaverse.Object, error)

	// Writes returns the full write log in arrival order.
	Writes(ctx context.Context, candidateID string) ([]Write, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu     sync.RWMutex
	grids  map[string]map[megaverse.Placement]megaverse.Object
	writes map[string][]Write
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		grids:  make(map[string]map[megaverse.Placement]megaverse.Object),
		writes: make(map[string][]Write),
	}
}

func (m *memory) Put(ctx context.Context, candidateID string, obj megaverse.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grids[candidateID]
	if !ok {
		g = make(map[megaverse.Placement]megaverse.Object)
		m.grids[candidateID] = g
	}
	g[obj.Placement] = obj
	m.writes[candidateID] = append(m.writes[candidateID], Write{Op: OpCreate, Object: obj})
	return nil
}

func (m *memory) Delete(ctx context.Context, candidateID string, p megaverse.Placement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.grids[candidateID][p]
	if !ok {
		return ErrEmptyCell
	}
	delete(m.grids[candidateID], p)
	m.writes[candidateID] = append(m.writes[candidateID], Write{Op: OpDelete, Object: obj})
	return nil
}

func (m *memory) Objects(ctx context.Context, candidateID string) ([]megaverse.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]megaverse.Object, 0, len(m.grids[candidateID]))
	for _, obj := range m.grids[candidateID] {
		out = append(out, obj)
	}
	sortRowMajor(out)
	return out, nil
}

func (m *memory) Writes(ctx context.Context, candidateID string) ([]Write, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Write(nil), m.writes[candidateID]...), nil
}
