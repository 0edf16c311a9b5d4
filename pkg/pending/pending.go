// Package pending implements the pending-trace store: a keyed map of
// user-accepted routes, not yet committed to the board file, that act as
// extra obstacles for subsequent routes. Persistence is a synchronous,
// load-once/write-on-mutation JSON file write-then-rename.
package pending

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sync"

	"pcbroute/pkg/board"
	"pcbroute/pkg/shape"
)

// Trace is one pending (not yet persisted to the board) route.
type Trace struct {
	ID       string          `json:"id"`
	Segments [][2]float64    `json:"segments"`
	Width    float64         `json:"width"`
	Layer    board.LayerID   `json:"layer"`
	NetID    *int            `json:"net_id,omitempty"`
}

// Store is the mutable, in-memory pending-trace table. Safe for concurrent
// use; callers that need an atomic "route observes a consistent snapshot"
// view should hold the router facade's own lock around a sequence of Store
// calls (see pkg/router).
type Store struct {
	mu        sync.Mutex
	traces    map[string]Trace
	path      string
	cellCache map[blockedCellsKey]map[[2]int32]struct{}
}

// New creates an empty store with no backing file.
func New() *Store {
	return &Store{traces: make(map[string]Trace)}
}

// Load reads a store from a JSON file (an array
// of {id, segments, width, layer, net_id?}). A missing file is treated as an
// empty store so first-run constructions don't need a pre-existing file.
func Load(path string) (*Store, error) {
	s := &Store{traces: make(map[string]Trace), path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var list []Trace
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	for _, tr := range list {
		s.traces[tr.ID] = tr
	}
	return s, nil
}

// Add inserts or replaces the pending trace with the given id (duplicate ids replace:
// "Adding duplicate id replaces existing entry" — not an error).
func (s *Store) Add(tr Trace) error {
	s.mu.Lock()
	s.traces[tr.ID] = tr
	s.mu.Unlock()
	s.invalidateCellCache()
	return s.persist()
}

// Remove deletes the pending trace with the given id, reporting whether it
// existed.
func (s *Store) Remove(id string) (bool, error) {
	s.mu.Lock()
	_, ok := s.traces[id]
	if ok {
		delete(s.traces, id)
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	s.invalidateCellCache()
	return true, s.persist()
}

// Clear removes every pending trace.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.traces = make(map[string]Trace)
	s.mu.Unlock()
	s.invalidateCellCache()
	return s.persist()
}

// GetByLayer returns every pending trace on the given layer.
func (s *Store) GetByLayer(layer board.LayerID) []Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Trace
	for _, tr := range s.traces {
		if tr.Layer == layer {
			out = append(out, tr)
		}
	}
	return out
}

// List returns every pending trace, in no particular order.
func (s *Store) List() []Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Trace, 0, len(s.traces))
	for _, tr := range s.traces {
		out = append(out, tr)
	}
	return out
}

// Get returns the pending trace with the given id, if any.
func (s *Store) Get(id string) (Trace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.traces[id]
	return tr, ok
}

// blockedCellsKey keys Store.cellCache, which holds the no-exclusion
// BlockedCells result per (layer, clearance, resolution); every mutation
// clears it (see invalidateCellCache below).
type blockedCellsKey struct {
	layer      board.LayerID
	clearance  float64
	resolution float64
}

// BlockedCells returns the union of dilated cells along every segment of
// every pending trace on layer whose net is not excludeNet, at the given
// grid resolution. When excludeNet is nil the result is cached per
// (layer, clearance, resolution) and invalidated by the next mutation, per
// invalidated by the next mutation.
func (s *Store) BlockedCells(layer board.LayerID, clearance float64, resolution float64, excludeNet *int) map[[2]int32]struct{} {
	if resolution <= 0 {
		resolution = 0.025
	}
	key := blockedCellsKey{layer: layer, clearance: clearance, resolution: resolution}
	if excludeNet == nil {
		s.mu.Lock()
		if s.cellCache == nil {
			s.cellCache = make(map[blockedCellsKey]map[[2]int32]struct{})
		}
		if cached, ok := s.cellCache[key]; ok {
			s.mu.Unlock()
			return cached
		}
		s.mu.Unlock()
	}

	out := make(map[[2]int32]struct{})
	for _, tr := range s.GetByLayer(layer) {
		if excludeNet != nil && tr.NetID != nil && *tr.NetID == *excludeNet {
			continue
		}
		r := clearance + tr.Width/2
		for i := 0; i+1 < len(tr.Segments); i++ {
			dilateSegment(tr.Segments[i], tr.Segments[i+1], r, resolution, out)
		}
	}

	if excludeNet == nil {
		s.mu.Lock()
		s.cellCache[key] = out
		s.mu.Unlock()
	}
	return out
}

func dilateSegment(a, b [2]float64, r, resolution float64, out map[[2]int32]struct{}) {
	gxLo := int32(math.Floor((math.Min(a[0], b[0]) - r) / resolution))
	gxHi := int32(math.Ceil((math.Max(a[0], b[0]) + r) / resolution))
	gyLo := int32(math.Floor((math.Min(a[1], b[1]) - r) / resolution))
	gyHi := int32(math.Ceil((math.Max(a[1], b[1]) + r) / resolution))
	for gx := gxLo; gx <= gxHi; gx++ {
		for gy := gyLo; gy <= gyHi; gy++ {
			x, y := float64(gx)*resolution, float64(gy)*resolution
			if shape.TraceDistance([2]float64{x, y}, a, b, 2*r) <= 0 {
				out[[2]int32{gx, gy}] = struct{}{}
			}
		}
	}
}

func (s *Store) invalidateCellCache() {
	s.mu.Lock()
	s.cellCache = nil
	s.mu.Unlock()
}

// persist writes the whole store to disk atomically (temp file + rename),
// skipped when the store has no backing path (in-memory / test use).
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	list := make([]Trace, 0, len(s.traces))
	for _, tr := range s.traces {
		list = append(list, tr)
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".pending-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
