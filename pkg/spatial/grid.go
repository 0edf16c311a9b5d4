// Package spatial implements a uniform-grid spatial index: a flat,
// sorted-by-cell-key slice of (cell, record) entries, queried by binary
// search. A hand-rolled grid beats a general-purpose index when every query
// is a small, fixed-radius neighbourhood scan.
package spatial

import (
	"math"
	"sort"

	"pcbroute/pkg/geom"
)

// DefaultCellSize is a typical cell size for this index.
const DefaultCellSize = 1.5 // mm

// Record is a single indexed object: its bounding box and an opaque handle
// the caller uses to resolve it back to real data (an index into the
// caller's own object slice, never a pointer into it — see the hull
// ownership design note).
type Record struct {
	Handle int
	BBox   geom.BBox
}

type cellEntry struct {
	key    uint64
	handle int
}

// Grid is a uniform-grid index over Records, built once and queried many
// times. pkg/router builds one per layer over that layer's pads at
// construction and never rebuilds it.
type Grid struct {
	cellSize float64
	entries  []cellEntry
	records  []Record // handle -> record, handle is its index here
}

func cellOf(cellSize, x, y float64) (int32, int32) {
	return int32(math.Floor(x / cellSize)), int32(math.Floor(y / cellSize))
}

func cellKey(cx, cy int32) uint64 {
	return uint64(uint32(cx))<<32 | uint64(uint32(cy))
}

// Build constructs a Grid from a set of records. cellSize <= 0 uses
// DefaultCellSize.
func Build(records []Record, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	g := &Grid{cellSize: cellSize, records: records}
	for h, r := range records {
		cxLo, cyLo := cellOf(cellSize, r.BBox.MinX, r.BBox.MinY)
		cxHi, cyHi := cellOf(cellSize, r.BBox.MaxX, r.BBox.MaxY)
		for cx := cxLo; cx <= cxHi; cx++ {
			for cy := cyLo; cy <= cyHi; cy++ {
				g.entries = append(g.entries, cellEntry{key: cellKey(cx, cy), handle: h})
			}
		}
	}
	sort.Slice(g.entries, func(i, j int) bool { return g.entries[i].key < g.entries[j].key })
	return g
}

func (g *Grid) cellRange(key uint64) []cellEntry {
	lo := sort.Search(len(g.entries), func(i int) bool { return g.entries[i].key >= key })
	if lo >= len(g.entries) || g.entries[lo].key != key {
		return nil
	}
	hi := sort.Search(len(g.entries), func(i int) bool { return g.entries[i].key > key })
	return g.entries[lo:hi]
}

// QueryWindow returns the deduplicated set of record handles whose bbox
// overlaps win.
func (g *Grid) QueryWindow(win geom.BBox) []int {
	if g == nil {
		return nil
	}
	cxLo, cyLo := cellOf(g.cellSize, win.MinX, win.MinY)
	cxHi, cyHi := cellOf(g.cellSize, win.MaxX, win.MaxY)

	seen := make(map[int]struct{})
	var out []int
	for cx := cxLo; cx <= cxHi; cx++ {
		for cy := cyLo; cy <= cyHi; cy++ {
			for _, e := range g.cellRange(cellKey(cx, cy)) {
				if _, ok := seen[e.handle]; ok {
					continue
				}
				if !g.records[e.handle].BBox.Overlaps(win) {
					continue
				}
				seen[e.handle] = struct{}{}
				out = append(out, e.handle)
			}
		}
	}
	return out
}

// QueryPoint returns every record handle whose bbox contains p, inflated by
// radius r.
func (g *Grid) QueryPoint(p geom.Point, r float64) []int {
	win := geom.BBox{MinX: p[0] - r, MaxX: p[0] + r, MinY: p[1] - r, MaxY: p[1] + r}
	return g.QueryWindow(win)
}

// QuerySegment returns every record handle whose bbox overlaps segment
// (a,b) expanded by halfWidth.
func (g *Grid) QuerySegment(a, b geom.Point, halfWidth float64) []int {
	return g.QueryWindow(geom.SegmentBBox(a, b, halfWidth))
}
