// Package obstaclegrid implements the fixed-resolution blocked-cell
// representation used by the A* grid backend: flat integer-keyed maps over
// pointer-heavy trees, with a "dilate by any trace radius" result memoised
// by integer grid-radius (whole cells) to avoid float instability.
package obstaclegrid

import (
	"math"

	"pcbroute/pkg/board"
	"pcbroute/pkg/geom"
	"pcbroute/pkg/shape"
)

// DefaultResolution is the default grid cell size.
const DefaultResolution = 0.025 // mm

// PrewarmRadius is the common trace half-width pre-warmed at construction.
const PrewarmRadius = 0.125 // mm

type cellKey int64

func packCell(gx, gy int32) cellKey {
	return cellKey(gx)<<32 | cellKey(uint32(gy))
}

// Grid is the per-layer obstacle grid.
type Grid struct {
	Resolution float64
	GxMin, GyMin, GxMax, GyMax int32

	blocked   map[cellKey]struct{}
	dilations map[int]map[cellKey]struct{} // keyed by round(radius/resolution)
}

func worldToCell(resolution, x, y float64) (int32, int32) {
	return int32(math.Round(x / resolution)), int32(math.Round(y / resolution))
}

// Build constructs the obstacle grid for one layer: every pad, static
// trace, via, and edge-cut line on the layer is dilated by
// clearance+shape_half_extent and marked blocked. Pads owned by
// allowedNetID (if >= 0) are skipped. Edge-cut lines are dilated by
// clearance only and that band is marked blocked; cells further outside
// the outline are not marked.
func Build(b *board.Board, layer board.LayerID, clearance float64, allowedNetID int, resolution float64) *Grid {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	bb := b.Bounds().Inflated(1.0)
	g := &Grid{
		Resolution: resolution,
		blocked:    make(map[cellKey]struct{}),
		dilations:  make(map[int]map[cellKey]struct{}),
	}
	g.GxMin, g.GyMin = worldToCell(resolution, bb.MinX, bb.MinY)
	g.GxMax, g.GyMax = worldToCell(resolution, bb.MaxX, bb.MaxY)

	for _, p := range b.PadsOnLayer(layer) {
		if allowedNetID >= 0 && p.NetID == allowedNetID {
			continue
		}
		g.fillPad(p, clearance)
	}
	for _, tr := range b.TracesOnLayer(layer) {
		g.fillCapsule(tr.Start, tr.End, clearance+tr.Width/2)
	}
	for _, v := range b.Vias {
		g.fillDisk(v.Center[0], v.Center[1], clearance+v.OuterSize/2)
	}
	g.fillEdgeCuts(b, clearance)

	g.dilations[roundRadius(resolution, PrewarmRadius)] = g.dilate(PrewarmRadius)
	return g
}

func roundRadius(resolution, radius float64) int {
	return int(math.Round(radius / resolution))
}

func (g *Grid) fillDisk(cx, cy, r float64) {
	gr := int32(math.Ceil(r / g.Resolution))
	gcx, gcy := worldToCell(g.Resolution, cx, cy)
	r2 := r * r
	for dx := -gr; dx <= gr; dx++ {
		for dy := -gr; dy <= gr; dy++ {
			x := float64(gcx+dx) * g.Resolution
			y := float64(gcy+dy) * g.Resolution
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r2 {
				g.blocked[packCell(gcx+dx, gcy+dy)] = struct{}{}
			}
		}
	}
}

// fillPad blocks every cell whose exact shape distance to p is within
// clearance, using p's own distance function (circle/rect/roundrect/oval)
// rather than a bounding-circle approximation. The disc of radius
// clearance+max(Width,Height)/2 still bounds the scan window; only the
// per-cell membership test is shape-exact.
func (g *Grid) fillPad(p board.Pad, clearance float64) {
	sp := p.ToShapePad()
	scanR := clearance + math.Max(p.Width, p.Height)/2
	gr := int32(math.Ceil(scanR / g.Resolution))
	gcx, gcy := worldToCell(g.Resolution, p.Center[0], p.Center[1])
	for dx := -gr; dx <= gr; dx++ {
		for dy := -gr; dy <= gr; dy++ {
			x := float64(gcx+dx) * g.Resolution
			y := float64(gcy+dy) * g.Resolution
			if sp.Distance(geom.Point{x, y}) <= clearance {
				g.blocked[packCell(gcx+dx, gcy+dy)] = struct{}{}
			}
		}
	}
}

func (g *Grid) fillCapsule(a, b [2]float64, r float64) {
	gxLo, gyLo := worldToCell(g.Resolution, math.Min(a[0], b[0])-r, math.Min(a[1], b[1])-r)
	gxHi, gyHi := worldToCell(g.Resolution, math.Max(a[0], b[0])+r, math.Max(a[1], b[1])+r)
	for gx := gxLo; gx <= gxHi; gx++ {
		for gy := gyLo; gy <= gyHi; gy++ {
			x := float64(gx) * g.Resolution
			y := float64(gy) * g.Resolution
			if shape.TraceDistance([2]float64{x, y}, a, b, 2*r) <= 0 {
				g.blocked[packCell(gx, gy)] = struct{}{}
			}
		}
	}
}

// fillEdgeCuts blocks a clearance-wide band around each edge-cut line.
// Cells beyond that band, inside or outside the outline, are not marked.
func (g *Grid) fillEdgeCuts(b *board.Board, clearance float64) {
	for _, ec := range b.EdgeCuts {
		r := clearance
		gxLo, gyLo := worldToCell(g.Resolution, math.Min(ec.Start[0], ec.End[0])-r, math.Min(ec.Start[1], ec.End[1])-r)
		gxHi, gyHi := worldToCell(g.Resolution, math.Max(ec.Start[0], ec.End[0])+r, math.Max(ec.Start[1], ec.End[1])+r)
		for gx := gxLo; gx <= gxHi; gx++ {
			for gy := gyLo; gy <= gyHi; gy++ {
				x := float64(gx) * g.Resolution
				y := float64(gy) * g.Resolution
				if shape.TraceDistance([2]float64{x, y}, ec.Start, ec.End, 2*r) <= 0 {
					g.blocked[packCell(gx, gy)] = struct{}{}
				}
			}
		}
	}
}

// IsBlockedCell reports whether (gx,gy) is a base-blocked cell (no
// dilation).
func (g *Grid) IsBlockedCell(gx, gy int32) bool {
	_, ok := g.blocked[packCell(gx, gy)]
	return ok
}

// IsBlocked reports whether the cell nearest (x,y), optionally inflated by
// radius, is blocked.
func (g *Grid) IsBlocked(x, y, radius float64) bool {
	gx, gy := worldToCell(g.Resolution, x, y)
	if radius <= 0 {
		return g.IsBlockedCell(gx, gy)
	}
	dilated := g.Dilate(radius)
	_, ok := dilated[packCell(gx, gy)]
	return ok
}

// IsBlockedDilatedCell reports whether grid cell (gx,gy) is blocked once the
// base obstacle set is dilated by radius, memoised the same way Dilate is.
// Cell coordinates are in this grid's own resolution; callers combining this
// with pkg/astar must search on a grid of the same resolution.
func (g *Grid) IsBlockedDilatedCell(gx, gy int32, radius float64) bool {
	_, ok := g.Dilate(radius)[packCell(gx, gy)]
	return ok
}

// GetBounds returns the grid's cell-space bounds.
func (g *Grid) GetBounds() (gxMin, gyMin, gxMax, gyMax int32) {
	return g.GxMin, g.GyMin, g.GxMax, g.GyMax
}

// Dilate returns the Minkowski expansion of the base blocked set by radius
// (a disk structuring element), memoised by integer grid-radius so repeat
// queries at the same trace width are free.
func (g *Grid) Dilate(radius float64) map[cellKey]struct{} {
	key := roundRadius(g.Resolution, radius)
	if cached, ok := g.dilations[key]; ok {
		return cached
	}
	d := g.dilate(radius)
	g.dilations[key] = d
	return d
}

func (g *Grid) dilate(radius float64) map[cellKey]struct{} {
	gr := int32(math.Ceil(radius / g.Resolution))
	r2 := radius * radius
	var offsets [][2]int32
	for dx := -gr; dx <= gr; dx++ {
		for dy := -gr; dy <= gr; dy++ {
			if float64(dx)*float64(dx)*g.Resolution*g.Resolution+float64(dy)*float64(dy)*g.Resolution*g.Resolution <= r2 {
				offsets = append(offsets, [2]int32{dx, dy})
			}
		}
	}
	out := make(map[cellKey]struct{}, len(g.blocked))
	for key := range g.blocked {
		gx, gy := int32(key>>32), int32(uint32(key))
		for _, o := range offsets {
			out[packCell(gx+o[0], gy+o[1])] = struct{}{}
		}
	}
	return out
}
