// Package router implements the routing facade: the single entry point
// that owns the per-layer hull-map and obstacle-grid caches, the
// pending-trace store, and backend selection between the walkaround and A*
// pathfinders. A single owning struct wraps caches built once at
// construction, exposes one request/response operation guarded end-to-end,
// and reports failure via sentinel errors rather than panics.
package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"pcbroute/pkg/astar"
	"pcbroute/pkg/board"
	"pcbroute/pkg/geom"
	"pcbroute/pkg/hull"
	"pcbroute/pkg/hullmap"
	"pcbroute/pkg/obstaclegrid"
	"pcbroute/pkg/optimizer"
	"pcbroute/pkg/pending"
	"pcbroute/pkg/shape"
	"pcbroute/pkg/spatial"
	"pcbroute/pkg/walkaround"
)

// Sentinel errors for route
var (
	ErrNoRoute              = errors.New("no route found")
	ErrStartBlocked         = errors.New("start point blocked by a different-net object")
	ErrEndBlocked           = errors.New("end point blocked by a different-net object")
	ErrDifferentNetEndpoint = errors.New("start and end resolve to different nets")
)

// ViaClearanceError reports which layer a via centre overlaps a
// different-net object on ViaClearanceViolation(layer).
type ViaClearanceError struct {
	Layer board.LayerID
}

func (e *ViaClearanceError) Error() string {
	return fmt.Sprintf("via clearance violation on layer %s", e.Layer)
}

// Config holds the router's tunable constants.
type Config struct {
	Clearance              float64
	GridResolution         float64
	HeuristicWeight        float64
	TurnPenalty            map[int]float64
	MaxAstarIterations     int
	MaxWalkaroundIterations int
	StallThreshold         int
	ProgressImprovement    float64
	CornerOffset           float64
	ChamferRatio           float64
	ViaDefaultSize         float64
	ViaDefaultDrill        float64
	PreferAstar            bool // false = walkaround first (default), true = A* only backend
}

// DefaultConfig returns reasonable default tunables.
func DefaultConfig() Config {
	return Config{
		Clearance:               0.2,
		GridResolution:          obstaclegrid.DefaultResolution,
		HeuristicWeight:         astar.HeuristicWeight,
		TurnPenalty:             astar.DefaultTurnPenalty,
		MaxAstarIterations:      astar.MaxIterations,
		MaxWalkaroundIterations: walkaround.MaxIterations,
		StallThreshold:          walkaround.StallThreshold,
		ProgressImprovement:     walkaround.ProgressImprovement,
		CornerOffset:            walkaround.DefaultCornerOffset,
		ChamferRatio:            hull.DefaultChamferRatio,
		ViaDefaultSize:          0.8,
		ViaDefaultDrill:         0.4,
	}
}

// widthKey buckets a half-width to an integer micron key so the hull-map
// cache (like obstaclegrid's Dilate memoisation) is stable under float
// jitter.
type widthKey struct {
	layer      board.LayerID
	microWidth int
}

func roundMicrons(halfWidth float64) int {
	return int(math.Round(halfWidth * 1000))
}

// endpointNetTolerance is the snap distance used to resolve a route
// endpoint's net for the start/end net-agreement guard.
const endpointNetTolerance = 0.05 // mm

// Router is the routing facade.
type Router struct {
	board   *board.Board
	cfg     Config
	pending *pending.Store

	mu            sync.Mutex
	hullMaps      map[widthKey]*hullmap.Map
	obstacleGrids map[board.LayerID]*obstaclegrid.Grid

	// padsByLayer/padIndex back the point/window pad lookups used by
	// findNetAtPointLocked, CheckVia, and cellOwnedBySameNet: a uniform
	// grid over each layer's pads, queried instead of scanning every pad
	// on the layer per call.
	padsByLayer map[board.LayerID][]board.Pad
	padIndex    map[board.LayerID]*spatial.Grid
}

// New builds a Router over b, persisting pending routes through store. At
// construction, the obstacle grid for every copper layer is pre-warmed for
// the common trace radius; obstaclegrid.Build
// already performs this internally.
func New(b *board.Board, store *pending.Store, cfg Config) *Router {
	if cfg.GridResolution <= 0 {
		cfg.GridResolution = obstaclegrid.DefaultResolution
	}
	r := &Router{
		board:         b,
		cfg:           cfg,
		pending:       store,
		hullMaps:      make(map[widthKey]*hullmap.Map),
		obstacleGrids: make(map[board.LayerID]*obstaclegrid.Grid),
		padsByLayer:   make(map[board.LayerID][]board.Pad),
		padIndex:      make(map[board.LayerID]*spatial.Grid),
	}
	for _, layer := range b.Layers {
		r.obstacleGrids[layer] = obstaclegrid.Build(b, layer, cfg.Clearance, -1, cfg.GridResolution)
		pads := b.PadsOnLayer(layer)
		r.padsByLayer[layer] = pads
		r.padIndex[layer] = spatial.Build(padRecords(pads), spatial.DefaultCellSize)
	}
	return r
}

// padRecords builds one spatial.Record per pad, keyed by its index into
// pads, with a bbox of the pad's own half-extents (not yet inflated by
// clearance — callers expand their query radius instead).
func padRecords(pads []board.Pad) []spatial.Record {
	out := make([]spatial.Record, len(pads))
	for i, p := range pads {
		half := math.Max(p.Width, p.Height) / 2
		out[i] = spatial.Record{
			Handle: i,
			BBox: geom.BBox{
				MinX: p.Center[0] - half, MaxX: p.Center[0] + half,
				MinY: p.Center[1] - half, MaxY: p.Center[1] + half,
			},
		}
	}
	return out
}

// hullMapFor returns the permanent hull map for layer at the given routing
// half-width, building (and caching) it on first use.
func (r *Router) hullMapFor(layer board.LayerID, halfWidth float64) *hullmap.Map {
	key := widthKey{layer: layer, microWidth: roundMicrons(halfWidth)}
	if m, ok := r.hullMaps[key]; ok {
		return m
	}
	m := hullmap.New()
	combinedClearance := r.cfg.Clearance + halfWidth
	for _, p := range r.board.PadsOnLayer(layer) {
		m.AddPermanent(hull.PadHull(p.ToShapePad(), r.cfg.Clearance, halfWidth, p.NetID, r.cfg.ChamferRatio))
	}
	for _, tr := range r.board.TracesOnLayer(layer) {
		m.AddPermanent(hull.TraceHull(geom.Point(tr.Start), geom.Point(tr.End), tr.Width, combinedClearance, tr.NetID, hull.SourceTrace))
	}
	for _, v := range r.board.Vias {
		m.AddPermanent(hull.ViaHull(geom.Point(v.Center), v.OuterSize, combinedClearance, v.NetID))
	}
	r.hullMaps[key] = m
	return m
}

// RouteRequest is the input to Route.
type RouteRequest struct {
	Start, End       geom.Point
	Layer            board.LayerID
	Width            float64
	NetID            *int // nil = unowned / no same-net allowance
	ReferencePath    []geom.Point
	ReferenceSpacing float64
	SkipEndpointNetCheck bool
}

func (req RouteRequest) netID() int {
	if req.NetID == nil {
		return -1
	}
	return *req.NetID
}

// Route runs a single routing request end to end.
func (r *Router) Route(ctx context.Context, req RouteRequest) ([]geom.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	halfWidth := req.Width / 2
	netID := req.netID()

	hm := r.hullMapFor(req.Layer, halfWidth)

	// The net-agreement guard runs first: an endpoint on a pad or via always
	// lies inside that object's hull, so the blocked checks below would
	// otherwise answer before disagreeing nets could be reported.
	if !req.SkipEndpointNetCheck {
		startNet, startOK := r.findNetAtPointLocked(req.Start, req.Layer, endpointNetTolerance)
		endNet, endOK := r.findNetAtPointLocked(req.End, req.Layer, endpointNetTolerance)
		if startOK && endOK && startNet != endNet {
			return nil, ErrDifferentNetEndpoint
		}
	}
	if h, ok := hm.PointInsideAnyHull(req.Start, netID); ok && h.NetID != netID {
		return nil, ErrStartBlocked
	}
	if h, ok := hm.PointInsideAnyHull(req.End, netID); ok && h.NetID != netID {
		return nil, ErrEndBlocked
	}

	for _, tr := range r.pending.GetByLayer(req.Layer) {
		if req.NetID != nil && tr.NetID != nil && *tr.NetID == *req.NetID {
			continue
		}
		trNet := -1
		if tr.NetID != nil {
			trNet = *tr.NetID
		}
		hulls := make([]hull.Hull, 0, len(tr.Segments)-1)
		for i := 0; i+1 < len(tr.Segments); i++ {
			a := geom.Point{tr.Segments[i][0], tr.Segments[i][1]}
			b := geom.Point{tr.Segments[i+1][0], tr.Segments[i+1][1]}
			hulls = append(hulls, hull.TraceHull(a, b, tr.Width, r.cfg.Clearance+halfWidth, trNet, hull.SourcePending))
		}
		hm.AddPending(tr.ID, hulls)
	}
	defer hm.ClearPending()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(req.ReferencePath) >= 2 {
		return r.routeGuided(hm, req, halfWidth, netID)
	}

	wCfg := walkaround.Config{
		HalfWidth:           halfWidth,
		CornerOffset:        r.cfg.CornerOffset,
		MaxIterations:       r.cfg.MaxWalkaroundIterations,
		StallThreshold:       r.cfg.StallThreshold,
		ProgressImprovement: r.cfg.ProgressImprovement,
		NetID:               netID,
	}

	checker := hullClearance{hm: hm, halfWidth: halfWidth, netID: netID}

	if !r.cfg.PreferAstar {
		res := walkaround.Run(hm, req.Start, req.End, wCfg)
		if res.Found {
			return optimizer.Optimize(res.Path, checker), nil
		}
	}

	path, ok := r.runAstar(req, halfWidth, netID)
	if !ok {
		return nil, ErrNoRoute
	}
	return optimizer.Optimize(path, checker), nil
}

// routeGuided implements reference-guided companion routing: derive one
// waypoint per reference corner, offset along its bisector on the side
// start lies on, then thread the walkaround planner start -> waypoints...
// -> end, skipping the optimizer.
func (r *Router) routeGuided(hm *hullmap.Map, req RouteRequest, halfWidth float64, netID int) ([]geom.Point, error) {
	waypoints := companionWaypoints(req.ReferencePath, req.ReferenceSpacing, req.Start)

	legs := append([]geom.Point{req.Start}, waypoints...)
	legs = append(legs, req.End)

	wCfg := walkaround.Config{
		HalfWidth:           halfWidth,
		CornerOffset:        r.cfg.CornerOffset,
		MaxIterations:       r.cfg.MaxWalkaroundIterations,
		StallThreshold:       r.cfg.StallThreshold,
		ProgressImprovement: r.cfg.ProgressImprovement,
		NetID:               netID,
		Reference:           req.ReferencePath,
		ReferenceSpacing:    req.ReferenceSpacing,
	}

	var full []geom.Point
	for i := 0; i+1 < len(legs); i++ {
		res := walkaround.Run(hm, legs[i], legs[i+1], wCfg)
		if !res.Found {
			return nil, ErrNoRoute
		}
		if i == 0 {
			full = append(full, res.Path...)
		} else {
			full = append(full, res.Path[1:]...)
		}
	}
	return full, nil
}

// companionWaypoints derives one offset waypoint per corner of reference:
// offset along the corner bisector (or edge perpendicular at endpoints) by
// spacing, on the side start lies on.
func companionWaypoints(reference []geom.Point, spacing float64, start geom.Point) []geom.Point {
	side := referenceSide(reference, start)
	out := make([]geom.Point, len(reference))
	for i, c := range reference {
		var normal geom.Point
		switch {
		case i == 0:
			normal = edgeOutwardNormal(reference[0], reference[1])
		case i == len(reference)-1:
			normal = edgeOutwardNormal(reference[i-1], reference[i])
		default:
			n1 := edgeOutwardNormal(reference[i-1], reference[i])
			n2 := edgeOutwardNormal(reference[i], reference[i+1])
			sum := geom.Add(n1, n2)
			if geom.Len(sum) < 1e-9 {
				normal = n1
			} else {
				normal = geom.Normalize(sum)
			}
		}
		out[i] = geom.Add(c, geom.Scale(normal, side*spacing))
	}
	return out
}

// edgeOutwardNormal rotates edge direction a->b 90 degrees clockwise,
// (dx,dy) -> (dy,-dx): the outward normal of an edge of a CCW polygon.
func edgeOutwardNormal(a, b geom.Point) geom.Point {
	dir := geom.Normalize(geom.Sub(b, a))
	return geom.Point{dir[1], -dir[0]}
}

// referenceSide reports +1 or -1 depending on which side of the reference
// path's first segment start lies, matching edgeOutwardNormal's convention.
func referenceSide(reference []geom.Point, start geom.Point) float64 {
	if len(reference) < 2 {
		return 1
	}
	side := geom.LineSide(start, reference[0], reference[1])
	if side > 0 {
		return -1
	}
	return 1
}

// runAstar builds the blocking-cell adapter and runs the grid fallback,
// returning the path in world coordinates.
func (r *Router) runAstar(req RouteRequest, halfWidth float64, netID int) ([]geom.Point, bool) {
	grid := r.obstacleGrids[req.Layer]
	resolution := r.cfg.GridResolution

	toCell := func(p geom.Point) astar.Cell {
		return astar.Cell{
			X: int32(math.Round(p[0] / resolution)),
			Y: int32(math.Round(p[1] / resolution)),
		}
	}

	extra := r.pending.BlockedCells(req.Layer, r.cfg.Clearance+halfWidth, resolution, req.NetID)
	allowed := r.sameNetAllowedCells(req, halfWidth, netID, resolution)

	b := &gridBlocker{
		grid:    grid,
		radius:  r.cfg.Clearance + halfWidth,
		extra:   extra,
		allowed: allowed,
	}

	cfg := astar.Config{
		HeuristicWeight: r.cfg.HeuristicWeight,
		TurnPenalty:     r.cfg.TurnPenalty,
		MaxIterations:   r.cfg.MaxAstarIterations,
	}

	res := astar.Run(toCell(req.Start), toCell(req.End), b, cfg)
	if !res.Found {
		return nil, false
	}
	out := make([]geom.Point, len(res.Cells))
	for i, c := range res.Cells {
		out[i] = geom.Point{float64(c.X) * resolution, float64(c.Y) * resolution}
	}
	return out, true
}

// sameNetAllowedCells builds the same-net allow-list: cells on same-net
// pads/traces/vias. Every same-net pad, rotated or not, uses the circular
// inflation rather than its exact shape: this spans a superset of the pad's real
// footprint, then any cell also blocked by a different-net object is
// subtracted back out so that overlap never wins.
func (r *Router) sameNetAllowedCells(req RouteRequest, halfWidth float64, netID int, resolution float64) map[[2]int32]struct{} {
	allowed := make(map[[2]int32]struct{})
	if netID < 0 {
		return allowed
	}
	r1 := r.cfg.Clearance + halfWidth
	for _, p := range r.board.PadsOnLayer(req.Layer) {
		if p.NetID != netID {
			continue
		}
		fillDiskCells(p.Center[0], p.Center[1], math.Max(p.Width, p.Height)/2+r1, resolution, allowed)
	}
	for _, tr := range r.board.TracesOnLayer(req.Layer) {
		if tr.NetID != netID {
			continue
		}
		fillSegmentCells(tr.Start, tr.End, tr.Width/2+r1, resolution, allowed)
	}
	for _, v := range r.board.Vias {
		if v.NetID != netID {
			continue
		}
		fillDiskCells(v.Center[0], v.Center[1], v.OuterSize/2+r1, resolution, allowed)
	}

	grid := r.obstacleGrids[req.Layer]
	for cell := range allowed {
		if grid.IsBlockedCell(cell[0], cell[1]) && !r.cellOwnedBySameNet(cell, req.Layer, netID, resolution) {
			delete(allowed, cell)
		}
	}
	return allowed
}

// cellOwnedBySameNet reports whether the world point at cell is within
// clearance of a same-net pad's exact shape, matching the same exact-shape
// test the obstacle grid itself used to mark the cell blocked: this avoids
// subtracting a cell the grid only marks blocked because of the net's own
// pad geometry. Queries the layer's pad index instead of scanning every pad
// on the layer.
func (r *Router) cellOwnedBySameNet(cell [2]int32, layer board.LayerID, netID int, resolution float64) bool {
	x, y := float64(cell[0])*resolution, float64(cell[1])*resolution
	pt := geom.Point{x, y}
	pads := r.padsByLayer[layer]
	for _, h := range r.padIndex[layer].QueryPoint(pt, r.cfg.Clearance) {
		p := pads[h]
		if p.NetID != netID {
			continue
		}
		if p.ToShapePad().Distance(pt) <= r.cfg.Clearance {
			return true
		}
	}
	return false
}

// fillDiskCells marks every cell within r of (cx,cy); exact for vias, which
// are circular.
func fillDiskCells(cx, cy, r, resolution float64, out map[[2]int32]struct{}) {
	gr := int32(math.Ceil(r / resolution))
	gcx, gcy := int32(math.Round(cx/resolution)), int32(math.Round(cy/resolution))
	r2 := r * r
	for dx := -gr; dx <= gr; dx++ {
		for dy := -gr; dy <= gr; dy++ {
			x := float64(gcx+dx) * resolution
			y := float64(gcy+dy) * resolution
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r2 {
				out[[2]int32{gcx + dx, gcy + dy}] = struct{}{}
			}
		}
	}
}

func fillSegmentCells(a, b [2]float64, r, resolution float64, out map[[2]int32]struct{}) {
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

// gridBlocker adapts the obstacle grid's dilated base set, the pending
// store's extra-block set, and the same-net allow-list to astar.Blocker.
type gridBlocker struct {
	grid    *obstaclegrid.Grid
	radius  float64
	extra   map[[2]int32]struct{}
	allowed map[[2]int32]struct{}
}

func (b *gridBlocker) Blocked(x, y int32) bool {
	cell := [2]int32{x, y}
	if _, ok := b.allowed[cell]; ok {
		return false
	}
	if b.grid.IsBlockedDilatedCell(x, y, b.radius) {
		return true
	}
	_, ok := b.extra[cell]
	return ok
}

// hullClearance adapts a hull map to optimizer.ClearanceChecker.
type hullClearance struct {
	hm        *hullmap.Map
	halfWidth float64
	netID     int
}

func (c hullClearance) Clear(a, b geom.Point) bool {
	return len(c.hm.BlockingHulls(a, b, c.halfWidth, c.netID)) == 0
}

// CheckVia checks a proposed via placement: for every copper
// layer, report the first on which the via's (radius+clearance) disc
// overlaps a different-net pad, trace, or via. Pad overlap is the pad's
// exact shape distance, not a bounding-circle approximation.
func (r *Router) CheckVia(center geom.Point, radius float64, netID *int) (ok bool, layer board.LayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := -1
	if netID != nil {
		want = *netID
	}
	reach := radius + r.cfg.Clearance

	for _, l := range r.board.Layers {
		pads := r.padsByLayer[l]
		for _, h := range r.padIndex[l].QueryPoint(center, reach) {
			p := pads[h]
			if p.NetID == want {
				continue
			}
			if p.ToShapePad().Distance(center) < reach {
				return false, l
			}
		}
		for _, tr := range r.board.TracesOnLayer(l) {
			if tr.NetID == want {
				continue
			}
			_, _, distSq := geom.ClosestPointOnSegment(center, geom.Point(tr.Start), geom.Point(tr.End))
			if distSq < (reach+tr.Width/2)*(reach+tr.Width/2) {
				return false, l
			}
		}
		for _, v := range r.board.Vias {
			if v.NetID == want {
				continue
			}
			if geom.Dist(center, geom.Point(v.Center)) < reach+v.OuterSize/2 {
				return false, l
			}
		}
	}
	return true, ""
}

// FindNetAtPoint resolves the net owning the nearest pad or via to a point.
func (r *Router) FindNetAtPoint(x, y float64, layer board.LayerID, tolerance float64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findNetAtPointLocked(geom.Point{x, y}, layer, tolerance)
}

func (r *Router) findNetAtPointLocked(p geom.Point, layer board.LayerID, tolerance float64) (int, bool) {
	best := tolerance
	found := -1
	ok := false
	pads := r.padsByLayer[layer]
	for _, h := range r.padIndex[layer].QueryPoint(p, tolerance) {
		pad := pads[h]
		d := geom.Dist(p, geom.Point(pad.Center))
		if d <= best {
			best, found, ok = d, pad.NetID, true
		}
	}
	for _, v := range r.board.Vias {
		d := geom.Dist(p, geom.Point(v.Center))
		if d <= best {
			best, found, ok = d, v.NetID, true
		}
	}
	return found, ok
}

// RegisterTrace inserts or replaces a pending trace (the register
// operation); duplicate ids replace silently
func (r *Router) RegisterTrace(tr pending.Trace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.Add(tr)
}

// RemoveTrace deletes a pending trace by id, reporting whether it existed.
func (r *Router) RemoveTrace(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.Remove(id)
}

// ClearTraces removes every pending trace.
func (r *Router) ClearTraces() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.Clear()
}

// ListTraces returns every pending trace.
func (r *Router) ListTraces() []pending.Trace {
	return r.pending.List()
}
