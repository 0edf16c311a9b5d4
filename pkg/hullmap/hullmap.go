// Package hullmap implements the per-layer hull map: a
// collection of permanent hulls (pads, static traces, vias) plus a dynamic
// set of pending hulls, indexed for "which hulls does this segment cross"
// and "is this point inside any different-net hull" queries.
//
// The index is backed by github.com/tidwall/rtree rather than the
// hand-rolled grid in pkg/spatial: hulls churn far more than a static set of
// board features would, since every route call adds and removes pending
// hulls, and an R-tree amortizes that churn better than rebuilding a sorted
// slice on every mutation. Hulls are stored and returned as integer handles
// into the owning Map's hull slice — the tree never holds polygon data
// itself.
package hullmap

import (
	"sort"

	"github.com/tidwall/rtree"

	"pcbroute/pkg/geom"
	"pcbroute/pkg/hull"
)

// Map is the hull index for a single copper layer.
type Map struct {
	permanent  []hull.Hull
	pending    []hull.Hull
	pendingIDs []string // parallel to pending, source pending-trace id
	tree       rtree.RTreeG[handle]
	nextHullID int
}

type handle struct {
	idx       int
	isPending bool
}

// New creates an empty hull map for one layer.
func New() *Map {
	return &Map{}
}

// AddPermanent inserts a permanent (pad/trace/via) hull. Call once at
// construction, before any queries; permanent hulls are never removed.
func (m *Map) AddPermanent(h hull.Hull) {
	m.nextHullID++
	h.ID = m.nextHullID
	idx := len(m.permanent)
	m.permanent = append(m.permanent, h)
	m.tree.Insert([2]float64{h.BBox.MinX, h.BBox.MinY}, [2]float64{h.BBox.MaxX, h.BBox.MaxY}, handle{idx: idx})
}

// AddPending inserts the hulls for one pending trace's segments, recording
// its id alongside each hull. Pending hulls are removed all together by
// ClearPending; there is no per-id removal.
func (m *Map) AddPending(id string, hulls []hull.Hull) {
	for _, h := range hulls {
		m.nextHullID++
		h.ID = m.nextHullID
		idx := len(m.pending)
		m.pending = append(m.pending, h)
		m.pendingIDs = append(m.pendingIDs, id)
		m.tree.Insert([2]float64{h.BBox.MinX, h.BBox.MinY}, [2]float64{h.BBox.MaxX, h.BBox.MaxY}, handle{idx: idx, isPending: true})
	}
}

// ClearPending removes every pending hull from the index.
func (m *Map) ClearPending() {
	for i, h := range m.pending {
		m.tree.Delete([2]float64{h.BBox.MinX, h.BBox.MinY}, [2]float64{h.BBox.MaxX, h.BBox.MaxY}, handle{idx: i, isPending: true})
	}
	m.pending = nil
	m.pendingIDs = nil
}

// hullAt resolves a handle to its Hull value.
func (m *Map) hullAt(h handle) hull.Hull {
	if h.isPending {
		return m.pending[h.idx]
	}
	return m.permanent[h.idx]
}

// BlockingHit is one hull crossed by a queried segment.
type BlockingHit struct {
	Hull      hull.Hull
	Point     geom.Point
	EdgeIndex int
	T         float64 // parametric position along the query segment
}

// BlockingHulls returns every hull (not owned by ignoreNet) whose boundary
// the centreline segment (start,end) crosses, or that already contains
// start, ordered by distance from start (increasing T). halfWidth only
// widens the candidate search window; the hulls themselves already carry
// the trace half-width in their inflation.
func (m *Map) BlockingHulls(start, end geom.Point, halfWidth float64, ignoreNet int) []BlockingHit {
	win := geom.SegmentBBox(start, end, halfWidth)
	var hits []BlockingHit

	m.tree.Search([2]float64{win.MinX, win.MinY}, [2]float64{win.MaxX, win.MaxY},
		func(min, max [2]float64, h handle) bool {
			hu := m.hullAt(h)
			if hu.NetID == ignoreNet {
				return true
			}
			best := -1.0
			var bestPt geom.Point
			bestEdge := -1
			n := len(hu.Ring)
			for i := 0; i < n; i++ {
				j := (i + 1) % n
				r := geom.IntersectSegments(start, end, hu.Ring[i], hu.Ring[j])
				if r.Ok && (bestEdge == -1 || r.TA < best) {
					best = r.TA
					bestPt = r.Point
					bestEdge = i
				}
			}
			if bestEdge == -1 && geom.PointInRing(start, hu.Ring) {
				// Start already inside the hull: report an immediate block
				// at t=0 so callers treat it as blocking from the outset.
				best, bestPt, bestEdge = 0, start, 0
			}
			if bestEdge >= 0 {
				hits = append(hits, BlockingHit{Hull: hu, Point: bestPt, EdgeIndex: bestEdge, T: best})
			}
			return true
		})

	sort.Slice(hits, func(i, j int) bool { return hits[i].T < hits[j].T })
	return hits
}

// PointInsideAnyHull reports the first hull (not owned by ignoreNet)
// containing point, if any.
func (m *Map) PointInsideAnyHull(point geom.Point, ignoreNet int) (hull.Hull, bool) {
	win := geom.BBox{MinX: point[0] - 1e-6, MinY: point[1] - 1e-6, MaxX: point[0] + 1e-6, MaxY: point[1] + 1e-6}
	var found hull.Hull
	ok := false
	m.tree.Search([2]float64{win.MinX, win.MinY}, [2]float64{win.MaxX, win.MaxY},
		func(min, max [2]float64, h handle) bool {
			hu := m.hullAt(h)
			if hu.NetID == ignoreNet {
				return true
			}
			if geom.PointInRing(point, hu.Ring) {
				found, ok = hu, true
				return false
			}
			return true
		})
	return found, ok
}

// PendingCount returns the number of currently indexed pending hulls.
func (m *Map) PendingCount() int { return len(m.pending) }
