// Package walkaround implements a continuous-space obstacle walkaround: try
// a straight shot to the goal, and on a blocking hull walk its boundary
// clockwise and counter-clockwise, picking whichever direction first
// re-sees the goal. This is the router's default backend; the grid search
// in pkg/astar is the fallback for cases this planner stalls on.
//
// The main loop is an iterative frontier advance with an explicit
// stall/no-progress abort and a visited-hull set over the continuous
// boundary walk, rather than a visited-node set over a fixed graph, since
// there is no discrete graph to search here.
package walkaround

import (
	"math"

	"pcbroute/pkg/geom"
	"pcbroute/pkg/hull"
	"pcbroute/pkg/hullmap"
)

// MaxIterations is the default safety cap on planner iterations.
const MaxIterations = 1000

// StallThreshold is the default number of consecutive no-progress steps
// before the planner aborts.
const StallThreshold = 20

// ProgressImprovement is the minimum fractional reduction in
// distance-to-goal that counts as progress.
const ProgressImprovement = 0.05

// DefaultCornerOffset is the extra stand-off added beyond half-width when
// walking a hull's vertices.
const DefaultCornerOffset = 0.1 // mm

// Config tunes one planner run; zero-value fields fall back to package
// defaults.
type Config struct {
	HalfWidth           float64
	CornerOffset        float64
	MaxIterations       int
	StallThreshold      int
	ProgressImprovement float64
	NetID               int // -1 for "no net filter"

	// Reference and ReferenceSpacing, when Reference has at least two
	// points, bias direction choice toward sub-paths that stay close to
	// Reference at distance ReferenceSpacing (companion/reference-guided
	// routing). Zero value disables the bias.
	Reference        []geom.Point
	ReferenceSpacing float64
}

func (c Config) cornerOffset() float64 {
	if c.CornerOffset > 0 {
		return c.CornerOffset
	}
	return DefaultCornerOffset
}

func (c Config) maxIterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return MaxIterations
}

func (c Config) stallThreshold() int {
	if c.StallThreshold > 0 {
		return c.StallThreshold
	}
	return StallThreshold
}

func (c Config) progressImprovement() float64 {
	if c.ProgressImprovement > 0 {
		return c.ProgressImprovement
	}
	return ProgressImprovement
}

// Result is the outcome of a Run call.
type Result struct {
	Found bool
	Path  []geom.Point
}

// Run walks from start to goal around the hulls indexed by m, ignoring hulls
// owned by cfg.NetID.
func Run(m *hullmap.Map, start, goal geom.Point, cfg Config) Result {
	path := []geom.Point{start}
	current := start
	visited := map[int]bool{}
	bestDist := geom.Dist(start, goal)
	stall := 0

	for iter := 0; iter < cfg.maxIterations(); iter++ {
		hits := m.BlockingHulls(current, goal, cfg.HalfWidth, cfg.NetID)
		if len(hits) == 0 {
			path = append(path, goal)
			return Result{Found: true, Path: path}
		}

		closest := hits[0]
		H := closest.Hull

		if visited[H.ID] {
			escaped, ok := tryEscape(m, current, goal, cfg)
			if !ok {
				return Result{}
			}
			path = append(path, escaped)
			current = escaped
			visited = map[int]bool{}
			if !checkProgress(&bestDist, &stall, current, goal, cfg) {
				return Result{}
			}
			continue
		}
		visited[H.ID] = true

		cw, cwOK := walkDirection(m, H, closest.EdgeIndex, current, goal, cfg, +1)
		ccw, ccwOK := walkDirection(m, H, closest.EdgeIndex, current, goal, cfg, -1)

		chosen, chosenOK := chooseDirection(cw, cwOK, ccw, ccwOK, goal, cfg)
		if !chosenOK {
			return Result{}
		}

		path = append(path, chosen.points...)
		current = chosen.points[len(chosen.points)-1]

		if !checkProgress(&bestDist, &stall, current, goal, cfg) {
			return Result{}
		}
	}
	return Result{}
}

// subPath is one candidate walk of a hull's boundary.
type subPath struct {
	points      []geom.Point
	reachesGoal bool
	length      float64
}

// walkDirection walks hull H's ring starting at edge startEdge, in rotational
// sense dir (+1 forward, -1 backward), offsetting each visited vertex
// outward by half-width+corner_offset, stopping as soon as the goal becomes
// visible from an offset vertex (or the whole ring has been walked once).
func walkDirection(m *hullmap.Map, H hull.Hull, startEdge int, current, goal geom.Point, cfg Config, dir int) (subPath, bool) {
	n := len(H.Ring)
	if n == 0 {
		return subPath{}, false
	}
	standoff := cfg.HalfWidth + cfg.cornerOffset()

	startVertex := startEdge
	if dir > 0 {
		startVertex = (startEdge + 1) % n
	}

	var points []geom.Point
	length := 0.0
	prev := current
	for step := 0; step < n; step++ {
		idx := (startVertex + dir*step) % n
		if idx < 0 {
			idx += n
		}
		v := H.Ring[idx]
		outward := vertexBisector(H.Ring, idx, n)
		vOffset := geom.Add(v, geom.Scale(outward, standoff))

		if blockedByOtherHull(m, vOffset, H.ID, cfg.NetID) {
			continue
		}

		points = append(points, vOffset)
		length += geom.Dist(prev, vOffset)
		prev = vOffset

		if len(m.BlockingHulls(vOffset, goal, cfg.HalfWidth, cfg.NetID)) == 0 {
			return subPath{points: points, reachesGoal: true, length: length + geom.Dist(vOffset, goal)}, true
		}
	}
	if len(points) == 0 {
		return subPath{}, false
	}
	last := points[len(points)-1]
	return subPath{points: points, reachesGoal: false, length: length + geom.Dist(last, goal)}, true
}

// vertexBisector computes the outward normal bisector at ring[idx], per
// the convention used throughout this package: for a CCW polygon, an edge's outward normal is
// its direction rotated 90 degrees clockwise, (dx,dy) -> (dy,-dx).
func vertexBisector(ring []geom.Point, idx, n int) geom.Point {
	prev := ring[(idx-1+n)%n]
	cur := ring[idx]
	next := ring[(idx+1)%n]

	e1 := geom.Normalize(geom.Sub(cur, prev))
	e2 := geom.Normalize(geom.Sub(next, cur))
	n1 := geom.Point{e1[1], -e1[0]}
	n2 := geom.Point{e2[1], -e2[0]}

	sum := geom.Add(n1, n2)
	if geom.Len(sum) < 1e-9 {
		return n1
	}
	return geom.Normalize(sum)
}

func blockedByOtherHull(m *hullmap.Map, p geom.Point, ownHullID, netID int) bool {
	h, ok := m.PointInsideAnyHull(p, netID)
	return ok && h.ID != ownHullID
}

// chooseDirection prefers whichever direction
// first reaches the goal directly; break ties by shorter total length plus
// distance to goal (plus a deviation-from-reference penalty, when cfg
// carries one); if neither reaches the goal, prefer the closer final
// vertex.
func chooseDirection(cw subPath, cwOK bool, ccw subPath, ccwOK bool, goal geom.Point, cfg Config) (subPath, bool) {
	if !cwOK && !ccwOK {
		return subPath{}, false
	}
	if cwOK && !ccwOK {
		return cw, true
	}
	if ccwOK && !cwOK {
		return ccw, true
	}
	if cw.reachesGoal && !ccw.reachesGoal {
		return cw, true
	}
	if ccw.reachesGoal && !cw.reachesGoal {
		return ccw, true
	}
	if cw.reachesGoal && ccw.reachesGoal {
		cwScore := cw.length + deviationPenalty(cw.points, cfg)
		ccwScore := ccw.length + deviationPenalty(ccw.points, cfg)
		if cwScore != ccwScore {
			if cwScore < ccwScore {
				return cw, true
			}
			return ccw, true
		}
	}
	cwLast := cw.points[len(cw.points)-1]
	ccwLast := ccw.points[len(ccw.points)-1]
	if geom.Dist(cwLast, goal) <= geom.Dist(ccwLast, goal) {
		return cw, true
	}
	return ccw, true
}

// deviationPenalty is 0.5 times the average squared deviation of points from
// ReferenceSpacing away from cfg.Reference, biasing choose-best-direction
// toward staying parallel to a reference path during companion routing.
// Zero when cfg carries no reference.
func deviationPenalty(points []geom.Point, cfg Config) float64 {
	if len(cfg.Reference) < 2 || cfg.ReferenceSpacing <= 0 || len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		dev := distToPolyline(p, cfg.Reference) - cfg.ReferenceSpacing
		sum += dev * dev
	}
	return 0.5 * sum / float64(len(points))
}

// distToPolyline returns the minimum distance from p to any segment of ref.
func distToPolyline(p geom.Point, ref []geom.Point) float64 {
	best := math.Inf(1)
	for i := 0; i+1 < len(ref); i++ {
		_, _, d2 := geom.ClosestPointOnSegment(p, ref[i], ref[i+1])
		if d2 < best {
			best = d2
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return math.Sqrt(best)
}

// tryEscape moves perpendicular to the goal direction by 3*half_width, per
// an escape maneuver, used when the closest blocking hull was already
// visited since the last escape, or since Run began (loop-break).
func tryEscape(m *hullmap.Map, current, goal geom.Point, cfg Config) (geom.Point, bool) {
	dir := geom.Normalize(geom.Sub(goal, current))
	if geom.Len(dir) < 1e-12 {
		return geom.Point{}, false
	}
	perp := geom.Point{-dir[1], dir[0]}
	dist := 3 * cfg.HalfWidth

	for _, sign := range []float64{1, -1} {
		candidate := geom.Add(current, geom.Scale(perp, sign*dist))
		if _, inside := m.PointInsideAnyHull(candidate, cfg.NetID); !inside {
			return candidate, true
		}
	}
	return geom.Point{}, false
}

// checkProgress reports whether the latest step made progress: a step counts as progress only
// if it reduces distance-to-goal by at least progress_improvement; returns
// false once the stall count reaches the stall threshold.
func checkProgress(bestDist *float64, stall *int, current, goal geom.Point, cfg Config) bool {
	d := geom.Dist(current, goal)
	if d <= *bestDist*(1-cfg.progressImprovement()) {
		*bestDist = d
		*stall = 0
		return true
	}
	*stall++
	return *stall < cfg.stallThreshold()
}
