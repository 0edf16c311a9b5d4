// Package optimizer implements a nine-pass polyline cleanup: collapse a raw
// walkaround or grid path into the shortest sequence whose every segment
// runs along a multiple of 45 degrees, without crossing any hull the caller
// cares about. An explicit, ordered set of named passes runs over the point
// sequence rather than a single monolithic simplifier.
package optimizer

import (
	"math"

	"pcbroute/pkg/geom"
)

// dedupEps is the distance below which consecutive points are merged.
const dedupEps = 0.05 // mm

// angleEps is the tolerance used to test "is this direction a 45 multiple".
const angleEps = 1e-3 // mm, compared against |dx|,|dy| or their difference

// collinearDegrees is the maximum angle difference treated as collinear.
const collinearDegrees = 5.0

// directionChangeDegrees is the turn angle above which pass 7 tries a
// dogleg replacement.
const directionChangeDegrees = 30.0

// shortSegmentLength is the minimum segment length pass 8 tolerates.
const shortSegmentLength = 0.2 // mm

// ClearanceChecker reports whether a straight segment is free of clearance
// violations for the trace width the optimizer was invoked with. In unit
// tests (or any caller with no hull map handy) a nil ClearanceChecker is
// treated as "everything is clear"
type ClearanceChecker interface {
	Clear(a, b geom.Point) bool
}

type alwaysClear struct{}

func (alwaysClear) Clear(a, b geom.Point) bool { return true }

// Optimize runs the nine ordered passes over points and returns the
// simplified polyline. points must have at least 2 elements; fewer are
// returned unchanged.
func Optimize(points []geom.Point, checker ClearanceChecker) []geom.Point {
	if len(points) < 2 {
		return points
	}
	if checker == nil {
		checker = alwaysClear{}
	}

	p := dedup(points)
	p = enforce45(p, checker)
	p = mergeCollinear(p)
	p = removeBacktracks(p, checker)
	p = eliminateAxisReversals(p, checker)
	p = shortcutVisibleCorners(p, checker)
	p = minimizeDirectionChanges(p, checker)
	p = dropShortSegments(p, checker)
	p = mergeCollinear(p)
	return p
}

// dedup drops consecutive points within dedupEps of each other, pass 1.
// The last point is never dropped.
func dedup(points []geom.Point) []geom.Point {
	out := []geom.Point{points[0]}
	for i := 1; i < len(points); i++ {
		if i == len(points)-1 {
			// Keep the last point; drop the kept point it duplicates instead.
			if len(out) > 1 && geom.Dist(out[len(out)-1], points[i]) < dedupEps {
				out[len(out)-1] = points[i]
			} else {
				out = append(out, points[i])
			}
			continue
		}
		if geom.Dist(out[len(out)-1], points[i]) < dedupEps {
			continue
		}
		out = append(out, points[i])
	}
	if len(out) < 2 || out[len(out)-1] != points[len(points)-1] {
		out = append(out, points[len(points)-1])
	}
	return out
}

// enforce45 inserts one dogleg breakpoint into every segment that is not a
// 45-degree multiple, pass 2.
func enforce45(points []geom.Point, checker ClearanceChecker) []geom.Point {
	out := []geom.Point{points[0]}
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		dx, dy := b[0]-a[0], b[1]-a[1]
		if geom.Angle45Multiple(dx, dy, angleEps) {
			out = append(out, b)
			continue
		}
		mid, ok := dogleg(a, b, checker)
		if ok {
			out = append(out, mid, b)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// dogleg returns a single breakpoint splitting a->b into a diagonal run and
// an axis-aligned run (in whichever order keeps both legs clearance-free),
// pass 2's construction.
func dogleg(a, b geom.Point, checker ClearanceChecker) (geom.Point, bool) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	adx, ady := math.Abs(dx), math.Abs(dy)
	sx, sy := sign(dx), sign(dy)

	var diagRun, axisRun float64
	if adx >= ady {
		diagRun = ady
		axisRun = adx - ady
	} else {
		diagRun = adx
		axisRun = ady - adx
	}

	diagPoint := geom.Point{a[0] + sx*diagRun, a[1] + sy*diagRun}
	var axisPoint geom.Point
	if adx >= ady {
		axisPoint = geom.Point{a[0] + sx*axisRun, a[1]}
	} else {
		axisPoint = geom.Point{a[0], a[1] + sy*axisRun}
	}

	// Variant A: diagonal leg first, then axis-aligned leg to b.
	if checker.Clear(a, diagPoint) && checker.Clear(diagPoint, b) {
		return diagPoint, true
	}
	// Variant B: axis-aligned leg first, then diagonal leg to b.
	if checker.Clear(a, axisPoint) && checker.Clear(axisPoint, b) {
		return axisPoint, true
	}
	return geom.Point{}, false
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// mergeCollinear drops the middle point of any three consecutive points
// whose direction differs by less than collinearDegrees, passes 3 and 9.
func mergeCollinear(points []geom.Point) []geom.Point {
	if len(points) < 3 {
		return points
	}
	out := []geom.Point{points[0]}
	for i := 1; i < len(points)-1; i++ {
		prev := out[len(out)-1]
		cur := points[i]
		next := points[i+1]
		if angleBetween(geom.Sub(cur, prev), geom.Sub(next, cur)) < collinearDegrees {
			continue
		}
		out = append(out, cur)
	}
	out = append(out, points[len(points)-1])
	return out
}

func angleBetween(u, v geom.Point) float64 {
	lu, lv := geom.Len(u), geom.Len(v)
	if lu < 1e-12 || lv < 1e-12 {
		return 0
	}
	cos := geom.Dot(u, v) / (lu * lv)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// removeBacktracks scans windows of 4 to 9 consecutive points and replaces
// the window with the shortest clearance-free dogleg between its endpoints
// whenever that is strictly shorter than the original sub-path, pass 4.
func removeBacktracks(points []geom.Point, checker ClearanceChecker) []geom.Point {
	out := append([]geom.Point(nil), points...)
	for windowLen := 9; windowLen >= 4; windowLen-- {
		out = collapseWindows(out, windowLen, checker)
	}
	return out
}

func collapseWindows(points []geom.Point, windowLen int, checker ClearanceChecker) []geom.Point {
	if len(points) < windowLen {
		return points
	}
	out := make([]geom.Point, 0, len(points))
	i := 0
	for i < len(points) {
		if i+windowLen <= len(points) {
			first, last := points[i], points[i+windowLen-1]
			origLen := 0.0
			for j := i; j < i+windowLen-1; j++ {
				origLen += geom.Dist(points[j], points[j+1])
			}
			if replacement, ok := shortestDogleg(first, last, checker); ok {
				replLen := 0.0
				for j := 0; j < len(replacement)-1; j++ {
					replLen += geom.Dist(replacement[j], replacement[j+1])
				}
				if replLen < origLen-1e-9 {
					out = append(out, replacement[:len(replacement)-1]...)
					i += windowLen - 1
					continue
				}
			}
		}
		out = append(out, points[i])
		i++
	}
	return out
}

// shortestDogleg returns the shortest 45-degree-only connector between a and
// b: either the straight segment (if already aligned) or a single-bend
// dogleg, whichever is clearance-free.
func shortestDogleg(a, b geom.Point, checker ClearanceChecker) ([]geom.Point, bool) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	if geom.Angle45Multiple(dx, dy, angleEps) {
		if checker.Clear(a, b) {
			return []geom.Point{a, b}, true
		}
		return nil, false
	}
	mid, ok := dogleg(a, b, checker)
	if !ok {
		return nil, false
	}
	return []geom.Point{a, mid, b}, true
}

// eliminateAxisReversals removes, axis by axis (X then Y), any intermediate
// segment that moves against the polyline's overall travel direction on
// that axis, replacing the offending point with the best clearance-free
// dogleg between its neighbours, pass 5.
func eliminateAxisReversals(points []geom.Point, checker ClearanceChecker) []geom.Point {
	p := eliminateAxisReversal(points, 0, checker)
	p = eliminateAxisReversal(p, 1, checker)
	return p
}

func eliminateAxisReversal(points []geom.Point, axis int, checker ClearanceChecker) []geom.Point {
	if len(points) < 3 {
		return points
	}
	total := points[len(points)-1][axis] - points[0][axis]
	if math.Abs(total) < 1e-9 {
		return points
	}
	globalSign := sign(total)

	out := []geom.Point{points[0]}
	i := 1
	for i < len(points)-1 {
		cur := points[i]
		prev := out[len(out)-1]
		delta := cur[axis] - prev[axis]
		if sign(delta) != globalSign && math.Abs(delta) > 1e-9 {
			next := points[i+1]
			if replacement, ok := shortestDogleg(prev, next, checker); ok {
				out = append(out, replacement[1:len(replacement)-1]...)
				i++
				continue
			}
		}
		out = append(out, cur)
		i++
	}
	out = append(out, points[len(points)-1])
	return out
}

// shortcutVisibleCorners greedily extends each retained point to the
// farthest later point reachable by a clearance-free 45-degree segment,
// pass 6.
func shortcutVisibleCorners(points []geom.Point, checker ClearanceChecker) []geom.Point {
	if len(points) < 3 {
		return points
	}
	out := []geom.Point{points[0]}
	i := 0
	for i < len(points)-1 {
		farthest := i + 1
		for j := len(points) - 1; j > i+1; j-- {
			dx, dy := points[j][0]-points[i][0], points[j][1]-points[i][1]
			if geom.Angle45Multiple(dx, dy, angleEps) && checker.Clear(points[i], points[j]) {
				farthest = j
				break
			}
		}
		out = append(out, points[farthest])
		i = farthest
	}
	return out
}

// minimizeDirectionChanges replaces any middle point whose turn exceeds
// directionChangeDegrees with a single clearance-free dogleg, pass 7.
func minimizeDirectionChanges(points []geom.Point, checker ClearanceChecker) []geom.Point {
	if len(points) < 3 {
		return points
	}
	out := []geom.Point{points[0]}
	for i := 1; i < len(points)-1; i++ {
		prev := out[len(out)-1]
		cur := points[i]
		next := points[i+1]
		turn := angleBetween(geom.Sub(cur, prev), geom.Sub(next, cur))
		if turn > directionChangeDegrees {
			if replacement, ok := shortestDogleg(prev, next, checker); ok && len(replacement) == 3 {
				out = append(out, replacement[1])
				continue
			}
		}
		out = append(out, cur)
	}
	out = append(out, points[len(points)-1])
	return out
}

// dropShortSegments removes segments under shortSegmentLength when the
// neighbour can be rejoined through an allowed 45-degree dogleg, pass 8.
func dropShortSegments(points []geom.Point, checker ClearanceChecker) []geom.Point {
	out := append([]geom.Point(nil), points...)
	changed := true
	for changed {
		changed = false
		for i := 1; i < len(out)-1; i++ {
			if geom.Dist(out[i-1], out[i]) >= shortSegmentLength {
				continue
			}
			if replacement, ok := shortestDogleg(out[i-1], out[i+1], checker); ok {
				next := append([]geom.Point{}, out[:i-1]...)
				next = append(next, replacement...)
				next = append(next, out[i+2:]...)
				out = next
				changed = true
				break
			}
		}
	}
	return out
}
