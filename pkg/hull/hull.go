// Package hull maps PCB objects (pads, trace segments, vias) to inflated CCW
// polygons — the forbidden region for a routing centreline of a given
// half-width A Hull is addressed by its Source tag and
// carries its owning net so routes within that net can ignore it.
//
// Hulls are referenced by the spatial index (pkg/hullmap) through their
// array index rather than a pointer, per the design note on hull ownership:
// the index owns the polygon data for its whole lifetime, the R-tree only
// ever stores handles into it.
package hull

import (
	"math"

	"pcbroute/pkg/geom"
	"pcbroute/pkg/shape"
)

// Source identifies what produced a hull.
type Source int

const (
	SourcePad Source = iota
	SourceTrace
	SourceVia
	SourcePending
)

// DefaultChamferRatio is the default octagon-chamfer fraction of
// min(halfWidth, halfHeight) used for rectangular/rounded-rect pads.
const DefaultChamferRatio = 0.3

// cornerFanSegments is the number of segments approximating each 180-degree
// stadium end-cap fan.
const cornerFanSegments = 4

// Hull is a CCW simple closed polygon enclosing an object inflated by
// clearance + trace half-width.
type Hull struct {
	Ring   []geom.Point
	NetID  int
	BBox   geom.BBox
	Source Source

	// ID is assigned by the owning hullmap.Map on insertion (0 until then);
	// it gives callers like the walkaround planner a stable identity to key
	// a visited-hull set by, since Hull is otherwise a plain value type.
	ID int
}

func newHull(ring []geom.Point, netID int, src Source) Hull {
	ring = ensureCCW(ring)
	return Hull{Ring: ring, NetID: netID, BBox: geom.RingBBox(ring), Source: src}
}

// ensureCCW reverses ring in place (on a copy) if its signed area is
// negative (clockwise), so every hull satisfies the CCW invariant of
// a Hull's consumers regardless of how its vertices were generated.
func ensureCCW(ring []geom.Point) []geom.Point {
	area := 0.0
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	if area >= 0 {
		return ring
	}
	out := make([]geom.Point, n)
	for i, p := range ring {
		out[n-1-i] = p
	}
	return out
}

// PadHull builds the routing hull for a pad, inflated by clearance plus the
// routing trace's half-width.
func PadHull(p shape.Pad, clearance, traceHalfWidth float64, netID int, chamferRatio float64) Hull {
	infl := clearance + traceHalfWidth
	hw, hh := p.Width/2, p.Height/2

	if p.Kind == shape.Oval {
		return newHull(ovalRing(p, hw, hh, infl), netID, SourcePad)
	}

	var local []geom.Point
	switch p.Kind {
	case shape.Circle:
		local = regularPolygon(hw+infl, 16)
	default: // Rect, RoundRect: octagon via corner chamfer
		local = octagon(hw, hh, infl, chamferRatio)
	}

	ring := make([]geom.Point, len(local))
	for i, v := range local {
		ring[i] = geom.Add(p.Center, geom.Rotate(v, p.AngleDeg))
	}
	return newHull(ring, netID, SourcePad)
}

// ovalRing builds an oval pad's world-frame hull by swapping the effective
// half-width/half-height when the pad's canonical angle (|angle| mod 180)
// falls in (45,135) degrees, rather than rotating the stadium continuously.
// No further rotation is applied once the swap is made.
func ovalRing(p shape.Pad, hw, hh, infl float64) []geom.Point {
	canonical := math.Mod(math.Abs(p.AngleDeg), 180)
	if canonical > 45 && canonical < 135 {
		hw, hh = hh, hw
	}
	local := stadiumLocal(hw, hh, infl)
	ring := make([]geom.Point, len(local))
	for i, v := range local {
		ring[i] = geom.Add(p.Center, v)
	}
	return ring
}

// octagon builds an axis-aligned octagon (local frame, center origin) by
// chamfering the corners of a (hw+infl, hh+infl) rectangle by
// chamferRatio*min(hw,hh)
func octagon(hw, hh, infl, chamferRatio float64) []geom.Point {
	HW, HH := hw+infl, hh+infl
	c := chamferRatio * math.Min(hw, hh)
	maxC := math.Min(HW, HH)
	if c > maxC {
		c = maxC
	}
	if c <= 0 {
		return []geom.Point{{HW, HH}, {-HW, HH}, {-HW, -HH}, {HW, -HH}}
	}
	return []geom.Point{
		{HW, HH - c},
		{HW - c, HH},
		{-HW + c, HH},
		{-HW, HH - c},
		{-HW, -HH + c},
		{-HW + c, -HH},
		{HW - c, -HH},
		{HW, -HH + c},
	}
}

// regularPolygon returns an n-gon of circumradius r inscribed... actually
// generated as the inflated circle itself (vertices lie on the circle of
// radius r), in the local frame.
func regularPolygon(r float64, n int) []geom.Point {
	out := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = geom.Point{r * math.Cos(a), r * math.Sin(a)}
	}
	return out
}

// stadiumLocal builds a stadium (oval pad hull) in local frame: two
// semicircles of the shorter half-axis, joined by the strip along the
// longer axis.
func stadiumLocal(hw, hh, infl float64) []geom.Point {
	if hw >= hh {
		capOffset := hw - hh
		return stadiumRing(geom.Point{-capOffset, 0}, geom.Point{capOffset, 0}, hh+infl)
	}
	capOffset := hh - hw
	return stadiumRing(geom.Point{0, -capOffset}, geom.Point{0, capOffset}, hw+infl)
}

// TraceHull builds the stadium hull for a trace (or pending-trace) segment.
func TraceHull(a, b geom.Point, width, clearance float64, netID int, src Source) Hull {
	r := width/2 + clearance
	ring := stadiumRing(a, b, r)
	return newHull(ring, netID, src)
}

// ViaHull builds the 16-gon hull for a via.
func ViaHull(center geom.Point, outerSize, clearance float64, netID int) Hull {
	local := regularPolygon(outerSize/2+clearance, 16)
	ring := make([]geom.Point, len(local))
	for i, v := range local {
		ring[i] = geom.Add(center, v)
	}
	return newHull(ring, netID, SourceVia)
}

// stadiumRing builds a stadium polygon: segment (a,b) offset
// perpendicular by r on each side, with a half-circle fan of
// cornerFanSegments segments closing each end cap. For a non-degenerate
// segment the ring comes out clockwise (left side a->b first); newHull's
// ensureCCW reorients it.
func stadiumRing(a, b geom.Point, r float64) []geom.Point {
	dir := geom.Sub(b, a)
	length := geom.Len(dir)
	if length < 1e-12 {
		return regularPolygonAt(a, r, 16)
	}
	dir = geom.Scale(dir, 1/length)
	normal := geom.Point{-dir[1], dir[0]} // left-hand normal (CCW offset)

	var ring []geom.Point
	// Left side, a -> b.
	ring = append(ring, geom.Add(a, geom.Scale(normal, r)))
	ring = append(ring, geom.Add(b, geom.Scale(normal, r)))
	// End cap at b: fan from left-normal to right-normal, rotating through
	// the forward direction.
	ring = append(ring, fanArc(b, normal, dir, r, cornerFanSegments)...)
	// Right side, b -> a.
	ring = append(ring, geom.Add(b, geom.Scale(normal, -r)))
	ring = append(ring, geom.Add(a, geom.Scale(normal, -r)))
	// End cap at a: fan from right-normal back to left-normal, rotating
	// through the backward direction.
	ring = append(ring, fanArc(a, geom.Scale(normal, -1), geom.Scale(dir, -1), r, cornerFanSegments)...)
	return ring
}

// fanArc returns cornerFanSegments-1 intermediate points sweeping a
// half-circle from `from` direction to `-from` direction through `through`,
// around center, at radius r (excludes both endpoints, which callers add
// separately as the straight-side vertices).
func fanArc(center, from, through geom.Point, r float64, segments int) []geom.Point {
	startAngle := math.Atan2(from[1], from[0])
	// Sweep 180 degrees in the rotational sense of `through`.
	sweep := math.Pi
	if geom.Cross(from, through) < 0 {
		sweep = -math.Pi
	}
	out := make([]geom.Point, 0, segments-1)
	for i := 1; i < segments; i++ {
		a := startAngle + sweep*float64(i)/float64(segments)
		out = append(out, geom.Add(center, geom.Point{r * math.Cos(a), r * math.Sin(a)}))
	}
	return out
}

func regularPolygonAt(center geom.Point, r float64, n int) []geom.Point {
	out := regularPolygon(r, n)
	for i := range out {
		out[i] = geom.Add(out[i], center)
	}
	return out
}
