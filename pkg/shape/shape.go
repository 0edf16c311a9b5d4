// Package shape computes signed distance from a point to each primitive pad
// shape, and to trace capsules and via disks. Negative means inside.
//
// Pad shapes are modeled as a tagged variant (Kind) rather than an
// inheritance hierarchy, per the shape-polymorphism design note: each
// distance function dispatches on Kind and transforms the query point into
// the shape's local frame (translate to center, rotate by -angle) before
// computing the primitive distance.
package shape

import (
	"math"

	"pcbroute/pkg/geom"
)

// Kind identifies a pad shape variant.
type Kind int

const (
	Circle Kind = iota
	Rect
	RoundRect
	Oval
)

// Pad is a tagged-variant description of a pad footprint, sufficient to
// compute signed distance and to build its routing hull.
type Pad struct {
	Center         geom.Point
	Width, Height  float64 // full extents
	Kind           Kind
	AngleDeg       float64 // rotation, degrees CCW
	RoundRectRatio float64 // corner radius / min(halfW,halfH), only for RoundRect
}

// toLocal transforms p into the pad's local, unrotated, center-origin frame.
func (p Pad) toLocal(pt geom.Point) geom.Point {
	rel := geom.Sub(pt, p.Center)
	return geom.Rotate(rel, -p.AngleDeg)
}

// Distance returns the signed distance from pt to the pad's edge: negative
// when pt is inside the pad.
func (p Pad) Distance(pt geom.Point) float64 {
	local := p.toLocal(pt)
	hw, hh := p.Width/2, p.Height/2
	switch p.Kind {
	case Circle:
		return CircleDistance(local, hw)
	case Rect:
		return RectDistance(local, hw, hh)
	case RoundRect:
		r := p.RoundRectRatio * math.Min(hw, hh)
		if r > math.Min(hw, hh) {
			r = math.Min(hw, hh)
		}
		return RoundRectDistance(local, hw, hh, r)
	case Oval:
		return OvalDistance(local, hw, hh)
	default:
		return RectDistance(local, hw, hh)
	}
}

// CircleDistance returns the signed distance from a local-frame point to a
// circle of radius r centered at the origin.
func CircleDistance(local geom.Point, r float64) float64 {
	return geom.Len(local) - r
}

// RectDistance returns the signed distance from a local-frame point to an
// axis-aligned rectangle of half-width hw, half-height hh centered at the
// origin.
func RectDistance(local geom.Point, hw, hh float64) float64 {
	x, y := math.Abs(local[0]), math.Abs(local[1])
	if x <= hw && y <= hh {
		return -math.Min(hw-x, hh-y)
	}
	dx := math.Max(x-hw, 0)
	dy := math.Max(y-hh, 0)
	return math.Hypot(dx, dy)
}

// RoundRectDistance returns the signed distance from a local-frame point to
// a rounded rectangle of half-extents hw,hh and corner radius r.
func RoundRectDistance(local geom.Point, hw, hh, r float64) float64 {
	x, y := math.Abs(local[0]), math.Abs(local[1])
	// Central cross strip: behaves like the plain rectangle.
	if x <= hw-r || y <= hh-r {
		return RectDistance(local, hw, hh)
	}
	// Corner region: distance to the corner circle center, minus r.
	cx, cy := hw-r, hh-r
	d := math.Hypot(x-cx, y-cy)
	return d - r
}

// OvalDistance returns the signed distance from a local-frame point to a
// stadium (oval) of half-extents hw,hh — semicircles of the shorter
// half-axis joined by a straight strip along the longer axis.
func OvalDistance(local geom.Point, hw, hh float64) float64 {
	if hw >= hh {
		capOffset := hw - hh
		x := math.Abs(local[0])
		if x <= capOffset {
			return math.Abs(local[1]) - hh
		}
		capCenter := geom.Point{capOffset, 0}
		if local[0] < 0 {
			capCenter[0] = -capOffset
		}
		return geom.Dist(local, capCenter) - hh
	}
	capOffset := hh - hw
	y := math.Abs(local[1])
	if y <= capOffset {
		return math.Abs(local[0]) - hw
	}
	capCenter := geom.Point{0, capOffset}
	if local[1] < 0 {
		capCenter[1] = -capOffset
	}
	return geom.Dist(local, capCenter) - hw
}

// TraceDistance returns the signed distance from pt to a trace capsule
// (segment a-b inflated by width/2).
func TraceDistance(pt, a, b geom.Point, width float64) float64 {
	_, _, d2 := geom.ClosestPointOnSegment(pt, a, b)
	return math.Sqrt(d2) - width/2
}

// ViaDistance returns the signed distance from pt to a via disk.
func ViaDistance(pt, center geom.Point, outerSize float64) float64 {
	return geom.Dist(pt, center) - outerSize/2
}
