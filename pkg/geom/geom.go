// Package geom provides the 2-D geometry primitives the routing engine is
// built on: points, segment intersection, point-to-segment distance, and
// polygon containment. All coordinates are board-absolute millimetres.
package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is a board-absolute coordinate in millimetres.
type Point = orb.Point

// parallelEps is the cross-product threshold below which two segments are
// treated as parallel.
const parallelEps = 1e-10

// degenerateLenSq is the squared-length threshold below which a segment is
// treated as a single point.
const degenerateLenSq = 1e-10

// SamePointEps is the distance below which two points are considered equal.
const SamePointEps = 0.01

// Sub returns a-b.
func Sub(a, b Point) Point { return Point{a[0] - b[0], a[1] - b[1]} }

// Add returns a+b.
func Add(a, b Point) Point { return Point{a[0] + b[0], a[1] + b[1]} }

// Scale returns p*s.
func Scale(p Point, s float64) Point { return Point{p[0] * s, p[1] * s} }

// Dot returns the dot product of a and b.
func Dot(a, b Point) float64 { return a[0]*b[0] + a[1]*b[1] }

// Cross returns the z-component of the 3-D cross product of a and b.
func Cross(a, b Point) float64 { return a[0]*b[1] - a[1]*b[0] }

// Len returns the Euclidean length of v.
func Len(v Point) float64 { return math.Hypot(v[0], v[1]) }

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Point) float64 { return Len(Sub(b, a)) }

// DistSq returns the squared Euclidean distance between a and b.
func DistSq(a, b Point) float64 {
	d := Sub(b, a)
	return d[0]*d[0] + d[1]*d[1]
}

// Normalize returns v scaled to unit length, or the zero vector if v is
// (near) zero length.
func Normalize(v Point) Point {
	l := Len(v)
	if l < 1e-12 {
		return Point{0, 0}
	}
	return Point{v[0] / l, v[1] / l}
}

// Rotate rotates v by angleDeg degrees counter-clockwise.
func Rotate(v Point, angleDeg float64) Point {
	r := angleDeg * math.Pi / 180
	s, c := math.Sin(r), math.Cos(r)
	return Point{v[0]*c - v[1]*s, v[0]*s + v[1]*c}
}

// LineSide returns the signed area of the triangle (a,b,p): positive when p
// is to the left of the directed line a->b, negative to the right, zero when
// collinear.
func LineSide(p, a, b Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// SegmentIntersection reports whether segment (a,b) crosses segment (c,d).
// Ok is false for parallel or non-overlapping segments. TA, TB are the
// parametric positions of the intersection point along each segment, valid
// only when Ok is true.
type SegmentIntersection struct {
	Point Point
	TA    float64
	TB    float64
	Ok    bool
}

// IntersectSegments computes the intersection of segment (a,b) with segment
// (c,d) using the parametric line solution. Reports Ok only when both
// parameters lie in [0,1].
func IntersectSegments(a, b, c, d Point) SegmentIntersection {
	r := Sub(b, a)
	s := Sub(d, c)
	denom := Cross(r, s)
	if math.Abs(denom) < parallelEps {
		return SegmentIntersection{}
	}
	qp := Sub(c, a)
	t := Cross(qp, s) / denom
	u := Cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return SegmentIntersection{TA: t, TB: u}
	}
	return SegmentIntersection{
		Point: Add(a, Scale(r, t)),
		TA:    t,
		TB:    u,
		Ok:    true,
	}
}

// ClosestPointOnSegment returns the closest point Q on segment (a,b) to p,
// the clamped projection parameter t in [0,1], and the squared distance from
// p to Q. Degenerate (zero-length) segments return a directly.
func ClosestPointOnSegment(p, a, b Point) (q Point, t float64, distSq float64) {
	ab := Sub(b, a)
	lenSq := Dot(ab, ab)
	if lenSq < degenerateLenSq {
		return a, 0, DistSq(p, a)
	}
	t = Dot(Sub(p, a), ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	q = Add(a, Scale(ab, t))
	return q, t, DistSq(p, q)
}

// PointInRing reports whether p lies inside the closed polygon ring using
// the standard ray-casting test. ring need not be explicitly closed (last
// point equal to first); both forms work.
func PointInRing(p Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi[1] > p[1]) != (pj[1] > p[1]) {
			xIntersect := (pj[0]-pi[0])*(p[1]-pi[1])/(pj[1]-pi[1]) + pi[0]
			if p[0] < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// BBox is an axis-aligned bounding box.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// RingBBox computes the bounding box of a polygon ring.
func RingBBox(ring []Point) BBox {
	if len(ring) == 0 {
		return BBox{}
	}
	bb := BBox{MinX: ring[0][0], MaxX: ring[0][0], MinY: ring[0][1], MaxY: ring[0][1]}
	for _, p := range ring[1:] {
		bb.MinX = math.Min(bb.MinX, p[0])
		bb.MaxX = math.Max(bb.MaxX, p[0])
		bb.MinY = math.Min(bb.MinY, p[1])
		bb.MaxY = math.Max(bb.MaxY, p[1])
	}
	return bb
}

// Overlaps reports whether two bounding boxes intersect (touching counts).
func (bb BBox) Overlaps(o BBox) bool {
	return bb.MinX <= o.MaxX && bb.MaxX >= o.MinX && bb.MinY <= o.MaxY && bb.MaxY >= o.MinY
}

// Inflate grows bb by r on every side.
func (bb BBox) Inflate(r float64) BBox {
	return BBox{MinX: bb.MinX - r, MinY: bb.MinY - r, MaxX: bb.MaxX + r, MaxY: bb.MaxY + r}
}

// Contains reports whether bb contains p.
func (bb BBox) Contains(p Point) bool {
	return p[0] >= bb.MinX && p[0] <= bb.MaxX && p[1] >= bb.MinY && p[1] <= bb.MaxY
}

// SegmentBBox returns the bounding box of segment (a,b) inflated by half.
func SegmentBBox(a, b Point, half float64) BBox {
	bb := BBox{
		MinX: math.Min(a[0], b[0]), MaxX: math.Max(a[0], b[0]),
		MinY: math.Min(a[1], b[1]), MaxY: math.Max(a[1], b[1]),
	}
	return bb.Inflate(half)
}

// IsDegenerate reports whether segment (a,b) has squared length below the
// degeneracy threshold.
func IsDegenerate(a, b Point) bool {
	return DistSq(a, b) < degenerateLenSq
}

// Angle45Multiple reports whether the direction of (dx,dy) is a multiple of
// 45 degrees within eps: horizontal, vertical, or |dx|==|dy| diagonal.
func Angle45Multiple(dx, dy, eps float64) bool {
	adx, ady := math.Abs(dx), math.Abs(dy)
	return adx < eps || ady < eps || math.Abs(adx-ady) < eps
}
