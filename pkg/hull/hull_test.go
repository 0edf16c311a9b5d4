package hull

import (
	"math"
	"testing"

	"pcbroute/pkg/geom"
	"pcbroute/pkg/shape"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// TestStadiumBBox checks a trace segment hull's bounding box against a hand-computed value.
func TestStadiumBBox(t *testing.T) {
	h := TraceHull(geom.Point{0, 0}, geom.Point{10, 0}, 2.0, 0.2, 0, SourceTrace)
	if !almostEqual(h.BBox.MinX, -1.2, 0.01) || !almostEqual(h.BBox.MaxX, 11.2, 0.01) {
		t.Errorf("x range = [%v,%v], want [-1.2,11.2]", h.BBox.MinX, h.BBox.MaxX)
	}
	if !almostEqual(h.BBox.MinY, -1.2, 0.01) || !almostEqual(h.BBox.MaxY, 1.2, 0.01) {
		t.Errorf("y range = [%v,%v], want [-1.2,1.2]", h.BBox.MinY, h.BBox.MaxY)
	}
}

// TestRotatedRoundRectBBox checks a rotated roundrect pad hull's bounding box against a hand-computed value.
func TestRotatedRoundRectBBox(t *testing.T) {
	p := shape.Pad{
		Center: geom.Point{0, 0}, Width: 1.7, Height: 2.0,
		Kind: shape.RoundRect, AngleDeg: -90, RoundRectRatio: 0.3,
	}
	h := PadHull(p, 0.2, 0, 0, DefaultChamferRatio)
	// After a -90deg rotation the pad's 1.7-wide/2.0-tall footprint becomes
	// 2.0 wide / 1.7 tall in world space. Inflated by clearance 0.2:
	// x range ±(1.0+0.2)=±1.2, y range ±(0.85+0.2)=±1.05.
	if !almostEqual(h.BBox.MinX, -1.2, 0.05) || !almostEqual(h.BBox.MaxX, 1.2, 0.05) {
		t.Errorf("x range = [%v,%v], want [-1.2,1.2]", h.BBox.MinX, h.BBox.MaxX)
	}
	if !almostEqual(h.BBox.MinY, -1.05, 0.05) || !almostEqual(h.BBox.MaxY, 1.05, 0.05) {
		t.Errorf("y range = [%v,%v], want [-1.05,1.05]", h.BBox.MinY, h.BBox.MaxY)
	}
}

// TestHullIsCCW covers the CCW invariant for every hull shape.
func TestHullIsCCW(t *testing.T) {
	cases := []Hull{
		PadHull(shape.Pad{Center: geom.Point{0, 0}, Width: 2, Height: 2, Kind: shape.Circle}, 0.2, 0, 0, DefaultChamferRatio),
		PadHull(shape.Pad{Center: geom.Point{0, 0}, Width: 2, Height: 1, Kind: shape.Rect}, 0.2, 0, 0, DefaultChamferRatio),
		PadHull(shape.Pad{Center: geom.Point{0, 0}, Width: 4, Height: 1, Kind: shape.Oval}, 0.2, 0, 0, DefaultChamferRatio),
		TraceHull(geom.Point{0, 0}, geom.Point{5, 5}, 0.25, 0.2, 0, SourceTrace),
		ViaHull(geom.Point{0, 0}, 0.8, 0.2, 0),
	}
	for i, h := range cases {
		area := signedArea(h.Ring)
		if area <= 0 {
			t.Errorf("case %d: hull not CCW, signed area = %v", i, area)
		}
	}
}

func signedArea(ring []geom.Point) float64 {
	area := 0.0
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return area
}

// TestOvalRotationSwap checks that a rotated oval pad's hull comes from
// swapping effective width/height rather than rotating the stadium, per the
// canonical-angle rule: no swap below 45 degrees, full swap between 45 and
// 135, matching the unrotated case again past 135 (mod 180).
func TestOvalRotationSwap(t *testing.T) {
	base := shape.Pad{Center: geom.Point{0, 0}, Width: 4, Height: 1, Kind: shape.Oval}

	unrotated := base
	unrotated.AngleDeg = 0
	h0 := PadHull(unrotated, 0.2, 0, 0, DefaultChamferRatio)
	if !almostEqual(h0.BBox.MaxX, 2.2, 0.01) || !almostEqual(h0.BBox.MaxY, 0.7, 0.01) {
		t.Errorf("angle 0: bbox max = (%v,%v), want (2.2,0.7)", h0.BBox.MaxX, h0.BBox.MaxY)
	}

	shallow := base
	shallow.AngleDeg = 30
	h30 := PadHull(shallow, 0.2, 0, 0, DefaultChamferRatio)
	if !almostEqual(h30.BBox.MaxX, 2.2, 0.01) || !almostEqual(h30.BBox.MaxY, 0.7, 0.01) {
		t.Errorf("angle 30 (below swap threshold): bbox max = (%v,%v), want (2.2,0.7)", h30.BBox.MaxX, h30.BBox.MaxY)
	}

	rotated := base
	rotated.AngleDeg = 90
	h90 := PadHull(rotated, 0.2, 0, 0, DefaultChamferRatio)
	if !almostEqual(h90.BBox.MaxX, 0.7, 0.01) || !almostEqual(h90.BBox.MaxY, 2.2, 0.01) {
		t.Errorf("angle 90 (swapped): bbox max = (%v,%v), want (0.7,2.2)", h90.BBox.MaxX, h90.BBox.MaxY)
	}
}

func TestHullBBoxMatchesVertices(t *testing.T) {
	h := ViaHull(geom.Point{5, 5}, 1.0, 0.1, 0)
	bb := geom.RingBBox(h.Ring)
	if bb != h.BBox {
		t.Errorf("stored bbox %+v does not match computed %+v", h.BBox, bb)
	}
}
