package optimizer

import (
	"testing"

	"pcbroute/pkg/geom"
)

func TestOptimizeShortInputUnchanged(t *testing.T) {
	pts := []geom.Point{{0, 0}, {1, 1}}
	out := Optimize(pts, nil)
	if len(out) != 2 {
		t.Fatalf("expected 2-point input returned as-is, got %v", out)
	}
}

func TestOptimizeDropsDuplicatePoints(t *testing.T) {
	pts := []geom.Point{{0, 0}, {0.01, 0.01}, {5, 5}, {5, 5}}
	out := dedup(pts)
	if len(out) != 2 {
		t.Errorf("expected near-duplicate points merged, got %v", out)
	}
}

func TestOptimizeEnforces45Degree(t *testing.T) {
	pts := []geom.Point{{0, 0}, {10, 3}}
	out := Optimize(pts, nil)
	for i := 0; i < len(out)-1; i++ {
		dx, dy := out[i+1][0]-out[i][0], out[i+1][1]-out[i][1]
		if !geom.Angle45Multiple(dx, dy, 1e-6) {
			t.Errorf("segment %v -> %v is not a 45-degree multiple", out[i], out[i+1])
		}
	}
	if out[0] != pts[0] || out[len(out)-1] != pts[len(pts)-1] {
		t.Errorf("endpoints must be preserved, got %v", out)
	}
}

func TestOptimizeMergesCollinearPoints(t *testing.T) {
	pts := []geom.Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	out := mergeCollinear(pts)
	if len(out) != 2 {
		t.Errorf("expected collinear run merged to 2 points, got %v", out)
	}
}

func TestOptimizeRejectsDoglegWhenBlocked(t *testing.T) {
	blocker := blockEverythingNear{x: 5, y: 0, r: 10}
	pts := []geom.Point{{0, 0}, {10, 3}}
	out := Optimize(pts, blocker)
	// Nothing is clearance-free, so pass 2 must leave the original segment
	// rather than insert an illegal breakpoint.
	if len(out) != 2 {
		t.Errorf("expected unmodified segment when no dogleg is clear, got %v", out)
	}
}

type blockEverythingNear struct{ x, y, r float64 }

func (b blockEverythingNear) Clear(a, c geom.Point) bool {
	mid := geom.Point{(a[0] + c[0]) / 2, (a[1] + c[1]) / 2}
	return geom.Dist(mid, geom.Point{b.x, b.y}) > b.r
}

func TestOptimizePreservesEndpointsOnLongInput(t *testing.T) {
	pts := []geom.Point{
		{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 2}, {5, 2},
		{6, 3}, {7, 3}, {8, 4}, {9, 4}, {10, 5},
	}
	out := Optimize(pts, nil)
	if out[0] != pts[0] {
		t.Errorf("start point changed: %v", out[0])
	}
	if out[len(out)-1] != pts[len(pts)-1] {
		t.Errorf("end point changed: %v", out[len(out)-1])
	}
}
