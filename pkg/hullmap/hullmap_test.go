package hullmap

import (
	"testing"

	"pcbroute/pkg/geom"
	"pcbroute/pkg/hull"
	"pcbroute/pkg/shape"
)

func TestBlockingHullsOrderedByDistance(t *testing.T) {
	m := New()
	near := hull.PadHull(shape.Pad{Center: geom.Point{5, 0}, Width: 1, Height: 1, Kind: shape.Circle}, 0.1, 0, 3, hull.DefaultChamferRatio)
	far := hull.PadHull(shape.Pad{Center: geom.Point{9, 0}, Width: 1, Height: 1, Kind: shape.Circle}, 0.1, 0, 3, hull.DefaultChamferRatio)
	m.AddPermanent(far)
	m.AddPermanent(near)

	hits := m.BlockingHulls(geom.Point{0, 0}, geom.Point{20, 0}, 0.125, -1)
	if len(hits) != 2 {
		t.Fatalf("expected 2 blocking hulls, got %d", len(hits))
	}
	if hits[0].T > hits[1].T {
		t.Errorf("hits not ordered by distance: %v", hits)
	}
}

func TestBlockingHullsIgnoresSameNet(t *testing.T) {
	m := New()
	pad := hull.PadHull(shape.Pad{Center: geom.Point{5, 0}, Width: 1, Height: 1, Kind: shape.Circle}, 0.1, 0, 7, hull.DefaultChamferRatio)
	m.AddPermanent(pad)

	hits := m.BlockingHulls(geom.Point{0, 0}, geom.Point{10, 0}, 0.125, 7)
	if len(hits) != 0 {
		t.Errorf("expected same-net hull to be ignored, got %d hits", len(hits))
	}
	hits2 := m.BlockingHulls(geom.Point{0, 0}, geom.Point{10, 0}, 0.125, -1)
	if len(hits2) != 1 {
		t.Errorf("expected different-net hull to block, got %d hits", len(hits2))
	}
}

func TestPointInsideAnyHull(t *testing.T) {
	m := New()
	pad := hull.PadHull(shape.Pad{Center: geom.Point{5, 5}, Width: 2, Height: 2, Kind: shape.Circle}, 0.2, 0, 3, hull.DefaultChamferRatio)
	m.AddPermanent(pad)

	if _, ok := m.PointInsideAnyHull(geom.Point{5, 5}, -1); !ok {
		t.Errorf("expected center point to be inside hull")
	}
	if _, ok := m.PointInsideAnyHull(geom.Point{5, 5}, 3); ok {
		t.Errorf("expected same-net point to be transparent")
	}
	if _, ok := m.PointInsideAnyHull(geom.Point{100, 100}, -1); ok {
		t.Errorf("expected far point to be outside")
	}
}

func TestAddAndClearPending(t *testing.T) {
	m := New()
	tr := hull.TraceHull(geom.Point{0, 5}, geom.Point{10, 5}, 0.5, 0.2, 0, hull.SourcePending)
	m.AddPending("p1", []hull.Hull{tr})
	if m.PendingCount() != 1 {
		t.Fatalf("expected 1 pending hull, got %d", m.PendingCount())
	}
	hits := m.BlockingHulls(geom.Point{5, 0}, geom.Point{5, 10}, 0.125, -1)
	if len(hits) != 1 {
		t.Fatalf("expected pending hull to block crossing segment, got %d", len(hits))
	}
	m.ClearPending()
	if m.PendingCount() != 0 {
		t.Errorf("expected 0 pending after clear, got %d", m.PendingCount())
	}
	hits2 := m.BlockingHulls(geom.Point{5, 0}, geom.Point{5, 10}, 0.125, -1)
	if len(hits2) != 0 {
		t.Errorf("expected no blocks after clearing pending, got %d", len(hits2))
	}
}
