package router

import (
	"context"
	"strings"
	"testing"

	"pcbroute/pkg/board"
	"pcbroute/pkg/geom"
	"pcbroute/pkg/pending"
)

func loadBoard(t *testing.T, js string) *board.Board {
	t.Helper()
	b, err := board.Load(strings.NewReader(js))
	if err != nil {
		t.Fatalf("board.Load: %v", err)
	}
	return b
}

func intPtr(v int) *int { return &v }

const emptyBoard = `{
  "edge_cuts": [
    {"start":[0,0],"end":[50,0]},
    {"start":[50,0],"end":[50,50]},
    {"start":[50,50],"end":[0,50]},
    {"start":[0,50],"end":[0,0]}
  ],
  "layers": ["F.Cu"]
}`

// S1: an empty board routes the direct straight segment.
func TestRouteStraightLine(t *testing.T) {
	b := loadBoard(t, emptyBoard)
	r := New(b, pending.New(), DefaultConfig())

	path, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(path) != 2 {
		t.Fatalf("expected a straight 2-point path, got %v", path)
	}
	if path[0] != (geom.Point{10, 25}) || path[len(path)-1] != (geom.Point{40, 25}) {
		t.Errorf("endpoints not preserved: %v", path)
	}
}

const sameNetBoard = `{
  "pads": [
    {"center":[20,25],"width":1.5,"height":1.5,"shape":"circle","layers":["F.Cu"],"net_id":7},
    {"center":[30,25],"width":1.5,"height":1.5,"shape":"circle","layers":["F.Cu"],"net_id":7}
  ],
  "edge_cuts": [
    {"start":[0,0],"end":[50,0]},
    {"start":[50,0],"end":[50,50]},
    {"start":[50,50],"end":[0,50]},
    {"start":[0,50],"end":[0,0]}
  ],
  "layers": ["F.Cu"]
}`

// S2: routing between two pads of the same net is transparent to both.
func TestRouteSameNetTransparent(t *testing.T) {
	b := loadBoard(t, sameNetBoard)
	r := New(b, pending.New(), DefaultConfig())

	path, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{20, 25}, End: geom.Point{30, 25}, Layer: "F.Cu", Width: 0.25,
		NetID: intPtr(7),
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	direct := geom.Dist(geom.Point{20, 25}, geom.Point{30, 25})
	length := 0.0
	for i := 0; i+1 < len(path); i++ {
		length += geom.Dist(path[i], path[i+1])
	}
	if length > direct*1.05 {
		t.Errorf("expected near-direct same-net path, got length %v vs direct %v", length, direct)
	}
}

const squarePadBoard = `{
  "pads": [
    {"center":[25,25],"width":4,"height":4,"shape":"rect","layers":["F.Cu"],"net_id":3}
  ],
  "edge_cuts": [
    {"start":[0,0],"end":[50,0]},
    {"start":[50,0],"end":[50,50]},
    {"start":[50,50],"end":[0,50]},
    {"start":[0,50],"end":[0,0]}
  ],
  "layers": ["F.Cu"]
}`

// S3: a blocking pad forces a detour whose every vertex clears the pad edge
// by at least clearance + half-width.
func TestRouteDetoursAroundObstacle(t *testing.T) {
	b := loadBoard(t, squarePadBoard)
	r := New(b, pending.New(), DefaultConfig())

	path, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(path) < 2 {
		t.Fatalf("expected a non-empty path, got %v", path)
	}
	const padHalf = 2.0
	const minClear = padHalf + 0.2 + 0.125
	// Distance from the pad centre is a looser but still meaningful proxy
	// for edge clearance on a 4x4 square pad.
	for _, p := range path {
		d := geom.Dist(p, geom.Point{25, 25})
		if d < minClear && (p != path[0] && p != path[len(path)-1]) {
			t.Errorf("waypoint %v passes too close to the obstacle pad", p)
		}
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// S4: an endpoint landing inside a different-net pad is rejected outright.
func TestRouteEndBlocked(t *testing.T) {
	b := loadBoard(t, squarePadBoard)
	r := New(b, pending.New(), DefaultConfig())

	_, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{25, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err != ErrEndBlocked {
		t.Fatalf("expected ErrEndBlocked, got %v", err)
	}
}

func TestRouteStartBlocked(t *testing.T) {
	b := loadBoard(t, squarePadBoard)
	r := New(b, pending.New(), DefaultConfig())

	_, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{25, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err != ErrStartBlocked {
		t.Fatalf("expected ErrStartBlocked, got %v", err)
	}
}

const twoNetBoard = `{
  "pads": [
    {"center":[20,25],"width":1.5,"height":1.5,"shape":"circle","layers":["F.Cu"],"net_id":7},
    {"center":[30,25],"width":1.5,"height":1.5,"shape":"circle","layers":["F.Cu"],"net_id":8}
  ],
  "edge_cuts": [
    {"start":[0,0],"end":[50,0]},
    {"start":[50,0],"end":[50,50]},
    {"start":[50,50],"end":[0,50]},
    {"start":[0,50],"end":[0,0]}
  ],
  "layers": ["F.Cu"]
}`

// Endpoints resolving to disagreeing nets are rejected with
// ErrDifferentNetEndpoint, even though the end point also lies inside the
// other net's pad hull.
func TestRouteDifferentNetEndpoint(t *testing.T) {
	b := loadBoard(t, twoNetBoard)
	r := New(b, pending.New(), DefaultConfig())

	_, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{20, 25}, End: geom.Point{30, 25}, Layer: "F.Cu", Width: 0.25,
		NetID: intPtr(7),
	})
	if err != ErrDifferentNetEndpoint {
		t.Fatalf("expected ErrDifferentNetEndpoint, got %v", err)
	}
}

// S5: a pending trace's corridor blocks a direct route; removing it restores
// the straight path.
func TestRoutePendingTraceBlocksThenClears(t *testing.T) {
	b := loadBoard(t, emptyBoard)
	store := pending.New()
	r := New(b, store, DefaultConfig())

	if err := r.RegisterTrace(pending.Trace{
		ID:       "t",
		Segments: [][2]float64{{25, 10}, {25, 40}},
		Width:    0.5,
		Layer:    "F.Cu",
	}); err != nil {
		t.Fatalf("RegisterTrace: %v", err)
	}

	path, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	const corridorHalf = 0.575
	for _, p := range path {
		if absf(p[0]-25) < corridorHalf && p[1] > 10 && p[1] < 40 {
			t.Errorf("waypoint %v falls inside the pending trace corridor", p)
		}
	}

	removed, err := r.RemoveTrace("t")
	if err != nil || !removed {
		t.Fatalf("RemoveTrace: removed=%v err=%v", removed, err)
	}

	path2, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err != nil {
		t.Fatalf("Route after remove: %v", err)
	}
	if len(path2) != 2 {
		t.Errorf("expected the straight path restored after removal, got %v", path2)
	}
}

func TestRouteClearTraces(t *testing.T) {
	b := loadBoard(t, emptyBoard)
	store := pending.New()
	r := New(b, store, DefaultConfig())

	_ = r.RegisterTrace(pending.Trace{ID: "a", Segments: [][2]float64{{0, 0}, {1, 1}}, Width: 0.25, Layer: "F.Cu"})
	_ = r.RegisterTrace(pending.Trace{ID: "b", Segments: [][2]float64{{2, 2}, {3, 3}}, Width: 0.25, Layer: "F.Cu"})
	if len(r.ListTraces()) != 2 {
		t.Fatalf("expected 2 pending traces before clear")
	}
	if err := r.ClearTraces(); err != nil {
		t.Fatalf("ClearTraces: %v", err)
	}
	if len(r.ListTraces()) != 0 {
		t.Errorf("expected empty store after ClearTraces")
	}
}

// S6: checkVia reports a violation against a different-net pad and clears
// for the pad's own net.
func TestCheckVia(t *testing.T) {
	b := loadBoard(t, squarePadBoard)
	r := New(b, pending.New(), DefaultConfig())

	ok, layer := r.CheckVia(geom.Point{25, 25}, 0.4, nil)
	if ok || layer != "F.Cu" {
		t.Errorf("expected a violation on F.Cu for a different net, got ok=%v layer=%q", ok, layer)
	}

	ok, layer = r.CheckVia(geom.Point{25, 25}, 0.4, intPtr(3))
	if !ok || layer != "" {
		t.Errorf("expected no violation for the pad's own net, got ok=%v layer=%q", ok, layer)
	}
}

func TestFindNetAtPoint(t *testing.T) {
	b := loadBoard(t, sameNetBoard)
	r := New(b, pending.New(), DefaultConfig())

	net, ok := r.FindNetAtPoint(20, 25, "F.Cu", 0.1)
	if !ok || net != 7 {
		t.Errorf("expected net 7 at pad centre, got net=%v ok=%v", net, ok)
	}

	_, ok = r.FindNetAtPoint(100, 100, "F.Cu", 0.1)
	if ok {
		t.Errorf("expected no net found far from any pad")
	}
}

// The A* fallback backend must return an equally endpoint-preserving path
// when walkaround is disabled.
func TestRouteAstarBackend(t *testing.T) {
	b := loadBoard(t, squarePadBoard)
	cfg := DefaultConfig()
	cfg.PreferAstar = true
	r := New(b, pending.New(), cfg)

	path, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err != nil {
		t.Fatalf("Route (astar): %v", err)
	}
	if geom.Dist(path[0], geom.Point{10, 25}) > 1e-3 {
		t.Errorf("start not preserved: %v", path[0])
	}
	if geom.Dist(path[len(path)-1], geom.Point{40, 25}) > 1e-3 {
		t.Errorf("end not preserved: %v", path[len(path)-1])
	}
}

// Reference-guided routing threads the walkaround planner through one
// waypoint per reference corner, skipping the optimizer.
func TestRouteReferenceGuided(t *testing.T) {
	b := loadBoard(t, emptyBoard)
	r := New(b, pending.New(), DefaultConfig())

	path, err := r.Route(context.Background(), RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
		ReferencePath:    []geom.Point{{10, 25}, {25, 25}, {40, 25}},
		ReferenceSpacing: 0.5,
	})
	if err != nil {
		t.Fatalf("Route (reference-guided): %v", err)
	}
	if geom.Dist(path[0], geom.Point{10, 25}) > 1e-3 {
		t.Errorf("start not preserved: %v", path[0])
	}
	if geom.Dist(path[len(path)-1], geom.Point{40, 25}) > 1e-3 {
		t.Errorf("end not preserved: %v", path[len(path)-1])
	}
}

func TestRouteContextCancelled(t *testing.T) {
	b := loadBoard(t, emptyBoard)
	r := New(b, pending.New(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Route(ctx, RouteRequest{
		Start: geom.Point{10, 25}, End: geom.Point{40, 25}, Layer: "F.Cu", Width: 0.25,
	})
	if err == nil {
		t.Fatalf("expected a cancellation error")
	}
}
