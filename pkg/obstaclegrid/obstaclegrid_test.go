package obstaclegrid

import (
	"strings"
	"testing"

	"pcbroute/pkg/board"
)

const squareBoard = `{
  "pads": [
    {"center":[25,25],"width":4,"height":4,"shape":"rect","layers":["F.Cu"],"net_id":3}
  ],
  "traces": [],
  "vias": [],
  "edge_cuts": [
    {"start":[0,0],"end":[50,0]},
    {"start":[50,0],"end":[50,50]},
    {"start":[50,50],"end":[0,50]},
    {"start":[0,50],"end":[0,0]}
  ],
  "nets": {"3":"NET3"},
  "layers": ["F.Cu"]
}`

// TestSameNetTransparency checks that a same-net pad is transparent while a different-net pad on the same layer blocks.
func TestSameNetTransparency(t *testing.T) {
	b, err := board.Load(strings.NewReader(squareBoard))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	gAllowed := Build(b, "F.Cu", 0.2, 3, DefaultResolution)
	if gAllowed.IsBlocked(25, 25, 0) {
		t.Errorf("same-net point should not be blocked")
	}

	gBlocked := Build(b, "F.Cu", 0.2, -1, DefaultResolution)
	if !gBlocked.IsBlocked(25, 25, 0) {
		t.Errorf("different-net point should be blocked")
	}
}

func TestEdgeCutsBlockOutsideBoard(t *testing.T) {
	b, err := board.Load(strings.NewReader(squareBoard))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g := Build(b, "F.Cu", 0.2, -1, DefaultResolution)
	if !g.IsBlocked(-0.1, 25, 0) {
		t.Errorf("point just outside the board outline, within clearance of the edge cut, should be blocked")
	}
	if g.IsBlocked(2, 2, 0) {
		t.Errorf("point inside board, away from pad, should be free")
	}
}

func TestDilateIsMemoized(t *testing.T) {
	b, err := board.Load(strings.NewReader(squareBoard))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g := Build(b, "F.Cu", 0.2, -1, DefaultResolution)
	d1 := g.Dilate(0.3)
	d2 := g.Dilate(0.3)
	if len(d1) != len(d2) {
		t.Errorf("expected memoised dilation to be stable across calls")
	}
	// A larger radius should never shrink the blocked set.
	d3 := g.Dilate(0.6)
	if len(d3) < len(d1) {
		t.Errorf("larger dilation radius produced a smaller blocked set")
	}
}
