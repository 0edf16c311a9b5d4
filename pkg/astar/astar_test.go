package astar

import (
	"math"
	"testing"
)

// wallBlocker blocks a single vertical wall of cells at x==wallX, except for
// a one-cell gap at y==gapY, used to force the search around a corner.
type wallBlocker struct {
	wallX, gapY int32
}

func (w wallBlocker) Blocked(x, y int32) bool {
	return x == w.wallX && y != w.gapY
}

type noneBlocker struct{}

func (noneBlocker) Blocked(x, y int32) bool { return false }

func TestRunStraightLine(t *testing.T) {
	res := Run(Cell{0, 0}, Cell{10, 0}, noneBlocker{}, Config{})
	if !res.Found {
		t.Fatalf("expected a path on an open grid")
	}
	if res.Cells[0] != (Cell{0, 0}) || res.Cells[len(res.Cells)-1] != (Cell{10, 0}) {
		t.Errorf("unexpected endpoints: %v", res.Cells)
	}
	// A straight run should simplify to just the two endpoints.
	if len(res.Cells) != 2 {
		t.Errorf("expected straight path to simplify to 2 cells, got %d: %v", len(res.Cells), res.Cells)
	}
}

func TestRunStartEqualsGoal(t *testing.T) {
	res := Run(Cell{3, 3}, Cell{3, 3}, noneBlocker{}, Config{})
	if !res.Found || len(res.Cells) != 1 {
		t.Fatalf("expected a trivial one-cell path, got %+v", res)
	}
}

func TestRunAroundWall(t *testing.T) {
	b := wallBlocker{wallX: 5, gapY: 10}
	res := Run(Cell{0, 0}, Cell{10, 0}, b, Config{})
	if !res.Found {
		t.Fatalf("expected a path through the gap")
	}
	for _, c := range res.Cells {
		if b.Blocked(c.X, c.Y) {
			t.Fatalf("path crosses blocked cell %v", c)
		}
	}
}

func TestRunNoPath(t *testing.T) {
	b := wallBlocker{wallX: 5, gapY: 1 << 20} // gap far out of reach
	res := Run(Cell{0, 0}, Cell{10, 0}, b, Config{MaxIterations: 2000})
	if res.Found {
		t.Errorf("expected no path when the wall is unbroken within reach")
	}
}

func TestRunGoalExemptFromBlocker(t *testing.T) {
	// The goal itself reports blocked, but Run must still be able to step
	// onto it (the destination cell is exempt from blocking).
	b := blockEverything{goal: Cell{4, 0}}
	res := Run(Cell{0, 0}, Cell{4, 0}, b, Config{})
	if !res.Found {
		t.Fatalf("expected goal cell to be reachable despite reporting blocked")
	}
}

type blockEverything struct{ goal Cell }

func (b blockEverything) Blocked(x, y int32) bool {
	return Cell{x, y} != b.goal
}

func TestTurnClassWrapsAround(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 0, 0},
		{0, 1, 1},
		{0, 4, 4},
		{0, 7, 1},
		{7, 0, 1},
		{1, 6, 3},
	}
	for _, c := range cases {
		if got := turnClass(c.a, c.b); got != c.want {
			t.Errorf("turnClass(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestOctileHeuristicMatchesDiagonalShortcut(t *testing.T) {
	h := octile(3, 3)
	want := 3 * math.Sqrt2
	if math.Abs(h-want) > 1e-9 {
		t.Errorf("octile(3,3) = %v, want %v (three diagonal steps)", h, want)
	}
}
