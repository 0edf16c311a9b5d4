// Package astar implements a weighted A* grid pathfinder:
// 8-connected, octile heuristic, turn-cost penalties, diagonal corner-cut
// rejection, same-net allow-list, and a pending-trace extra-block set.
package astar

import (
	"math"
)

// HeuristicWeight is the default weighted-A* multiplier (inadmissible but
// fast).
const HeuristicWeight = 1.5

// MaxIterations is the default safety cap on popped nodes.
const MaxIterations = 100_000

// DefaultTurnPenalty indexes the cost added per turn class, by the minimum
// wrap-around difference in direction indices.
var DefaultTurnPenalty = map[int]float64{0: 0, 1: 0.1, 2: 0.5, 3: 1.5, 4: 3.0}

// dirs is N, NE, E, SE, S, SW, W, NW as (dx,dy) grid offsets.
var dirs = [8][2]int32{
	{0, 1}, {1, 1}, {1, 0}, {1, -1},
	{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
}

func dirCost(i int) float64 {
	if i%2 == 0 {
		return 1
	}
	return math.Sqrt2
}

type cellKey int64

func packCell(gx, gy int32) cellKey {
	return cellKey(gx)<<32 | cellKey(uint32(gy))
}

func unpackCell(k cellKey) (int32, int32) {
	return int32(k >> 32), int32(uint32(k))
}

// Cell is a grid coordinate.
type Cell struct{ X, Y int32 }

// Blocker answers whether a cell is blocked: blocked iff
// in base∪extra and not in allowed. The goal cell is exempt from this test
// by the caller (Run never calls Blocked on the goal).
type Blocker interface {
	Blocked(x, y int32) bool
}

// Config tunes the search; zero-value fields fall back to the package
// defaults.
type Config struct {
	HeuristicWeight float64
	TurnPenalty     map[int]float64
	MaxIterations   int
}

func (c Config) weight() float64 {
	if c.HeuristicWeight > 0 {
		return c.HeuristicWeight
	}
	return HeuristicWeight
}

func (c Config) turnPenalty() map[int]float64 {
	if c.TurnPenalty != nil {
		return c.TurnPenalty
	}
	return DefaultTurnPenalty
}

func (c Config) maxIterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return MaxIterations
}

// octile is the admissible heuristic for 8-connected grids.
func octile(dx, dy int32) float64 {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	fx, fy := float64(dx), float64(dy)
	if fx < fy {
		fx, fy = fy, fx
	}
	return fx + (math.Sqrt2-1)*fy
}

func turnClass(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 4 {
		d = 8 - d
	}
	return d
}

// Result is the outcome of a grid search.
type Result struct {
	Found bool
	Cells []Cell
}

// Run searches from start to goal using blocker to test cell validity. The
// goal cell is never tested against blocker (it is exempt from blocking),
// so a route may land on its own target pad even if the pad's inflation
// covers the goal cell.
func Run(start, goal Cell, blocker Blocker, cfg Config) Result {
	if start == goal {
		return Result{Found: true, Cells: []Cell{start}}
	}

	w := cfg.weight()
	turnPen := cfg.turnPenalty()
	maxIter := cfg.maxIterations()

	startKey := packCell(start.X, start.Y)
	goalKey := packCell(goal.X, goal.Y)

	gScore := map[cellKey]float64{startKey: 0}
	parent := map[cellKey]cellKey{}
	closed := map[cellKey]bool{}

	var open MinHeap
	open.Push(heapItem{key: startKey, priority: w * octile(goal.X-start.X, goal.Y-start.Y), gCost: 0, dir: -1})

	iterations := 0
	for open.Len() > 0 {
		iterations++
		if iterations > maxIter {
			return Result{}
		}
		cur := open.Pop()
		if closed[cur.key] {
			continue
		}
		if g, ok := gScore[cur.key]; ok && cur.gCost > g+1e-9 {
			continue
		}
		closed[cur.key] = true

		if cur.key == goalKey {
			return Result{Found: true, Cells: reconstruct(goalKey, startKey, parent)}
		}

		cx, cy := unpackCell(cur.key)
		for di, d := range dirs {
			nx, ny := cx+d[0], cy+d[1]
			nKey := packCell(nx, ny)
			if nKey != goalKey {
				if blocker.Blocked(nx, ny) {
					continue
				}
				// Diagonal corner-cut rejection: both side cells must be
				// unblocked. The goal stays exempt as a side cell too.
				if di%2 == 1 {
					sideA, sideB := packCell(cx+d[0], cy), packCell(cx, cy+d[1])
					if (sideA != goalKey && blocker.Blocked(cx+d[0], cy)) ||
						(sideB != goalKey && blocker.Blocked(cx, cy+d[1])) {
						continue
					}
				}
			}

			penalty := 0.0
			if cur.dir >= 0 {
				penalty = turnPen[turnClass(int(cur.dir), di)]
			}
			newG := cur.gCost + dirCost(di) + penalty

			if g, ok := gScore[nKey]; !ok || newG < g-1e-12 {
				gScore[nKey] = newG
				parent[nKey] = cur.key
				h := w * octile(goal.X-nx, goal.Y-ny)
				open.Push(heapItem{key: nKey, priority: newG + h, gCost: newG, dir: int8(di)})
			}
		}
	}
	return Result{}
}

// reconstruct backtracks parent pointers from goal to start, then merges
// consecutive cells sharing the same unit direction.
func reconstruct(goalKey, startKey cellKey, parent map[cellKey]cellKey) []Cell {
	var raw []Cell
	k := goalKey
	for {
		x, y := unpackCell(k)
		raw = append(raw, Cell{x, y})
		if k == startKey {
			break
		}
		k = parent[k]
	}
	for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}
	return simplify(raw)
}

func simplify(cells []Cell) []Cell {
	if len(cells) < 3 {
		return cells
	}
	out := []Cell{cells[0]}
	prevDir := [2]int32{sign(cells[1].X - cells[0].X), sign(cells[1].Y - cells[0].Y)}
	for i := 1; i < len(cells)-1; i++ {
		d := [2]int32{sign(cells[i+1].X - cells[i].X), sign(cells[i+1].Y - cells[i].Y)}
		if d != prevDir {
			out = append(out, cells[i])
			prevDir = d
		}
	}
	out = append(out, cells[len(cells)-1])
	return out
}

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
