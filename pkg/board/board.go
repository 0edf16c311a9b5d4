// Package board holds the read-only PCB model the routing engine consumes:
// pads, static traces, vias, the board outline, and the net name table. The
// board is parsed once at load time and never mutated afterward — it is the
// read-only collaborator.
package board

import (
	"encoding/json"
	"fmt"
	"io"

	"pcbroute/pkg/shape"
)

// LayerID identifies a copper layer by name (e.g. "F.Cu", "B.Cu", "In1.Cu").
type LayerID string

// Pad is a single-layer (or multi-layer) footprint pad.
type Pad struct {
	Center         [2]float64 `json:"center"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
	Shape          string     `json:"shape"` // circle | rect | roundrect | oval
	AngleDeg       float64    `json:"angle"`
	RoundRectRatio float64    `json:"roundrect_ratio"`
	Layers         []LayerID  `json:"layers"`
	NetID          int        `json:"net_id"`
	Drill          float64    `json:"drill"`
}

// ShapeKind maps the pad's string shape tag to a shape.Kind.
func (p Pad) ShapeKind() shape.Kind {
	switch p.Shape {
	case "circle":
		return shape.Circle
	case "roundrect":
		return shape.RoundRect
	case "oval":
		return shape.Oval
	default:
		return shape.Rect
	}
}

// ToShapePad converts a board Pad into the shape package's distance/hull
// input type.
func (p Pad) ToShapePad() shape.Pad {
	return shape.Pad{
		Center:         p.Center,
		Width:          p.Width,
		Height:         p.Height,
		Kind:           p.ShapeKind(),
		AngleDeg:       p.AngleDeg,
		RoundRectRatio: p.RoundRectRatio,
	}
}

// OnLayer reports whether the pad has copper on the given layer.
func (p Pad) OnLayer(layer LayerID) bool {
	for _, l := range p.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

// Trace is a static, already-committed trace segment (a capsule).
type Trace struct {
	Start [2]float64 `json:"start"`
	End   [2]float64 `json:"end"`
	Width float64    `json:"width"`
	Layer LayerID    `json:"layer"`
	NetID int        `json:"net_id"`
}

// Via spans every copper layer implicitly.
type Via struct {
	Center    [2]float64 `json:"center"`
	OuterSize float64    `json:"outer_size"`
	Drill     float64    `json:"drill"`
	NetID     int        `json:"net_id"`
}

// EdgeCut is a board-outline polyline segment; routing outside it is
// forbidden.
type EdgeCut struct {
	Start [2]float64 `json:"start"`
	End   [2]float64 `json:"end"`
}

// BBox is the board's overall bounding box.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Inflated returns bb grown by r on every side.
func (bb BBox) Inflated(r float64) BBox {
	return BBox{MinX: bb.MinX - r, MinY: bb.MinY - r, MaxX: bb.MaxX + r, MaxY: bb.MaxY + r}
}

// Board is the read-only parsed PCB model.
type Board struct {
	Pads     []Pad             `json:"pads"`
	Traces   []Trace           `json:"traces"`
	Vias     []Via             `json:"vias"`
	EdgeCuts []EdgeCut         `json:"edge_cuts"`
	Nets     map[int]string    `json:"nets"`
	Layers   []LayerID         `json:"layers"`
}

// Bounds computes the board's bounding box from pads, traces, vias, and edge
// cuts.
func (b *Board) Bounds() BBox {
	first := true
	var bb BBox
	consider := func(x, y float64) {
		if first {
			bb = BBox{x, y, x, y}
			first = false
			return
		}
		if x < bb.MinX {
			bb.MinX = x
		}
		if x > bb.MaxX {
			bb.MaxX = x
		}
		if y < bb.MinY {
			bb.MinY = y
		}
		if y > bb.MaxY {
			bb.MaxY = y
		}
	}
	for _, p := range b.Pads {
		consider(p.Center[0], p.Center[1])
	}
	for _, tr := range b.Traces {
		consider(tr.Start[0], tr.Start[1])
		consider(tr.End[0], tr.End[1])
	}
	for _, v := range b.Vias {
		consider(v.Center[0], v.Center[1])
	}
	for _, ec := range b.EdgeCuts {
		consider(ec.Start[0], ec.Start[1])
		consider(ec.End[0], ec.End[1])
	}
	if first {
		return BBox{}
	}
	return bb
}

// PadsOnLayer returns every pad with copper on layer.
func (b *Board) PadsOnLayer(layer LayerID) []Pad {
	var out []Pad
	for _, p := range b.Pads {
		if p.OnLayer(layer) {
			out = append(out, p)
		}
	}
	return out
}

// TracesOnLayer returns every static trace on layer.
func (b *Board) TracesOnLayer(layer LayerID) []Trace {
	var out []Trace
	for _, tr := range b.Traces {
		if tr.Layer == layer {
			out = append(out, tr)
		}
	}
	return out
}

// Load parses a board from JSON. This is the minimal concrete board
// representation the core needs to exercise every operation end-to-end;
// the full parser (schematic capture format, Gerber, KiCad, etc.) is the
// external collaborator and is not the core's concern.
func Load(r io.Reader) (*Board, error) {
	var b Board
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("board: decode: %w", err)
	}
	if b.Nets == nil {
		b.Nets = map[int]string{}
	}
	return &b, nil
}
