package api

import "pcbroute/pkg/board"

// RouteAPIRequest is the wire shape of a route request.
type RouteAPIRequest struct {
	Start            [2]float64    `json:"start"`
	End              [2]float64    `json:"end"`
	Layer            board.LayerID `json:"layer"`
	Width            float64       `json:"width"`
	NetID            *int          `json:"net_id,omitempty"`
	ReferencePath    [][2]float64  `json:"reference_path,omitempty"`
	ReferenceSpacing float64       `json:"reference_spacing,omitempty"`
}

// RouteAPIResponse carries the returned polyline.
type RouteAPIResponse struct {
	Path [][2]float64 `json:"path"`
}

// CheckViaRequest is the wire shape of a checkVia request.
type CheckViaRequest struct {
	Center [2]float64 `json:"center"`
	Radius float64    `json:"radius"`
	NetID  *int       `json:"net_id,omitempty"`
}

// CheckViaResponse reports the via-clearance verdict.
type CheckViaResponse struct {
	OK    bool          `json:"ok"`
	Layer board.LayerID `json:"layer,omitempty"`
}

// RegisterTraceRequest mirrors pending.Trace over the wire.
type RegisterTraceRequest struct {
	ID       string        `json:"id"`
	Segments [][2]float64  `json:"segments"`
	Width    float64       `json:"width"`
	Layer    board.LayerID `json:"layer"`
	NetID    *int          `json:"net_id,omitempty"`
}

// RemoveTraceRequest names a pending trace by id.
type RemoveTraceRequest struct {
	ID string `json:"id"`
}

// RemoveTraceResponse reports whether the id existed.
type RemoveTraceResponse struct {
	Removed bool `json:"removed"`
}

// FindNetResponse reports the net resolved at a point.
type FindNetResponse struct {
	NetID int  `json:"net_id"`
	Found bool `json:"found"`
}

// ErrorResponse is the JSON body returned on any handler failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsResponse reports board-load counters, surfaced on GET /api/v1/stats.
type StatsResponse struct {
	NumPads   int `json:"num_pads"`
	NumTraces int `json:"num_traces"`
	NumVias   int `json:"num_vias"`
	NumLayers int `json:"num_layers"`
}
