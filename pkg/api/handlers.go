package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"pcbroute/pkg/board"
	"pcbroute/pkg/geom"
	"pcbroute/pkg/pending"
	"pcbroute/pkg/router"
)

// RouterHandle holds the live Router behind an atomic pointer so a board
// reload (see cmd/server's -watch flag) can swap in a freshly built Router
// without a handler ever seeing a half-constructed one.
type RouterHandle struct {
	p atomic.Pointer[router.Router]
}

// NewRouterHandle wraps an already-constructed Router.
func NewRouterHandle(r *router.Router) *RouterHandle {
	h := &RouterHandle{}
	h.p.Store(r)
	return h
}

// Swap atomically replaces the live Router.
func (h *RouterHandle) Swap(r *router.Router) { h.p.Store(r) }

// Get returns the current live Router.
func (h *RouterHandle) Get() *router.Router { return h.p.Load() }

// Handlers binds the router facade to HTTP, translating RouteRequest/
// sentinel-error pairs into response bodies.
type Handlers struct {
	router *RouterHandle
	stats  StatsResponse
}

// NewHandlers builds the HTTP binding over a RouterHandle.
func NewHandlers(r *RouterHandle, stats StatsResponse) *Handlers {
	return &Handlers{router: r, stats: stats}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// HandleRoute implements POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rr := router.RouteRequest{
		Start: geom.Point{req.Start[0], req.Start[1]},
		End:   geom.Point{req.End[0], req.End[1]},
		Layer: req.Layer,
		Width: req.Width,
		NetID: req.NetID,
	}
	if len(req.ReferencePath) >= 2 {
		ref := make([]geom.Point, len(req.ReferencePath))
		for i, p := range req.ReferencePath {
			ref[i] = geom.Point{p[0], p[1]}
		}
		rr.ReferencePath = ref
		rr.ReferenceSpacing = req.ReferenceSpacing
	}

	path, err := h.router.Get().Route(r.Context(), rr)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	out := make([][2]float64, len(path))
	for i, p := range path {
		out[i] = [2]float64{p[0], p[1]}
	}
	writeJSON(w, http.StatusOK, RouteAPIResponse{Path: out})
}

// writeRouteError maps Route's sentinel errors to HTTP status codes.
func writeRouteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, router.ErrNoRoute):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, router.ErrStartBlocked), errors.Is(err, router.ErrEndBlocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, router.ErrDifferentNetEndpoint):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// HandleCheckVia implements POST /api/v1/check-via.
func (h *Handlers) HandleCheckVia(w http.ResponseWriter, r *http.Request) {
	var req CheckViaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ok, layer := h.router.Get().CheckVia(geom.Point{req.Center[0], req.Center[1]}, req.Radius, req.NetID)
	writeJSON(w, http.StatusOK, CheckViaResponse{OK: ok, Layer: layer})
}

// HandleRegisterTrace implements POST /api/v1/traces.
func (h *Handlers) HandleRegisterTrace(w http.ResponseWriter, r *http.Request) {
	var req RegisterTraceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	tr := pending.Trace{
		ID:       req.ID,
		Segments: req.Segments,
		Width:    req.Width,
		Layer:    req.Layer,
		NetID:    req.NetID,
	}
	if err := h.router.Get().RegisterTrace(tr); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// HandleRemoveTrace implements DELETE /api/v1/traces/{id}.
func (h *Handlers) HandleRemoveTrace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	removed, err := h.router.Get().RemoveTrace(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RemoveTraceResponse{Removed: removed})
}

// HandleClearTraces implements DELETE /api/v1/traces.
func (h *Handlers) HandleClearTraces(w http.ResponseWriter, r *http.Request) {
	if err := h.router.Get().ClearTraces(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListTraces implements GET /api/v1/traces.
func (h *Handlers) HandleListTraces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.router.Get().ListTraces())
}

// HandleFindNet implements GET /api/v1/net-at.
func (h *Handlers) HandleFindNet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, y, layer, tolerance, ok := parseNetAtQuery(q)
	if !ok {
		writeError(w, http.StatusBadRequest, "x, y, and layer are required; tolerance, if given, must be a number")
		return
	}
	netID, found := h.router.Get().FindNetAtPoint(x, y, layer, tolerance)
	writeJSON(w, http.StatusOK, FindNetResponse{NetID: netID, Found: found})
}

func parseNetAtQuery(q url.Values) (x, y float64, layer board.LayerID, tolerance float64, ok bool) {
	var err error
	if x, err = strconv.ParseFloat(q.Get("x"), 64); err != nil {
		return 0, 0, "", 0, false
	}
	if y, err = strconv.ParseFloat(q.Get("y"), 64); err != nil {
		return 0, 0, "", 0, false
	}
	layerStr := q.Get("layer")
	if layerStr == "" {
		return 0, 0, "", 0, false
	}
	tolerance = 0.05
	if ts := q.Get("tolerance"); ts != "" {
		if tolerance, err = strconv.ParseFloat(ts, 64); err != nil {
			return 0, 0, "", 0, false
		}
	}
	return x, y, board.LayerID(layerStr), tolerance, true
}

// HandleHealth implements GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleStats implements GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}
