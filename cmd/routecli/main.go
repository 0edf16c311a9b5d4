// Command routecli runs a batch of route / check-via requests against a
// board file from the command line, without starting an HTTP server. Useful
// for smoke-testing a board fixture or scripting bulk route attempts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"pcbroute/pkg/board"
	"pcbroute/pkg/geom"
	"pcbroute/pkg/pending"
	"pcbroute/pkg/router"
)

// batchRequest is one line of the batch file: either a route or a
// check-via request, discriminated by Type.
type batchRequest struct {
	Type   string        `json:"type"` // "route" | "check-via"
	Start  [2]float64    `json:"start,omitempty"`
	End    [2]float64    `json:"end,omitempty"`
	Center [2]float64    `json:"center,omitempty"`
	Radius float64       `json:"radius,omitempty"`
	Layer  board.LayerID `json:"layer,omitempty"`
	Width  float64       `json:"width,omitempty"`
	NetID  *int          `json:"net_id,omitempty"`
}

func main() {
	boardPath := flag.String("board", "board.json", "Path to the board JSON file")
	pendingPath := flag.String("pending", "", "Path to a pending-trace store file (optional)")
	requestsPath := flag.String("requests", "", "Path to a JSON array of batch requests")
	preferAstar := flag.Bool("astar", false, "Use the A* grid backend instead of walkaround")
	flag.Parse()

	f, err := os.Open(*boardPath)
	if err != nil {
		log.Fatalf("open board: %v", err)
	}
	b, err := board.Load(f)
	f.Close()
	if err != nil {
		log.Fatalf("load board: %v", err)
	}

	var store *pending.Store
	if *pendingPath != "" {
		store, err = pending.Load(*pendingPath)
		if err != nil {
			log.Fatalf("load pending store: %v", err)
		}
	} else {
		store = pending.New()
	}

	cfg := router.DefaultConfig()
	cfg.PreferAstar = *preferAstar
	rt := router.New(b, store, cfg)

	if *requestsPath == "" {
		log.Fatal("-requests is required")
	}
	data, err := os.ReadFile(*requestsPath)
	if err != nil {
		log.Fatalf("read requests: %v", err)
	}
	var reqs []batchRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		log.Fatalf("parse requests: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for i, req := range reqs {
		switch req.Type {
		case "route":
			path, err := rt.Route(context.Background(), router.RouteRequest{
				Start: geom.Point{req.Start[0], req.Start[1]},
				End:   geom.Point{req.End[0], req.End[1]},
				Layer: req.Layer,
				Width: req.Width,
				NetID: req.NetID,
			})
			if err != nil {
				enc.Encode(map[string]any{"index": i, "type": "route", "error": err.Error()})
				continue
			}
			out := make([][2]float64, len(path))
			for j, p := range path {
				out[j] = [2]float64{p[0], p[1]}
			}
			enc.Encode(map[string]any{"index": i, "type": "route", "path": out})
		case "check-via":
			ok, layer := rt.CheckVia(geom.Point{req.Center[0], req.Center[1]}, req.Radius, req.NetID)
			enc.Encode(map[string]any{"index": i, "type": "check-via", "ok": ok, "layer": layer})
		default:
			enc.Encode(map[string]any{"index": i, "error": "unknown request type " + req.Type})
		}
	}
}
