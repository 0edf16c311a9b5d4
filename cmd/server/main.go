package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/fsnotify/fsnotify"

	"pcbroute/pkg/api"
	"pcbroute/pkg/board"
	"pcbroute/pkg/pending"
	"pcbroute/pkg/router"
)

func main() {
	boardPath := flag.String("board", "board.json", "Path to the board JSON file")
	pendingPath := flag.String("pending", "pending.json", "Path to the pending-trace store file")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	preferAstar := flag.Bool("astar", false, "Use the A* grid backend instead of walkaround")
	watch := flag.Bool("watch", false, "Reload the board and rebuild obstacle grids when the board file changes")
	flag.Parse()

	start := time.Now()

	cfg := router.DefaultConfig()
	cfg.PreferAstar = *preferAstar

	store, err := pending.Load(*pendingPath)
	if err != nil {
		log.Fatalf("Failed to load pending store: %v", err)
	}

	rt, stats, err := loadRouter(*boardPath, store, cfg)
	if err != nil {
		log.Fatalf("Failed to load board: %v", err)
	}

	// Reclaim memory from init-time temporaries. Without this, Go's heap
	// retains peak RSS from grid construction (GC doubles heap each cycle).
	// This returns unused pages to the OS.
	runtime.GC()
	debug.FreeOSMemory()

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	handle := api.NewRouterHandle(rt)

	if *watch {
		go watchBoard(*boardPath, store, cfg, handle)
	}

	addr := fmt.Sprintf(":%d", *port)
	srvCfg := api.DefaultConfig(addr)
	srvCfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(handle, stats)
	srv := api.NewServer(srvCfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}

func loadRouter(boardPath string, store *pending.Store, cfg router.Config) (*router.Router, api.StatsResponse, error) {
	log.Printf("Loading board from %s...", boardPath)
	f, err := os.Open(boardPath)
	if err != nil {
		return nil, api.StatsResponse{}, err
	}
	b, err := board.Load(f)
	f.Close()
	if err != nil {
		return nil, api.StatsResponse{}, err
	}
	log.Printf("Loaded: %d pads, %d traces, %d vias, %d layers",
		len(b.Pads), len(b.Traces), len(b.Vias), len(b.Layers))

	rt := router.New(b, store, cfg)
	stats := api.StatsResponse{
		NumPads:   len(b.Pads),
		NumTraces: len(b.Traces),
		NumVias:   len(b.Vias),
		NumLayers: len(b.Layers),
	}
	return rt, stats, nil
}

// watchBoard rebuilds the router and swaps it into handle whenever boardPath
// is written, so long-running servers pick up board edits without a
// restart. Editors that replace the file (write-then-rename) surface as a
// Remove event on the old inode followed by a Create on the new one, so
// Create is treated as a reload trigger alongside Write; Remove is not.
func watchBoard(boardPath string, store *pending.Store, cfg router.Config, handle *api.RouterHandle) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("watch: failed to start watcher: %v", err)
		return
	}
	defer w.Close()

	dir := filepath.Dir(boardPath)
	if err := w.Add(dir); err != nil {
		log.Printf("watch: failed to watch %s: %v", dir, err)
		return
	}

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(boardPath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rt, _, err := loadRouter(boardPath, store, cfg)
			if err != nil {
				log.Printf("watch: reload failed, keeping previous board: %v", err)
				continue
			}
			handle.Swap(rt)
			log.Printf("watch: board reloaded from %s", boardPath)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}
