// Package main implements scenelogic-diag, a small HTTP diagnostics server
// for a running scenelogic engine: it loads a saved scene, ticks it on an
// interval, and exposes its health, link graph, error log, and prometheus
// counters for an operator to poll. Routing follows the teacher's own
// chi-based admin surface (main.go's SetupRouter: chi.NewRouter, the
// standard middleware stack, a base-path-scoped admin route group).
package main

import (
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scenelogic/internal/binding/logreceiver"
	"scenelogic/pkg/logicengine"
)

const (
	defaultListenAddress = ":8181"
	defaultTickInterval  = 16 * time.Millisecond
)

func main() {
	scenePath := flag.String("scene", "", "path to a saved scene file (omit to start an empty engine)")
	addr := flag.String("addr", defaultListenAddress, "listen address")
	featureLevel := flag.Uint("feature-level", 1, "engine feature level")
	tickInterval := flag.Duration("tick", defaultTickInterval, "interval between update() ticks; 0 disables ticking")
	flag.Parse()

	cfg := logicengine.EngineConfig{
		FeatureLevel:  uint32(*featureLevel),
		DefaultScript: logicengine.DefaultScriptConfig(),
	}

	le, err := openEngine(*scenePath, cfg)
	if err != nil {
		log.Fatalf("scenelogic-diag: %v", err)
	}
	defer le.Close()

	d := &diagServer{engine: le}
	if *tickInterval > 0 {
		go d.runTicker(*tickInterval)
	}

	slog.Info("scenelogic_diag_listening", "addr", *addr, "scene", *scenePath, "tick", tickInterval.String())
	if err := http.ListenAndServe(*addr, d.router()); err != nil {
		log.Fatal(err)
	}
}

// openEngine starts a fresh engine, or loads one from scenePath if given.
// Every resurrected Binding is wired to a logreceiver stub: scenelogic-diag
// inspects graph structure, it does not drive a real scene.
func openEngine(scenePath string, cfg logicengine.EngineConfig) (*logicengine.LogicEngine, error) {
	if scenePath == "" {
		return logicengine.New(cfg), nil
	}
	f, err := os.Open(scenePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	resolver := func(name string, id uint64) (logicengine.Receiver, bool) {
		return logreceiver.New(name, nil), true
	}
	return logicengine.Load(f, cfg, resolver)
}

// diagServer holds the one engine instance this process diagnoses. Per
// spec.md §5 the engine is single-threaded, so every handler and the
// ticker goroutine share it without a mutex by never running concurrently:
// the ticker is the only writer, and handlers only read.
type diagServer struct {
	engine *logicengine.LogicEngine
}

func (d *diagServer) runTicker(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		if err := d.engine.Update(); err != nil {
			slog.Error("tick_failed", "error", err)
		}
	}
}

// router wires the admin endpoints behind the teacher's standard chi
// middleware stack (request logging, panic recovery, request ids) plus
// go-chi/metrics' request-duration instrumentation.
func (d *diagServer) router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	reg := prometheus.NewRegistry()
	d.engine.Metrics().Register(reg)

	r.Get("/healthz", d.handleHealthz)
	r.Get("/graph", d.handleGraph)
	r.Get("/errors", d.handleErrors)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("diag_encode_failed", "error", err)
	}
}

func (d *diagServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// graphNode is one node in the /graph JSON dump: just enough to draw the
// link graph without requiring a caller to understand every logic node
// kind's own schema.
type graphNode struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Dirty  bool   `json:"dirty,omitempty"`
	Linked bool   `json:"linked"`
}

type graphEdge struct {
	SrcNodeID uint64 `json:"src_node_id"`
	DstNodeID uint64 `json:"dst_node_id"`
	Weak      bool   `json:"weak"`
}

type graphDump struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

var allKinds = []logicengine.Kind{
	logicengine.KindScript, logicengine.KindInterface, logicengine.KindModule,
	logicengine.KindDataArray, logicengine.KindAnimation, logicengine.KindTimer,
	logicengine.KindBinding,
}

func (d *diagServer) handleGraph(w http.ResponseWriter, r *http.Request) {
	dump := graphDump{}
	for _, kind := range allKinds {
		for _, o := range d.engine.All(kind) {
			dump.Nodes = append(dump.Nodes, graphNode{
				ID:     o.ID,
				Name:   o.Name,
				Kind:   string(o.Kind),
				Dirty:  o.Dirty(),
				Linked: d.engine.IsLinked(o),
			})
		}
	}
	for _, e := range d.engine.Edges() {
		dump.Edges = append(dump.Edges, graphEdge{SrcNodeID: e.SrcNodeID, DstNodeID: e.DstNodeID, Weak: e.Weak})
	}
	writeJSON(w, http.StatusOK, dump)
}

func (d *diagServer) handleErrors(w http.ResponseWriter, r *http.Request) {
	errs := d.engine.Errors()
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}
