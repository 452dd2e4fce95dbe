package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"tile-planner/internal/config"
	"tile-planner/internal/graph"
	"tile-planner/internal/metrics"
	"tile-planner/internal/planner"
	"tile-planner/internal/world"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) toOrb() orb.Point {
	return orb.Point{p.X, p.Y}
}

func fromOrb(p orb.Point) Point {
	return Point{X: p[0], Y: p[1]}
}

func fromLineString(ls orb.LineString) []Point {
	pts := make([]Point, len(ls))
	for i, p := range ls {
		pts[i] = fromOrb(p)
	}
	return pts
}

type RouteRequest struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

type RouteResponse struct {
	Path     []Point `json:"path"`
	Corners  []Point `json:"corners,omitempty"`
	Success  bool    `json:"success"`
	Message  string  `json:"message,omitempty"`
	Cost     float64 `json:"cost,omitempty"`
	Level    int     `json:"level"`
	Fallback bool    `json:"fallback,omitempty"`
	Expanded int     `json:"expanded"`
}

type BatchRequest struct {
	Requests []RouteRequest `json:"requests"`
}

type BatchResponse struct {
	Results []RouteResponse `json:"results"`
}

type BuildRequest struct {
	Force      bool `json:"force,omitempty"`      // rebuild even if a hierarchy exists
	SaveToFile bool `json:"saveToFile,omitempty"` // write a snapshot to the configured snapshot_file
}

// server owns the active planner. Reloads swap it under mu; queries keep using the
// planner they started with.
type server struct {
	cfg     config.Server
	limiter *rate.Limiter

	mu      sync.RWMutex
	planner *planner.Planner
}

func newServer(cfg config.Server) *server {
	s := &server{cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	return s
}

func (s *server) current() *planner.Planner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.planner
}

func (s *server) setHierarchy(h *graph.Hierarchy) {
	p := planner.New(h, s.cfg.PlannerOptions())
	s.mu.Lock()
	s.planner = p
	s.mu.Unlock()
}

// loadWorld builds the world at path and makes it the active hierarchy.
func (s *server) loadWorld(path string) (*graph.Hierarchy, error) {
	h, elapsed, err := loadHierarchy(s.cfg, path)
	if err != nil {
		return nil, err
	}
	metrics.RecordBuild(elapsed, h.Stats())
	s.setHierarchy(h)
	return h, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/route", corsMiddleware(s.rateLimit(s.routeHandler)))
	mux.HandleFunc("/routes", corsMiddleware(s.rateLimit(s.routesHandler)))
	mux.HandleFunc("/buildHierarchy", corsMiddleware(s.buildHierarchyHandler))
	mux.HandleFunc("/getHierarchyLines", corsMiddleware(s.getHierarchyLinesHandler))
	mux.HandleFunc("/health", corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *server) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "err", err)
	}
}

func routeResponse(r planner.Route, err error) RouteResponse {
	if err != nil {
		return RouteResponse{Success: false, Message: err.Error(), Level: r.Level, Expanded: r.Expanded}
	}
	return RouteResponse{
		Path:     fromLineString(r.LineString()),
		Corners:  fromLineString(r.Corners()),
		Success:  true,
		Cost:     r.Cost,
		Level:    r.Level,
		Fallback: r.Fallback,
		Expanded: r.Expanded,
	}
}

// POST /route - Compute route with start and end points
func (s *server) routeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("invalid route request", "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p := s.current()
	if p == nil {
		http.Error(w, "Hierarchy not built. Call /buildHierarchy first", http.StatusBadRequest)
		return
	}

	route, err := p.FindPath(req.Start.toOrb(), req.End.toOrb())
	if err != nil && !errors.Is(err, planner.ErrNoPath) {
		slog.Error("route query failed", "start", req.Start, "end", req.End, "err", err)
		http.Error(w, "Route query failed", http.StatusInternalServerError)
		return
	}
	slog.Debug("route", "start", req.Start, "end", req.End, "steps", route.Len(), "level", route.Level, "err", err)

	writeJSON(w, http.StatusOK, routeResponse(route, err))
}

// POST /routes - Compute a batch of routes
func (s *server) routesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p := s.current()
	if p == nil {
		http.Error(w, "Hierarchy not built. Call /buildHierarchy first", http.StatusBadRequest)
		return
	}

	reqs := make([]planner.Request, len(req.Requests))
	for i, rr := range req.Requests {
		reqs[i] = planner.Request{From: rr.Start.toOrb(), To: rr.End.toOrb()}
	}
	results, err := p.FindPaths(r.Context(), reqs, s.cfg.MaxConcurrentQueries)
	if err != nil {
		slog.Warn("batch interrupted", "requests", len(reqs), "err", err)
		http.Error(w, "Batch interrupted", http.StatusServiceUnavailable)
		return
	}

	resp := BatchResponse{Results: make([]RouteResponse, len(results))}
	for i, res := range results {
		resp.Results[i] = routeResponse(res.Route, res.Err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /health - Health check endpoint
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	p := s.current()

	status := "ready"
	var levels []graph.LevelStats
	if p == nil {
		status = "waiting for hierarchy"
	} else {
		levels = p.Hierarchy().Stats()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"hasHierarchy": p != nil,
		"levels":       levels,
	})
}

// POST /buildHierarchy - Build the hierarchy from the configured world file
func (s *server) buildHierarchyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BuildRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if s.current() != nil && !req.Force {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error":   "hierarchy already exists",
			"message": "Hierarchy is already built. Set 'force: true' to rebuild.",
		})
		return
	}

	path := s.cfg.WorldFile
	if path == "" {
		http.Error(w, "No world file configured", http.StatusBadRequest)
		return
	}
	if req.SaveToFile && s.cfg.SnapshotFile == "" {
		http.Error(w, "No snapshot file configured", http.StatusBadRequest)
		return
	}

	h, err := s.loadWorld(path)
	metrics.RecordReload(err)
	if err != nil {
		slog.Error("hierarchy build failed", "world", path, "err", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	saved := false
	if req.SaveToFile {
		if err := world.SaveSnapshot(h, s.cfg.SnapshotFile); err != nil {
			slog.Warn("failed to save snapshot", "path", s.cfg.SnapshotFile, "err", err)
		} else {
			saved = true
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"world":   path,
		"levels":  h.Stats(),
		"saved":   saved,
	})
}

// GET /getHierarchyLines?level=N - Get level edges as line strings for visualization
func (s *server) getHierarchyLinesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := s.current()
	if p == nil {
		http.Error(w, "Hierarchy not built. Call /buildHierarchy first", http.StatusBadRequest)
		return
	}

	level := 0
	if q := r.URL.Query().Get("level"); q != "" {
		var err error
		if level, err = strconv.Atoi(q); err != nil {
			http.Error(w, "Invalid level", http.StatusBadRequest)
			return
		}
	}
	g := p.Hierarchy().Level(level)
	if g == nil {
		http.Error(w, "Unknown level", http.StatusNotFound)
		return
	}

	segments := g.Lines()
	lines := make([][]Point, len(segments))
	for i, ls := range segments {
		lines[i] = fromLineString(ls)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"level":    level,
		"lines":    lines,
		"numNodes": g.Len(),
		"numEdges": len(lines),
	})
}
