// Package api provides the HTTP API for watching an expedition.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/ridgewalk/internal/agents"
	"github.com/talgya/ridgewalk/internal/engine"
	"github.com/talgya/ridgewalk/internal/persistence"
	"github.com/talgya/ridgewalk/internal/world"
)

// Server serves the expedition state over HTTP.
type Server struct {
	Exp      *engine.Expedition
	Eng      *engine.Engine
	DB       *persistence.DB // optional; enables stored trails
	Hub      *Hub            // stream fan-out; created on demand
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RunID    string

	srv *http.Server
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.Hub == nil {
		s.Hub = NewHub(maxStreamConns)
	}
	limits := NewRouteLimiter()

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/map/render", s.handleRender)
	mux.HandleFunc("/api/v1/scouts", s.handleScouts)
	mux.HandleFunc("/api/v1/scout/", limits.Wrap("scout", scoutQuota, s.handleScoutRoutes))
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stream", limits.Wrap("stream", streamQuota, s.handleStream))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", limits.Wrap("admin", adminQuota, s.adminOnly(s.handleSpeed)))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly guards POST requests with the admin bearer token. GET passes.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no RIDGEWALK_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	f := s.Exp.Field
	status := map[string]any{
		"name":    "Ridgewalk",
		"run_id":  s.RunID,
		"tick":    s.Eng.Tick(),
		"speed":   s.Eng.Speed(),
		"running": s.Eng.Running(),
		"terrain": map[string]any{
			"backing": f.Backing().String(),
			"sea":     f.Sea().String(),
			"rows":    f.Rows(),
			"columns": f.Columns(),
			"seed":    f.Seed(),
		},
		"stats":          s.Exp.Stats(),
		"stream_clients": s.Hub.Len(),
	}
	writeJSON(w, status)
}

// handleMap returns every classified column for map renderers.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	f := s.Exp.Field
	writeJSON(w, map[string]any{
		"rows":    f.Rows(),
		"columns": f.Columns(),
		"backing": f.Backing().String(),
		"summary": world.TerrainCounts(f),
		"cells":   world.Columns(f),
	})
}

// handleRender returns the ASCII map. ?scouts=false omits the scout arrows.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var marks map[world.Coord]rune
	if r.URL.Query().Get("scouts") != "false" {
		marks = s.Exp.Marks()
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, world.Render(s.Exp.Field, marks))
}

func (s *Server) handleScouts(w http.ResponseWriter, r *http.Request) {
	scouts := s.Exp.Scouts()
	if q := r.URL.Query().Get("looping"); q != "" {
		want := q == "true"
		filtered := scouts[:0]
		for _, v := range scouts {
			if v.Looping == want {
				filtered = append(filtered, v)
			}
		}
		scouts = filtered
	}
	writeJSON(w, scouts)
}

// handleScoutRoutes dispatches between GET /api/v1/scout/:id and
// GET /api/v1/scout/:id/trail.
func (s *Server) handleScoutRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/scout/"), "/")
	idStr, sub, _ := strings.Cut(path, "/")

	n, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid scout id", http.StatusBadRequest)
		return
	}
	id := agents.ScoutID(n)

	view, ok := s.Exp.Scout(id)
	if !ok {
		http.Error(w, "scout not found", http.StatusNotFound)
		return
	}

	switch sub {
	case "":
		writeJSON(w, view)
	case "trail":
		s.handleTrail(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleTrail returns the stored steps of one scout in the current run.
func (s *Server) handleTrail(w http.ResponseWriter, r *http.Request, id agents.ScoutID) {
	if s.DB == nil {
		http.Error(w, "trail storage not configured", http.StatusServiceUnavailable)
		return
	}
	limit := queryLimit(r, 100, 1000)
	steps, err := s.DB.Trail(s.RunID, id, limit)
	if err != nil {
		slog.Error("trail query failed", "scout", id, "error", err)
		http.Error(w, "trail query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, steps)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)
	events := s.Exp.Events(0)

	// Optional scout filter.
	if q := r.URL.Query().Get("scout"); q != "" {
		n, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			http.Error(w, "invalid scout id", http.StatusBadRequest)
			return
		}
		var filtered []engine.Event
		for _, e := range events {
			if e.ScoutID == agents.ScoutID(n) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// queryLimit reads ?limit=N, falling back to def outside 1..ceiling.
func queryLimit(r *http.Request, def, ceiling int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= ceiling {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
