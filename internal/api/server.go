// Package api serves read-only simulation state over HTTP, plus a small
// admin surface for speed control. GET endpoints are public; POST
// requires a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/inference"
	"github.com/sparkfield/sparkfield/internal/sim"
	"github.com/sparkfield/sparkfield/internal/world"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim      *sim.Simulation
	Eng      *sim.Engine
	Infer    *inference.Service
	Listen   string
	AdminKey string // bearer token for POST endpoints; empty disables them

	StreamInterval time.Duration // websocket frame cadence

	startedAt time.Time
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start(rateLimiter *RateLimiter) {
	s.startedAt = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/entities", s.handleEntities)
	mux.HandleFunc("/api/v1/entity/", s.handleEntityDetail)
	mux.HandleFunc("/api/v1/world", s.handleWorld)
	mux.HandleFunc("/api/v1/contests", s.handleContests)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/inference", s.handleInference)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	slog.Info("HTTP API starting", "addr", s.Listen, "admin_auth", s.AdminKey != "")

	go func() {
		handler := RateLimitMiddleware(rateLimiter, mux.ServeHTTP)
		if err := http.ListenAndServe(s.Listen, http.HandlerFunc(handler)); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// adminOnly requires bearer token auth on POST requests. GETs pass
// through so the same route can report current state.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled", http.StatusForbidden)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	food, energy := s.Sim.HeldResources()

	writeJSON(w, map[string]any{
		"name":        "Sparkfield",
		"tick":        s.Sim.CurrentTick(),
		"sim_time":    s.Sim.Now(),
		"speed":       s.Eng.Speed(),
		"running":     s.Eng.Running(),
		"population":  s.Sim.Population(),
		"faded":       s.Sim.Faded(),
		"uptime":      humanize.Time(s.startedAt),
		"held_food":   humanize.CommafWithDigits(food, 1),
		"held_energy": humanize.CommafWithDigits(energy, 1),
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	type entitySummary struct {
		ID        entity.ID  `json:"id"`
		Profile   string     `json:"profile"`
		State     string     `json:"state"`
		Pos       world.Vec2 `json:"pos"`
		Food      float64    `json:"food"`
		Energy    float64    `json:"energy"`
		Territory bool       `json:"territory"`
		Penalized bool       `json:"penalized"`
		Inference string     `json:"inference"`
	}

	var result []entitySummary
	for _, e := range s.Sim.EntitySummaries() {
		result = append(result, entitySummary{
			ID:        e.ID,
			Profile:   string(e.Profile),
			State:     entity.StateName(e.State),
			Pos:       e.Pos,
			Food:      e.Food,
			Energy:    e.Energy,
			Territory: e.Territory != nil,
			Penalized: e.Penalized,
			Inference: entity.InferenceStatusName(e.Inference),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleEntityDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 {
		http.Error(w, "missing entity id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		http.Error(w, "invalid entity id", http.StatusBadRequest)
		return
	}

	e, ok := s.Sim.EntityDetails(entity.ID(id))
	if !ok {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}

	type memoryView struct {
		Kind       string     `json:"kind"`
		Pos        world.Vec2 `json:"pos"`
		Time       float64    `json:"time"`
		Importance float64    `json:"importance"`
		Quantity   float64    `json:"quantity,omitempty"`
	}
	memories := make([]memoryView, 0, len(e.Memories))
	for _, m := range e.Memories {
		memories = append(memories, memoryView{
			Kind:       entity.KindName(m.Kind),
			Pos:        m.Pos,
			Time:       m.Time,
			Importance: m.Importance,
			Quantity:   m.Quantity,
		})
	}

	writeJSON(w, map[string]any{
		"id":         e.ID,
		"profile":    e.Profile,
		"state":      entity.StateName(e.State),
		"pos":        e.Pos,
		"home":       e.Home,
		"food":       e.Food,
		"max_food":   e.MaxFood,
		"energy":     e.Energy,
		"max_energy": e.MaxEnergy,
		"params":     e.Params,
		"territory":  e.Territory,
		"penalty":    e.Penalty,
		"inference": map[string]any{
			"status":         entity.InferenceStatusName(e.InferState.Status),
			"last_time":      e.InferState.LastTime,
			"last_reasoning": e.InferState.LastReasoning,
			"generation":     e.InferState.Generation,
		},
		"memories": memories,
	})
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	g := s.Sim.Grid
	snapshot, food, energy := s.Sim.WorldCells()

	type cellEntry struct {
		Terrain string  `json:"terrain"`
		Food    float64 `json:"food,omitempty"`
		Energy  float64 `json:"energy,omitempty"`
	}
	cells := make([]cellEntry, 0, len(snapshot))
	for _, c := range snapshot {
		cells = append(cells, cellEntry{
			Terrain: world.TerrainName(c.Terrain),
			Food:    c.Food,
			Energy:  c.Energy,
		})
	}
	writeJSON(w, map[string]any{
		"cols":         g.Cols,
		"rows":         g.Rows,
		"cell_size":    g.CellSize,
		"total_food":   food,
		"total_energy": energy,
		"cells":        cells,
	})
}

func (s *Server) handleContests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.RecentContests())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rows := s.Sim.StatsRows()
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	writeJSON(w, rows)
}

func (s *Server) handleInference(w http.ResponseWriter, r *http.Request) {
	if s.Infer == nil {
		writeJSON(w, map[string]any{"enabled": false})
		return
	}
	snap := s.Infer.Metrics().Snapshot()
	writeJSON(w, map[string]any{
		"enabled":         true,
		"dispatched":      snap.Dispatched,
		"succeeded":       snap.Succeeded,
		"failed":          snap.Failed,
		"timed_out":       snap.TimedOut,
		"dropped":         snap.Dropped,
		"mean_latency":    fmt.Sprintf("%.2fs", snap.MeanLatencySec),
		"recent_requests": snap.Recent,
	})
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
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
