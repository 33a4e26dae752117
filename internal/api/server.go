// Package api provides the HTTP API for querying simulation state.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/realmsim/internal/engine"
	"github.com/talgya/realmsim/internal/persistence"
	"github.com/talgya/realmsim/internal/registry"
)

// Server serves the simulation state over HTTP.
//
// The tick loop owns the state graph; handlers read it without locks
// and may observe a torn day, which is acceptable for observation
// endpoints. Internal slices are never served directly: every handler
// copies into response structs.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // bearer token for POST endpoints; empty = POST disabled
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	archiveLimiter := NewRateLimiter(s.Sim.State.Tun.ArchiveRatePerHour, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/snapshots", s.handleSnapshotHistory)
	mux.HandleFunc("/api/v1/goods", s.handleGoods)
	mux.HandleFunc("/api/v1/counties", s.handleCounties)
	mux.HandleFunc("/api/v1/county/", s.handleCountyDetail)
	mux.HandleFunc("/api/v1/provinces", s.handleProvinces)
	mux.HandleFunc("/api/v1/realms", s.handleRealms)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/archive", RateLimitMiddleware(archiveLimiter, s.handleArchive))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
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

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST
// requests. GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no REALMSIM_ADMIN_KEY set)", http.StatusForbidden)
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
	snap := s.Sim.Analytics.Latest()

	status := map[string]any{
		"name":      "Realmsim",
		"day":       s.Sim.CurrentTick(),
		"sim_time":  s.Eng.SimTime(s.Sim.CurrentTick()),
		"speed":     s.Eng.Speed,
		"running":   s.Eng.Running,
		"counties":  len(s.Sim.State.Counties),
		"provinces": len(s.Sim.State.Provinces),
		"realms":    len(s.Sim.State.Realms),
		"perf":      s.Sim.Stats,
	}
	if snap != nil {
		status["population"] = snap.TotalPopulation
		status["satisfaction"] = snap.SatisfactionAvg
		status["starving_counties"] = snap.StarvingCounties
	}
	writeJSON(w, status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Analytics.Latest()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 365 {
			limit = n
		}
	}

	// Prefer the database when present, falling back to the in-memory
	// ring for fresh runs.
	if s.DB != nil {
		if rows, err := s.DB.Snapshots(limit); err == nil && len(rows) > 0 {
			writeJSON(w, rows)
			return
		}
	}
	series := s.Sim.Analytics.Series()
	if len(series) > limit {
		series = series[len(series)-limit:]
	}
	writeJSON(w, series)
}

func (s *Server) handleGoods(w http.ResponseWriter, r *http.Request) {
	reg := s.Sim.State.Reg

	type goodEntry struct {
		ID        int     `json:"id"`
		Name      string  `json:"name"`
		Tier      string  `json:"tier"`
		BasePrice float64 `json:"base_price"`
		Price     float64 `json:"price"`
		Tradeable bool    `json:"tradeable"`
	}
	tierNames := map[registry.NeedTier]string{
		registry.TierNone:    "none",
		registry.TierStaple:  "staple",
		registry.TierBasic:   "basic",
		registry.TierComfort: "comfort",
		registry.TierLuxury:  "luxury",
	}

	result := make([]goodEntry, 0, reg.GoodCount())
	for g := range reg.Goods {
		def := &reg.Goods[g]
		result = append(result, goodEntry{
			ID:        int(def.ID),
			Name:      def.Name,
			Tier:      tierNames[def.Tier],
			BasePrice: def.BasePrice,
			Price:     s.Sim.State.MarketPrice[g],
			Tradeable: def.Tradeable,
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	type countySummary struct {
		ID           int     `json:"id"`
		Province     int     `json:"province"`
		Population   float64 `json:"population"`
		Treasury     float64 `json:"treasury"`
		Satisfaction float64 `json:"satisfaction"`
		Shortfall    float64 `json:"staple_shortfall"`
		Facilities   int     `json:"facilities"`
	}

	st := s.Sim.State
	result := make([]countySummary, 0, len(st.Counties))
	for i := range st.Counties {
		c := &st.Counties[i]
		result = append(result, countySummary{
			ID:           c.ID,
			Province:     c.Province,
			Population:   c.Population,
			Treasury:     c.Treasury,
			Satisfaction: c.BasicSatisfaction,
			Shortfall:    c.StapleShortfall,
			Facilities:   len(c.Facilities),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleCountyDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 {
		http.Error(w, "missing county id", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(parts[4])
	st := s.Sim.State
	if err != nil || id < 0 || id >= len(st.Counties) {
		http.Error(w, "invalid county id", http.StatusBadRequest)
		return
	}
	c := &st.Counties[id]
	reg := st.Reg

	type goodRow struct {
		Name        string  `json:"name"`
		Stock       float64 `json:"stock"`
		Production  float64 `json:"production"`
		Consumption float64 `json:"consumption"`
		UnmetNeed   float64 `json:"unmet_need"`
		Quota       float64 `json:"quota"`
	}
	goods := make([]goodRow, 0, reg.GoodCount())
	for g := range reg.Goods {
		goods = append(goods, goodRow{
			Name:        reg.Goods[g].Name,
			Stock:       c.Stock[g],
			Production:  c.Production[g],
			Consumption: c.Consumption[g],
			UnmetNeed:   c.UnmetNeed[g],
			Quota:       c.FacilityQuota[g],
		})
	}

	type facilityRow struct {
		Type       string  `json:"type"`
		Throughput float64 `json:"throughput"`
		Workers    float64 `json:"workers"`
	}
	facs := make([]facilityRow, 0, len(c.Facilities))
	for _, fi := range c.Facilities {
		f := &st.Facilities[fi]
		name := "unknown"
		if def := reg.Facility(f.Type); def != nil {
			name = def.Name
		}
		facs = append(facs, facilityRow{
			Type:       name,
			Throughput: f.Throughput,
			Workers:    f.Workers,
		})
	}

	writeJSON(w, map[string]any{
		"id":               c.ID,
		"province":         c.Province,
		"realm":            st.RealmOf(id),
		"population":       c.Population,
		"treasury":         c.Treasury,
		"satisfaction":     c.BasicSatisfaction,
		"staple_shortfall": c.StapleShortfall,
		"facility_workers": c.FacilityWorkers,
		"goods":            goods,
		"facilities":       facs,
	})
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	type provinceSummary struct {
		ID           int     `json:"id"`
		Realm        int     `json:"realm"`
		Population   float64 `json:"population"`
		Treasury     float64 `json:"treasury"`
		MarketCounty int     `json:"market_county"`
	}

	st := s.Sim.State
	result := make([]provinceSummary, 0, len(st.Provinces))
	for i := range st.Provinces {
		p := &st.Provinces[i]
		result = append(result, provinceSummary{
			ID:           p.ID,
			Realm:        p.Realm,
			Population:   p.PopCache,
			Treasury:     p.Treasury,
			MarketCounty: p.MarketCounty,
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleRealms(w http.ResponseWriter, r *http.Request) {
	type realmSummary struct {
		ID           int     `json:"id"`
		Population   float64 `json:"population"`
		Treasury     float64 `json:"treasury"`
		Minted       float64 `json:"minted"`
		MarketCounty int     `json:"market_county"`
	}

	st := s.Sim.State
	result := make([]realmSummary, 0, len(st.Realms))
	for i := range st.Realms {
		rl := &st.Realms[i]
		result = append(result, realmSummary{
			ID:           rl.ID,
			Population:   rl.PopCache,
			Treasury:     rl.Treasury,
			Minted:       rl.Minted,
			MarketCounty: rl.MarketCounty,
		})
	}
	writeJSON(w, result)
}

// handleMap returns the static county topology for map renderers.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	wld := s.Sim.World

	type countyEntry struct {
		ID       int   `json:"id"`
		Province int   `json:"province"`
		Land     int   `json:"land"`
		CoastLen int   `json:"coast_len"`
		Adjacent []int `json:"adjacent"`
	}

	counties := make([]countyEntry, 0, len(wld.Counties))
	for i := range wld.Counties {
		c := &wld.Counties[i]
		counties = append(counties, countyEntry{
			ID:       i,
			Province: c.Province,
			Land:     c.Land,
			CoastLen: c.CoastLen,
			Adjacent: wld.Adjacency[i],
		})
	}

	writeJSON(w, map[string]any{
		"width":     wld.Cfg.Width,
		"height":    wld.Cfg.Height,
		"counties":  counties,
		"provinces": len(wld.Provinces),
		"realms":    len(wld.Realms),
	})
}

// handleArchive streams the snapshot series as a zstd archive
// download. Rate-limited: building the archive walks the whole ring.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	series := s.Sim.Analytics.Series()
	if len(series) == 0 {
		http.Error(w, "no snapshots yet", http.StatusServiceUnavailable)
		return
	}

	tmp, err := os.CreateTemp("", "realmsim-archive-*.jsonl.zst")
	if err != nil {
		http.Error(w, "archive failed", http.StatusInternalServerError)
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := persistence.ExportArchive(tmpPath, series); err != nil {
		slog.Error("archive export failed", "error", err)
		http.Error(w, "archive failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", "attachment; filename=snapshots.jsonl.zst")
	http.ServeFile(w, r, tmpPath)
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
		s.Eng.Speed = req.Speed
		slog.Info("speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	if err := s.DB.SaveState(s.Sim.State, s.Sim.CurrentTick()); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true, "day": s.Sim.CurrentTick()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
