// Package api provides the HTTP API for the pet frontend.
// GET endpoints are read-only; POST endpoints mutate local state only, so no
// auth is required — the server binds for a single household pet.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/talgya/finagotchi/internal/advisor"
	"github.com/talgya/finagotchi/internal/engine"
	"github.com/talgya/finagotchi/internal/pet"
	"github.com/talgya/finagotchi/internal/session"
	"github.com/talgya/finagotchi/internal/store"
	"github.com/talgya/finagotchi/internal/vitals"
)

const (
	maxLiveConns     = 4
	maxRecentEvents  = 100
	liveWriteTimeout = 10 * time.Second
)

// Event is one UI-facing notification: an outcome banner, a death, an
// evolution. Kept in a ring for catch-up and pushed to live sockets.
type Event struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Server serves the pet state over HTTP.
type Server struct {
	Session *session.Session
	Store   *store.DB
	Vitals  *vitals.Store
	Eng     *engine.Engine
	Advisor *advisor.Client
	Port    int

	started time.Time

	eventsMu sync.Mutex
	events   []Event

	liveMu    sync.Mutex
	liveConns map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.started = time.Now()
	s.liveConns = make(map[*websocket.Conn]bool)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// The advisor-consuming endpoints get a modest per-IP budget so a
	// runaway frontend loop cannot hammer the remote service.
	adviseLimiter := NewRateLimiter(60, time.Hour)

	mux := http.NewServeMux()

	// Pet record.
	mux.HandleFunc("/api/v1/pet", s.handlePet)
	mux.HandleFunc("/api/v1/pets", s.handlePets)
	mux.HandleFunc("/api/v1/dossiers", s.handleDossiers)

	// Survival loop.
	mux.HandleFunc("/api/v1/vitals", s.handleVitals)
	mux.HandleFunc("/api/v1/action/", s.handleAction)
	mux.HandleFunc("/api/v1/poo/cleanup", s.handlePooCleanup)
	mux.HandleFunc("/api/v1/egg", s.handleEgg)

	// Advisory cycle.
	mux.HandleFunc("/api/v1/scenario", s.handleScenario)
	mux.HandleFunc("/api/v1/scenario/begin", RateLimitMiddleware(adviseLimiter, s.handleScenarioBegin))
	mux.HandleFunc("/api/v1/scenario/advise", RateLimitMiddleware(adviseLimiter, s.handleScenarioAdvise))
	mux.HandleFunc("/api/v1/scenario/feedback", s.handleScenarioFeedback)

	// Operational.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/speed", s.handleSpeed)

	// Live vitals stream (websocket).
	mux.HandleFunc("/api/v1/live", s.handleLive)

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "advisor", s.Advisor.Enabled())

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
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
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PushEvent records a UI notification and fans it out to live sockets.
// Wired to the session's outcome observer and the death callback.
func (s *Server) PushEvent(kind, message string) {
	ev := Event{Kind: kind, Message: message, At: time.Now()}

	s.eventsMu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > maxRecentEvents {
		s.events = s.events[len(s.events)-maxRecentEvents:]
	}
	s.eventsMu.Unlock()

	s.broadcast(map[string]any{"type": "event", "event": ev})
}

// petView is the frontend-facing pet projection: the raw record plus the
// derived presentation fields the renderer needs.
func (s *Server) petView(p *pet.Pet) map[string]any {
	form := p.CurrentEvolution()
	return map[string]any{
		"pet":         p,
		"form":        form,
		"description": pet.GetEvolution(form).Description,
		"written":     pet.WriteStats(p.MoralStats),
		"resolved":    p.ResolvedCount(),
		"rip":         p.IsRIP(),
		"graduated":   p.HasGraduated(),
	}
}

func (s *Server) handlePet(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p := s.Session.Pet()
		if p == nil {
			http.Error(w, "no active pet", http.StatusNotFound)
			return
		}
		writeJSON(w, s.petView(p))

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		p, err := s.Store.Create(req.Name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.Session.Adopt(p)
		s.Vitals.Initialize(p, nil)
		slog.Info("pet created", "pet", p.ID, "name", p.Name)
		writeJSON(w, s.petView(p))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		pets := s.Store.List()
		if pets == nil {
			pets = []pet.Pet{}
		}
		writeJSON(w, pets)

	case http.MethodDelete:
		if err := s.Store.ClearAll(); err != nil {
			slog.Error("reset failed", "error", err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		s.Session.Adopt(nil)
		s.Vitals.Initialize(nil, nil)
		slog.Info("all pet data cleared")
		writeJSON(w, map[string]any{"cleared": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDossiers returns a career summary for every stored pet, current and
// retired — the trophy shelf view.
func (s *Server) handleDossiers(w http.ResponseWriter, r *http.Request) {
	type dossier struct {
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		Form        pet.EvolutionID   `json:"form"`
		Description string            `json:"description"`
		Trait       string            `json:"trait,omitempty"`
		Age         int               `json:"age"`
		Personality string            `json:"personality,omitempty"`
		Written     []pet.StatWritten `json:"written"`
		Resolved    int               `json:"resolved"`
		RIP         bool              `json:"rip"`
		Graduated   bool              `json:"graduated"`
	}

	pets := s.Store.List()
	dossiers := make([]dossier, 0, len(pets))
	for i := range pets {
		p := &pets[i]
		form := p.CurrentEvolution()
		dossiers = append(dossiers, dossier{
			ID:          p.ID,
			Name:        p.Name,
			Form:        form,
			Description: pet.GetEvolution(form).Description,
			Trait:       pet.EvolutionTrait[form],
			Age:         p.Age,
			Personality: p.Personality,
			Written:     pet.WriteStats(p.MoralStats),
			Resolved:    p.ResolvedCount(),
			RIP:         p.IsRIP(),
			Graduated:   p.HasGraduated(),
		})
	}
	writeJSON(w, dossiers)
}

func (s *Server) handleVitals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.vitalsView())
}

func (s *Server) vitalsView() map[string]any {
	return map[string]any{
		"stats":             s.Vitals.Stats(),
		"poos":              s.Vitals.Poos(),
		"happy":             s.Vitals.Happy(),
		"almost_dead":       s.Vitals.AlmostDead(),
		"dead":              s.Vitals.Dead(),
		"recent_increments": s.Vitals.RecentIncrements(),
		"recent_decrements": s.Vitals.RecentDecrements(),
	}
}

// handleAction applies a care action: POST /api/v1/action/{feed,play,heal}.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/v1/action/")
	var counter vitals.Counter
	switch action {
	case "feed":
		counter = vitals.Hunger
	case "play":
		counter = vitals.Happiness
	case "heal":
		counter = vitals.Health
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	if s.Vitals.Dead() {
		http.Error(w, "pet is dead", http.StatusConflict)
		return
	}

	s.Vitals.Increment(counter, vitals.StandardIncrement)
	slog.Debug("care action", "action", action)
	writeJSON(w, s.vitalsView())
}

func (s *Server) handlePooCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Vitals.CleanupPoo(req.ID)
	writeJSON(w, map[string]any{"poos": s.Vitals.Poos()})
}

// handleEgg tracks the one-shot hatch animation flag so a reload does not
// replay the crack sequence.
func (s *Server) handleEgg(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var shown bool
		s.Store.GetDeviceState(store.KeyEggCrackShown, &shown)
		writeJSON(w, map[string]bool{"crack_shown": shown})

	case http.MethodPost:
		s.Store.SetDeviceState(store.KeyEggCrackShown, true)
		writeJSON(w, map[string]bool{"crack_shown": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"state":         s.Session.State().String(),
		"scenario":      s.Session.Current(),
		"last_decision": s.Session.LastDecision(),
	})
}

func (s *Server) handleScenarioBegin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d := s.Session.Begin(r.Context())
	writeJSON(w, map[string]any{
		"state":    s.Session.State().String(),
		"scenario": d,
	})
}

func (s *Server) handleScenarioAdvise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "advice text required", http.StatusBadRequest)
		return
	}

	s.Session.Submit(r.Context(), req.Text)
	writeJSON(w, map[string]any{
		"state":         s.Session.State().String(),
		"scenario":      s.Session.Current(),
		"last_decision": s.Session.LastDecision(),
	})
}

func (s *Server) handleScenarioFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := s.Session.Feedback(r.Context(), req.Action); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"state": s.Session.State().String(),
		"pet":   s.petView(s.Session.Pet()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "finagotchi",
		"tick":    s.Eng.TickCount(),
		"speed":   s.Eng.Speed(),
		"running": s.Eng.Running(),
		"uptime":  engine.Uptime(s.Eng.TickCount()).String(),
		"started": humanize.Time(s.started),
		"advisor": s.Advisor.Enabled(),
	}
	if p := s.Session.Pet(); p != nil {
		status["pet"] = p.Name
		status["form"] = p.CurrentEvolution()
		status["stage"] = humanize.Ordinal(p.Age + 1)
		status["resolved"] = p.ResolvedCount()
	}
	writeJSON(w, status)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.eventsMu.Lock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.eventsMu.Unlock()
	writeJSON(w, events)
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

// handleLive upgrades to a websocket and streams vitals snapshots once per
// second plus any events pushed while the socket is open.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.liveMu.Lock()
	if len(s.liveConns) >= maxLiveConns {
		s.liveMu.Unlock()
		http.Error(w, "too many live connections", http.StatusServiceUnavailable)
		return
	}
	s.liveMu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.liveMu.Lock()
	s.liveConns[conn] = true
	s.liveMu.Unlock()

	defer func() {
		s.liveMu.Lock()
		delete(s.liveConns, conn)
		s.liveMu.Unlock()
		conn.Close()
	}()

	// Reader goroutine: drain control frames, detect close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			payload := map[string]any{"type": "vitals", "vitals": s.vitalsView()}
			conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}

// broadcast pushes a payload to every live socket, dropping dead ones.
func (s *Server) broadcast(payload any) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	for conn := range s.liveConns {
		conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(payload); err != nil {
			conn.Close()
			delete(s.liveConns, conn)
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
