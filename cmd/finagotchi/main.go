// Command finagotchi runs the finance-pet service: the survival loop, the
// advisory scenario cycle, and the HTTP API the frontend talks to.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/finagotchi/internal/advisor"
	"github.com/talgya/finagotchi/internal/api"
	"github.com/talgya/finagotchi/internal/engine"
	"github.com/talgya/finagotchi/internal/session"
	"github.com/talgya/finagotchi/internal/store"
	"github.com/talgya/finagotchi/internal/vitals"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("finagotchi — a finance pet that learns from your judgment")

	dbPath := envStr("FINAGOTCHI_DB", "data/finagotchi.db")
	advisorURL := os.Getenv("FINAGOTCHI_ADVISOR_URL")
	apiPort := envInt("FINAGOTCHI_PORT", 8080)

	seed := time.Now().UnixNano()
	if v := os.Getenv("FINAGOTCHI_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = n
		}
	}
	// Each consumer gets its own source: *rand.Rand is not safe for
	// concurrent use, and vitals and session run on different goroutines.
	sessRng := rand.New(rand.NewSource(seed))
	vitRng := rand.New(rand.NewSource(seed + 1))

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := store.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Pet ───────────────────────────────────────────────────────────
	// Pets hatch only on an explicit naming action via POST /api/v1/pet;
	// an empty store starts the service with no active pet.
	p := db.Active()
	if p == nil {
		slog.Info("no pet adopted yet — hatch one via POST /api/v1/pet")
	} else {
		slog.Info("pet restored",
			"pet", p.ID,
			"name", p.Name,
			"form", p.CurrentEvolution(),
			"age", p.Age,
			"resolved", p.ResolvedCount(),
		)
	}

	// ── Vitals ────────────────────────────────────────────────────────
	vit := vitals.NewStore(vitRng)
	var poos []vitals.Poo
	db.GetDeviceState(store.KeyPoos, &poos)
	vit.Initialize(p, poos)
	vit.OnPooChange = func(poos []vitals.Poo) {
		db.SetDeviceState(store.KeyPoos, poos)
	}

	// ── Advisor ───────────────────────────────────────────────────────
	adv := advisor.NewClient(advisorURL)
	if adv.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if adv.Health(ctx) {
			slog.Info("advisor service online", "url", advisorURL)
		} else {
			slog.Warn("advisor service unreachable — decisions fall back to offline mode", "url", advisorURL)
		}
		cancel()
	} else {
		slog.Warn("FINAGOTCHI_ADVISOR_URL not set — all decisions are offline")
	}

	// ── Session ───────────────────────────────────────────────────────
	sess := session.New(p, db, vit, adv, sessRng)
	vit.OnDeath = sess.MarkDead

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.OnDecay = func(tick uint64) {
		vit.Tick()
	}
	eng.OnPersist = func(tick uint64) {
		sess.SyncVitals(vit.Stats())
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	apiServer := &api.Server{
		Session: sess,
		Store:   db,
		Vitals:  vit,
		Eng:     eng,
		Advisor: adv,
		Port:    apiPort,
	}
	sess.OnOutcome = apiServer.PushEvent
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	if p != nil {
		fmt.Printf("\n%s is awake (%s).\n", p.Name, p.CurrentEvolution())
	} else {
		fmt.Println("\nThe nest is empty — name a pet via POST /api/v1/pet.")
	}
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Starting pet loop... (Ctrl+C to stop)")

	eng.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	sess.SyncVitals(vit.Stats())
	db.Flush()

	fmt.Println("Pet loop stopped. State saved.")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
