// Package vitals maintains the four ephemeral vitality counters and the
// transient poo markers, and detects death. Counters decay on an externally
// driven tick and are raised by care actions; everything is observable only
// through the store's read API.
package vitals

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/finagotchi/internal/pet"
)

// Counter names one vitality counter.
type Counter string

const (
	Health    Counter = "health"
	Hunger    Counter = "hunger"
	Happiness Counter = "happiness"
	Sanity    Counter = "sanity"
)

// Counters is the fixed decay order. Ticks pick uniformly among these.
var Counters = [4]Counter{Health, Hunger, Happiness, Sanity}

const (
	// MaxStat is the counter ceiling; counters live in [0, MaxStat].
	MaxStat = 10.0

	// DecayValue scales the per-tick random decrement.
	DecayValue = 1.0

	// StandardIncrement is the default care-action boost.
	StandardIncrement = 3.0

	pooChance = 0.05
	maxPoos   = 10

	// Viewport bounds for poo placement, matching the client's play area.
	viewportWidth  = 570 * 1.3
	viewportHeight = 230 * 1.3

	happyDuration  = 3 * time.Second
	recentDuration = 2 * time.Second
)

// Poo is one nuisance marker at a viewport position.
type Poo struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Store owns the vitality counters for the active pet. The engine loop ticks
// it while HTTP handlers apply care actions and read snapshots, so every
// method serializes on the store's mutex. Callbacks fire after the mutex is
// released; they may call back into stores that themselves call Increment.
type Store struct {
	mu sync.Mutex

	bound bool
	stats pet.BaseStats
	poos  []Poo

	dead      bool
	graduated bool

	rng *rand.Rand
	now func() time.Time

	nextPooID int64

	happyUntil time.Time
	recentDecs map[Counter]float64
	recentIncs map[Counter]float64
	recentExp  time.Time

	// OnDeath fires once when any counter reaches zero.
	OnDeath func()
	// OnPooChange fires whenever the marker list changes, so the caller can
	// persist it to the side-channel store.
	OnPooChange func([]Poo)
}

// NewStore creates a vitals store with a seeded random source. The source
// must not be shared with other goroutines; the store is its only user.
func NewStore(rng *rand.Rand) *Store {
	return &Store{
		rng:        rng,
		now:        time.Now,
		recentDecs: map[Counter]float64{},
		recentIncs: map[Counter]float64{},
		nextPooID:  1,
	}
}

// SetClock overrides the time source. Tests use this to step transient
// animation windows deterministically.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Initialize seeds the counters from the stored pet. A dead pet reads all
// zeroes; a graduated pet keeps its stats but stops decaying. Passing a nil
// pet leaves the store unbound: ticks are ignored until a pet is adopted.
func (s *Store) Initialize(p *pet.Pet, poos []Poo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.poos = poos
	for _, m := range poos {
		if m.ID >= s.nextPooID {
			s.nextPooID = m.ID + 1
		}
	}

	if p == nil {
		s.bound = false
		s.dead = false
		s.graduated = false
		s.stats = pet.BaseStats{}
		return
	}

	s.bound = true
	s.dead = p.IsRIP()
	s.graduated = p.HasGraduated()
	if s.dead {
		s.stats = pet.BaseStats{}
		return
	}
	s.stats = p.BaseStats
}

// Stats returns a copy of the current counters.
func (s *Store) Stats() pet.BaseStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Get returns one counter's value.
func (s *Store) Get(c Counter) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(c)
}

func (s *Store) get(c Counter) float64 {
	switch c {
	case Health:
		return s.stats.Health
	case Hunger:
		return s.stats.Hunger
	case Happiness:
		return s.stats.Happiness
	case Sanity:
		return s.stats.Sanity
	}
	return 0
}

func (s *Store) set(c Counter, v float64) {
	if v < 0 {
		v = 0
	}
	if v > MaxStat {
		v = MaxStat
	}
	switch c {
	case Health:
		s.stats.Health = v
	case Hunger:
		s.stats.Hunger = v
	case Happiness:
		s.stats.Happiness = v
	case Sanity:
		s.stats.Sanity = v
	}
}

// Dead reports whether death has been detected.
func (s *Store) Dead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dead
}

// SetGraduated suspends decay permanently once the pet graduates.
func (s *Store) SetGraduated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graduated = true
}

// Tick applies one decay step: a uniformly random counter loses a random
// amount in (0, DecayValue), sanity always decays alongside, and a poo may
// spawn. Further ticks after death or graduation are no-ops, as are ticks
// before a pet is bound.
func (s *Store) Tick() {
	s.mu.Lock()
	if !s.bound || s.dead || s.graduated {
		s.mu.Unlock()
		return
	}

	decs := map[Counter]float64{}

	target := Counters[s.rng.Intn(len(Counters))]
	amount := DecayValue * s.rng.Float64()
	before := s.get(target)
	s.set(target, before-amount)
	if d := before - s.get(target); d > 0 {
		decs[target] = d
	}

	sanityAmount := DecayValue * s.rng.Float64()
	before = s.get(Sanity)
	s.set(Sanity, before-sanityAmount)
	if d := before - s.get(Sanity); d > 0 {
		decs[Sanity] += d
	}

	if len(decs) > 0 {
		s.recentDecs = decs
		s.recentExp = s.now().Add(recentDuration)
	}

	var pooSnapshot []Poo
	if len(s.poos) < maxPoos && s.rng.Float64() < pooChance {
		s.spawnPoo()
		pooSnapshot = s.snapshotPoos()
	}

	died := false
	for _, c := range Counters {
		if s.get(c) <= 0 && !s.dead {
			s.dead = true
			died = true
			slog.Info("pet vitality depleted", "stats", s.stats)
			break
		}
	}
	s.mu.Unlock()

	if pooSnapshot != nil && s.OnPooChange != nil {
		s.OnPooChange(pooSnapshot)
	}
	if died && s.OnDeath != nil {
		s.OnDeath()
	}
}

// Increment raises one counter, clamped at the ceiling, and starts the
// transient happy window.
func (s *Store) Increment(c Counter, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	s.set(c, s.get(c)+amount)
	s.happyUntil = s.now().Add(happyDuration)
	s.recentIncs = map[Counter]float64{c: amount}
	s.recentExp = s.now().Add(recentDuration)
}

// Happy reports whether the transient happy animation window is active.
func (s *Store) Happy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.happyUntil)
}

// RecentDecrements returns the per-counter losses from the latest tick, or
// nil once the display window has passed. The returned map is replaced, never
// mutated, after publication.
func (s *Store) RecentDecrements() map[Counter]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now().After(s.recentExp) {
		return nil
	}
	return s.recentDecs
}

// RecentIncrements returns the latest care-action boost, or nil once the
// display window has passed.
func (s *Store) RecentIncrements() map[Counter]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now().After(s.recentExp) {
		return nil
	}
	return s.recentIncs
}

// AlmostDead reports whether any counter is critically low but not yet zero.
func (s *Store) AlmostDead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range Counters {
		if v := s.get(c); v > 0 && v < 2 {
			return true
		}
	}
	return false
}

// spawnPoo appends one marker. Callers hold the lock.
func (s *Store) spawnPoo() {
	p := Poo{
		ID: s.nextPooID,
		X:  s.rng.Float64()*(viewportWidth/2) - viewportWidth/4,
		Y:  s.rng.Float64()*(viewportHeight/6) + viewportHeight*4/21,
	}
	s.nextPooID++
	s.poos = append(s.poos, p)
}

// snapshotPoos copies the marker list. Callers hold the lock.
func (s *Store) snapshotPoos() []Poo {
	out := make([]Poo, len(s.poos))
	copy(out, s.poos)
	return out
}

// Poos returns a copy of the current nuisance markers.
func (s *Store) Poos() []Poo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotPoos()
}

// CleanupPoo removes one marker by id.
func (s *Store) CleanupPoo(id int64) {
	s.mu.Lock()
	kept := s.poos[:0]
	for _, p := range s.poos {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.poos = kept
	snapshot := s.snapshotPoos()
	s.mu.Unlock()

	if s.OnPooChange != nil {
		s.OnPooChange(snapshot)
	}
}
