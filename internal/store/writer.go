// Debounced pet writes — rapid updates collapse into a single durable write
// per pet. Failed writes are logged and dropped, never retried.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/finagotchi/internal/pet"
)

const debounceDelay = 500 * time.Millisecond

type writer struct {
	db *DB

	mu      sync.Mutex
	pending map[string]*pet.Pet
	timer   *time.Timer
}

func newWriter(db *DB) *writer {
	return &writer{db: db, pending: map[string]*pet.Pet{}}
}

// enqueue records the latest snapshot for a pet and (re)arms the debounce
// timer. The last write within the window wins.
func (w *writer) enqueue(p *pet.Pet) {
	snapshot := *p

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[p.ID] = &snapshot
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, w.flushNow)
}

// flushNow writes every pending snapshot immediately.
func (w *writer) flushNow() {
	w.mu.Lock()
	batch := w.pending
	w.pending = map[string]*pet.Pet{}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	for _, p := range batch {
		if err := w.db.saveNow(p); err != nil {
			slog.Warn("pet write failed, dropping", "pet_id", p.ID, "error", err)
		}
	}
}

// discard drops pending writes without persisting them.
func (w *writer) discard() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = map[string]*pet.Pet{}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
