// Package store provides SQLite-backed local persistence: the pet records,
// the poo side-channel, and one-time device flags. There is no server of
// record — this file is the device's whole memory.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/finagotchi/internal/pet"
)

// Device-state keys. Callers must tolerate absent keys as empty defaults.
const (
	KeyPoos          = "poos"
	KeyEggCrackShown = "egg_crack_shown"
)

// DB wraps a SQLite connection for pet state persistence.
type DB struct {
	conn   *sqlx.DB
	writer *writer
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	db.writer = newWriter(db)
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close flushes pending writes and closes the connection.
func (db *DB) Close() error {
	db.writer.flushNow()
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pets (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		pet_id TEXT NOT NULL,
		record_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS device_state (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pets_pet_id ON pets(pet_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// List returns all stored pets in insertion order. Records sharing an id are
// deduplicated keeping the last occurrence, and when duplicates were found
// the cleaned result is persisted immediately — the store self-heals on
// read. A corrupt or unreadable store reads as empty.
func (db *DB) List() []pet.Pet {
	type row struct {
		Seq    int64  `db:"seq"`
		PetID  string `db:"pet_id"`
		Record string `db:"record_json"`
	}

	var rows []row
	if err := db.conn.Select(&rows, "SELECT seq, pet_id, record_json FROM pets ORDER BY seq ASC"); err != nil {
		slog.Warn("pet list unreadable, treating as empty", "error", err)
		return nil
	}

	// Keep the last occurrence per id, at the position of that occurrence.
	lastSeq := make(map[string]int64, len(rows))
	for _, r := range rows {
		lastSeq[r.PetID] = r.Seq
	}

	pets := make([]pet.Pet, 0, len(lastSeq))
	dirty := false
	for _, r := range rows {
		if r.Seq != lastSeq[r.PetID] {
			dirty = true
			continue
		}
		var p pet.Pet
		if err := json.Unmarshal([]byte(r.Record), &p); err != nil {
			slog.Warn("corrupt pet record dropped", "pet_id", r.PetID, "error", err)
			dirty = true
			continue
		}
		pets = append(pets, p)
	}

	if dirty {
		if err := db.rewrite(pets); err != nil {
			slog.Warn("pet list compaction failed", "error", err)
		}
	}
	return pets
}

// Active returns the most recently appended pet, the authoritative record,
// or nil when none exist.
func (db *DB) Active() *pet.Pet {
	pets := db.List()
	if len(pets) == 0 {
		return nil
	}
	return &pets[len(pets)-1]
}

// Find returns the stored pet with the given id, or nil.
func (db *DB) Find(id string) *pet.Pet {
	for _, p := range db.List() {
		if p.ID == id {
			found := p
			return &found
		}
	}
	return nil
}

// Create validates the name, builds a stage-0 pet with default stats, and
// writes it immediately — a just-created pet must survive an instant
// navigation away, so this write is never coalesced. Device flags tied to
// the previous pet (egg animation, poos) are cleared.
func (db *DB) Create(name string) (*pet.Pet, error) {
	if !pet.ValidName(name) {
		return nil, fmt.Errorf("pet name must not be empty")
	}

	p := &pet.Pet{
		ID:           uuid.NewString(),
		Name:         name,
		Age:          0,
		EvolutionIDs: []pet.EvolutionID{pet.Baby},
		BaseStats:    pet.DefaultBaseStats(),
		MoralStats:   pet.DefaultFinanceStats(),
		Dilemmas:     []pet.Dilemma{},
	}

	db.DeleteDeviceState(KeyEggCrackShown)
	db.DeleteDeviceState(KeyPoos)

	if err := db.saveNow(p); err != nil {
		return nil, fmt.Errorf("create pet: %w", err)
	}
	slog.Info("pet created", "id", p.ID, "name", p.Name)
	return p, nil
}

// Save schedules a durable write of the pet record. Writes arriving within
// the debounce window collapse into one.
func (db *DB) Save(p *pet.Pet) {
	db.writer.enqueue(p)
}

// Update applies a mutation to the stored pet with the given id and
// schedules the write. Returns the updated record, or nil when absent.
func (db *DB) Update(id string, apply func(*pet.Pet)) *pet.Pet {
	p := db.Find(id)
	if p == nil {
		return nil
	}
	apply(p)
	db.Save(p)
	return p
}

// Flush forces any pending debounced write to disk.
func (db *DB) Flush() {
	db.writer.flushNow()
}

// ClearAll removes every pet and all device state.
func (db *DB) ClearAll() error {
	db.writer.discard()
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM pets"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM device_state"); err != nil {
		return err
	}
	return tx.Commit()
}

// saveNow writes one pet record: the previous rows for the id are replaced
// and the record moves to the end of the insertion order.
func (db *DB) saveNow(p *pet.Pet) error {
	record, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pet %s: %w", p.ID, err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pets WHERE pet_id = ?", p.ID); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO pets (pet_id, record_json) VALUES (?, ?)", p.ID, string(record)); err != nil {
		return err
	}
	return tx.Commit()
}

// rewrite replaces the whole pets table with the given records in order.
func (db *DB) rewrite(pets []pet.Pet) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pets"); err != nil {
		return err
	}
	for i := range pets {
		record, err := json.Marshal(&pets[i])
		if err != nil {
			return fmt.Errorf("marshal pet %s: %w", pets[i].ID, err)
		}
		if _, err := tx.Exec("INSERT INTO pets (pet_id, record_json) VALUES (?, ?)", pets[i].ID, string(record)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetDeviceState unmarshals a device-state value into out. Absent keys
// leave out untouched and return false.
func (db *DB) GetDeviceState(key string, out any) bool {
	var raw string
	err := db.conn.Get(&raw, "SELECT value_json FROM device_state WHERE key = ?", key)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		slog.Warn("device state unreadable", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("device state corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// SetDeviceState stores a JSON-serializable value under a key. Failures are
// logged and dropped.
func (db *DB) SetDeviceState(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("device state marshal failed", "key", key, "error", err)
		return
	}
	if _, err := db.conn.Exec(
		"INSERT OR REPLACE INTO device_state (key, value_json) VALUES (?, ?)",
		key, string(raw),
	); err != nil {
		slog.Warn("device state write failed", "key", key, "error", err)
	}
}

// DeleteDeviceState removes a device-state key.
func (db *DB) DeleteDeviceState(key string) {
	if _, err := db.conn.Exec("DELETE FROM device_state WHERE key = ?", key); err != nil {
		slog.Warn("device state delete failed", "key", key, "error", err)
	}
}
