package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/talgya/finagotchi/internal/pet"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pets.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndActive(t *testing.T) {
	db := openTestDB(t)

	p, err := db.Create("Penny")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected a generated id")
	}
	if p.CurrentEvolution() != pet.Baby {
		t.Fatalf("expected baby stage, got %s", p.CurrentEvolution())
	}
	if p.BaseStats != pet.DefaultBaseStats() {
		t.Fatalf("unexpected starting stats: %+v", p.BaseStats)
	}

	active := db.Active()
	if active == nil || active.ID != p.ID {
		t.Fatalf("expected active pet %s, got %+v", p.ID, active)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Create("   "); err == nil {
		t.Fatal("expected error for blank name")
	}
	if db.Active() != nil {
		t.Fatal("expected no pet stored")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	db := openTestDB(t)
	p, _ := db.Create("Penny")

	p.MoralStats.Add(pet.StatCompliance, 10)
	p.Dilemmas = append(p.Dilemmas, pet.Dilemma{
		ID:        "duplicate_invoice",
		Completed: true,
		Messages:  []pet.Message{{Role: pet.RoleUser, Content: "flag it"}},
	})
	db.Save(p)
	db.Flush()

	got := db.Find(p.ID)
	if got == nil {
		t.Fatal("pet not found after save")
	}
	if got.MoralStats.Compliance != 60 {
		t.Fatalf("expected compliance 60, got %v", got.MoralStats.Compliance)
	}
	if len(got.Dilemmas) != 1 || got.Dilemmas[0].ID != "duplicate_invoice" {
		t.Fatalf("dilemma history lost: %+v", got.Dilemmas)
	}
	if got.Dilemmas[0].Messages[0].Content != "flag it" {
		t.Fatalf("message content lost: %+v", got.Dilemmas[0].Messages)
	}
}

func TestActiveIsMostRecentlySaved(t *testing.T) {
	db := openTestDB(t)
	first, _ := db.Create("Penny")
	second, _ := db.Create("Nickel")

	if active := db.Active(); active.ID != second.ID {
		t.Fatalf("expected %s active, got %s", second.ID, active.ID)
	}

	// Saving the first pet again moves it to the end.
	first.Age = 1
	db.Save(first)
	db.Flush()
	if active := db.Active(); active.ID != first.ID {
		t.Fatalf("expected %s active after re-save, got %s", first.ID, active.ID)
	}
}

func TestListDeduplicatesKeepingLast(t *testing.T) {
	db := openTestDB(t)
	p, _ := db.Create("Penny")

	// Simulate the duplicate-append failure mode directly in the table.
	stale := *p
	stale.Age = 0
	fresh := *p
	fresh.Age = 1
	for _, rec := range []*pet.Pet{&stale, &fresh} {
		raw, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if _, err := db.conn.Exec(
			"INSERT INTO pets (pet_id, record_json) VALUES (?, ?)", rec.ID, string(raw),
		); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	pets := db.List()
	if len(pets) != 1 {
		t.Fatalf("expected 1 pet after dedupe, got %d", len(pets))
	}
	if pets[0].Age != 1 {
		t.Fatalf("expected the last occurrence kept, got age %d", pets[0].Age)
	}

	// The dedupe self-heals the table: a raw count now shows one row.
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM pets"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected compacted table with 1 row, got %d", count)
	}
}

func TestCorruptRecordDropped(t *testing.T) {
	db := openTestDB(t)
	p, _ := db.Create("Penny")

	if _, err := db.conn.Exec(
		"INSERT INTO pets (pet_id, record_json) VALUES (?, ?)", "broken", "{not json",
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pets := db.List()
	if len(pets) != 1 || pets[0].ID != p.ID {
		t.Fatalf("expected only the valid pet to survive, got %+v", pets)
	}
}

func TestClearAllDiscardsPendingWrites(t *testing.T) {
	db := openTestDB(t)
	p, _ := db.Create("Penny")

	p.Age = 1
	db.Save(p) // pending in the debounce window
	if err := db.ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	db.Flush()

	if pets := db.List(); len(pets) != 0 {
		t.Fatalf("expected empty store after clear, got %d pets", len(pets))
	}
	var shown bool
	if db.GetDeviceState(KeyEggCrackShown, &shown) {
		t.Fatal("expected device state cleared")
	}
}

func TestDeviceStateRoundTrip(t *testing.T) {
	db := openTestDB(t)

	var missing bool
	if db.GetDeviceState(KeyEggCrackShown, &missing) {
		t.Fatal("expected absent key to report false")
	}

	db.SetDeviceState(KeyEggCrackShown, true)
	var shown bool
	if !db.GetDeviceState(KeyEggCrackShown, &shown) || !shown {
		t.Fatalf("expected true, got %v", shown)
	}

	db.DeleteDeviceState(KeyEggCrackShown)
	shown = false
	if db.GetDeviceState(KeyEggCrackShown, &shown) {
		t.Fatal("expected key deleted")
	}
}

func TestCreateClearsPreviousDeviceFlags(t *testing.T) {
	db := openTestDB(t)
	db.SetDeviceState(KeyEggCrackShown, true)
	db.SetDeviceState(KeyPoos, []map[string]float64{{"x": 1}})

	if _, err := db.Create("Penny"); err != nil {
		t.Fatalf("create: %v", err)
	}

	var shown bool
	if db.GetDeviceState(KeyEggCrackShown, &shown) {
		t.Fatal("expected egg flag cleared for the new pet")
	}
	var poos []map[string]float64
	if db.GetDeviceState(KeyPoos, &poos) {
		t.Fatal("expected poos cleared for the new pet")
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pets.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	p, _ := db.Create("Penny")
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	got := db2.Active()
	if got == nil || got.ID != p.ID || got.Name != "Penny" {
		t.Fatalf("expected pet to survive reopen, got %+v", got)
	}
}
