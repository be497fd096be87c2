package pet

import (
	"math/rand"
	"strings"
	"testing"
)

func TestDilemmaTextSubstitutesName(t *testing.T) {
	text := DilemmaText("vendor_discount", "Penny")
	if text == "" {
		t.Fatal("expected text for known dilemma")
	}
	if strings.Contains(text, "{pet}") {
		t.Fatalf("placeholder not substituted: %q", text)
	}
	if !strings.Contains(text, "Penny") {
		t.Fatalf("expected pet name in text: %q", text)
	}
}

func TestRandomUnseenDilemmaNeverRepeats(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := newTestPet(0)

	seen := make(map[string]bool)
	for i := 0; i < DilemmaCount(); i++ {
		d := RandomUnseenDilemma(p, rng)
		if d == nil {
			t.Fatalf("pool exhausted early at %d of %d", i, DilemmaCount())
		}
		if seen[d.ID] {
			t.Fatalf("dilemma %s repeated", d.ID)
		}
		seen[d.ID] = true
		p.Dilemmas = append(p.Dilemmas, Dilemma{ID: d.ID, Completed: true})
	}

	if d := RandomUnseenDilemma(p, rng); d != nil {
		t.Fatalf("expected nil after exhausting the pool, got %s", d.ID)
	}
}

func TestRandomUnseenDilemmaDeterministicWithSeed(t *testing.T) {
	a := RandomUnseenDilemma(newTestPet(0), rand.New(rand.NewSource(42)))
	b := RandomUnseenDilemma(newTestPet(0), rand.New(rand.NewSource(42)))
	if a == nil || b == nil || a.ID != b.ID {
		t.Fatalf("expected identical picks for identical seeds, got %v and %v", a, b)
	}
}

func TestKnownDilemma(t *testing.T) {
	if !KnownDilemma("duplicate_invoice") {
		t.Fatal("expected duplicate_invoice in the bank")
	}
	if KnownDilemma("no_such_dilemma") {
		t.Fatal("unexpected match for unknown id")
	}
}
