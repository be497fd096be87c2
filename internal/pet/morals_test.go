package pet

import "testing"

func TestDefaultStatsAreNeutral(t *testing.T) {
	stats := DefaultFinanceStats()
	for _, k := range statOrder {
		if stats.Get(k) != 50 {
			t.Fatalf("expected %s to start at 50, got %v", k, stats.Get(k))
		}
	}
}

func TestAddClampsToBounds(t *testing.T) {
	stats := DefaultFinanceStats()
	stats.Add(StatRisk, 200)
	if stats.Risk != 100 {
		t.Fatalf("expected risk clamped to 100, got %v", stats.Risk)
	}
	stats.Add(StatCompliance, -75)
	if stats.Compliance != 0 {
		t.Fatalf("expected compliance clamped to 0, got %v", stats.Compliance)
	}
}

func TestWriteStatsPrefixesAndRanking(t *testing.T) {
	stats := FinanceStats{Risk: 80, Compliance: 65, Thriftiness: 50, AnomalySensitivity: 10}
	written := WriteStats(stats)

	if len(written) != 4 {
		t.Fatalf("expected 4 descriptors, got %d", len(written))
	}
	// Ranked by deviation from 50: anomaly (40), risk (30), compliance (15), thriftiness (0).
	if written[0].Description != "highly oblivious" {
		t.Fatalf("expected highly oblivious first, got %q", written[0].Description)
	}
	if written[1].Description != "highly risk-tolerant" {
		t.Fatalf("expected highly risk-tolerant second, got %q", written[1].Description)
	}
	if written[2].Description != "moderately strict" {
		t.Fatalf("expected moderately strict third, got %q", written[2].Description)
	}
	if written[3].Description != "spender" {
		t.Fatalf("expected unprefixed spender last, got %q", written[3].Description)
	}
}

func TestWriteStatsTiesKeepAxisOrder(t *testing.T) {
	written := WriteStats(DefaultFinanceStats())
	want := []StatKey{StatRisk, StatCompliance, StatThriftiness, StatAnomalySensitivity}
	for i, k := range want {
		if written[i].Key != k {
			t.Fatalf("position %d: expected %s, got %s", i, k, written[i].Key)
		}
	}
}

func TestAverageMoralStatsSeedsNeutralPrior(t *testing.T) {
	// Empty history reads as neutral.
	avg := AverageMoralStats(nil)
	if avg != DefaultFinanceStats() {
		t.Fatalf("expected neutral average for empty history, got %+v", avg)
	}

	// One completed dilemma: each axis averages with the single 50 prior.
	snap := FinanceStats{Risk: 50, Compliance: 90, Thriftiness: 50, AnomalySensitivity: 50}
	avg = AverageMoralStats([]Dilemma{{ID: "a", Completed: true, Stats: &snap}})
	if avg.Compliance != 70 {
		t.Fatalf("expected compliance (50+90)/2 = 70, got %v", avg.Compliance)
	}
	if avg.Risk != 50 {
		t.Fatalf("expected risk unchanged at 50, got %v", avg.Risk)
	}
}

func TestAverageMoralStatsSkipsPending(t *testing.T) {
	snap := FinanceStats{Risk: 100, Compliance: 100, Thriftiness: 100, AnomalySensitivity: 100}
	avg := AverageMoralStats([]Dilemma{{ID: "pending"}, {ID: "done", Completed: true, Stats: &snap}})
	if avg.Risk != 75 {
		t.Fatalf("expected pending dilemma skipped, risk (50+100)/2 = 75, got %v", avg.Risk)
	}
}

func TestDiffWritten(t *testing.T) {
	old := DefaultFinanceStats()
	updated := old
	updated.Add(StatCompliance, 3)
	updated.Add(StatAnomalySensitivity, -2)
	updated.Add(StatRisk, 0.3) // below the announce threshold

	changes := DiffWritten(old, updated)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %v", changes)
	}
	if changes[0] != "+3 compliance" {
		t.Fatalf("expected +3 compliance, got %q", changes[0])
	}
	if changes[1] != "-2 anomaly sensitivity" {
		t.Fatalf("expected -2 anomaly sensitivity, got %q", changes[1])
	}
}
