// Moral stats — the four durable personality axes, each 0–100 with 50 as
// the neutral midpoint. Averaged over the dilemma history they decide which
// way the pet evolves.
package pet

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// StatKey names one moral stat axis.
type StatKey string

const (
	StatRisk               StatKey = "risk"
	StatCompliance         StatKey = "compliance"
	StatThriftiness        StatKey = "thriftiness"
	StatAnomalySensitivity StatKey = "anomaly_sensitivity"
)

// statOrder is the fixed axis priority used to break ranking ties.
var statOrder = [4]StatKey{StatRisk, StatCompliance, StatThriftiness, StatAnomalySensitivity}

// FinanceStats holds the four moral stat axes.
type FinanceStats struct {
	Risk               float64 `json:"risk"`
	Compliance         float64 `json:"compliance"`
	Thriftiness        float64 `json:"thriftiness"`
	AnomalySensitivity float64 `json:"anomaly_sensitivity"`
}

// DefaultFinanceStats returns the neutral starting stats.
func DefaultFinanceStats() FinanceStats {
	return FinanceStats{Risk: 50, Compliance: 50, Thriftiness: 50, AnomalySensitivity: 50}
}

// Get returns the value for one axis.
func (f FinanceStats) Get(k StatKey) float64 {
	switch k {
	case StatRisk:
		return f.Risk
	case StatCompliance:
		return f.Compliance
	case StatThriftiness:
		return f.Thriftiness
	case StatAnomalySensitivity:
		return f.AnomalySensitivity
	}
	return 0
}

// Set assigns one axis, clamped to [0,100].
func (f *FinanceStats) Set(k StatKey, v float64) {
	v = clamp(v, 0, 100)
	switch k {
	case StatRisk:
		f.Risk = v
	case StatCompliance:
		f.Compliance = v
	case StatThriftiness:
		f.Thriftiness = v
	case StatAnomalySensitivity:
		f.AnomalySensitivity = v
	}
}

// Add shifts one axis by delta, clamped to [0,100].
func (f *FinanceStats) Add(k StatKey, delta float64) {
	f.Set(k, f.Get(k)+delta)
}

// Clamp bounds every axis to [0,100].
func (f *FinanceStats) Clamp() {
	for _, k := range statOrder {
		f.Set(k, f.Get(k))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// attribute is the low/high qualitative descriptor pair for one axis.
type attribute struct {
	low, high string
}

var attributes = map[StatKey]attribute{
	StatRisk:               {low: "risk-averse", high: "risk-tolerant"},
	StatCompliance:         {low: "lenient", high: "strict"},
	StatThriftiness:        {low: "spender", high: "thrifty"},
	StatAnomalySensitivity: {low: "oblivious", high: "vigilant"},
}

// StatWritten is one axis rendered as a qualitative descriptor, ranked by
// how far the value sits from the neutral midpoint.
type StatWritten struct {
	Key         StatKey
	Description string
	Percentage  float64 // deviation from midpoint scaled to 0–100
	Value       float64
}

// WriteStats renders each axis as a descriptor with an intensity prefix
// ("highly" past 75/25, "moderately" past 60/40) and returns them ranked by
// deviation magnitude, descending. Ties keep the fixed axis order.
func WriteStats(stats FinanceStats) []StatWritten {
	written := make([]StatWritten, 0, len(statOrder))
	for _, k := range statOrder {
		v := stats.Get(k)
		attr := attributes[k]
		desc := attr.low
		if v > 50 {
			desc = attr.high
		}
		prefix := ""
		if v > 75 || v < 25 {
			prefix = "highly "
		} else if v > 60 || v < 40 {
			prefix = "moderately "
		}
		written = append(written, StatWritten{
			Key:         k,
			Description: prefix + desc,
			Percentage:  abs(v-50) * 2,
			Value:       v,
		})
	}
	sort.SliceStable(written, func(i, j int) bool {
		return abs(written[i].Value-50) > abs(written[j].Value-50)
	})
	return written
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// AverageMoralStats averages the stat snapshots of the given dilemmas.
// Each axis is seeded with a single neutral (50) observation so a pet with
// no completed dilemmas reads as neutral, and pending dilemmas without a
// snapshot are skipped.
func AverageMoralStats(dilemmas []Dilemma) FinanceStats {
	sums := map[StatKey]float64{}
	counts := map[StatKey]int{}
	for _, k := range statOrder {
		sums[k] = 50
		counts[k] = 1
	}

	for _, d := range dilemmas {
		if d.Stats == nil {
			continue
		}
		for _, k := range statOrder {
			sums[k] += d.Stats.Get(k)
			counts[k]++
		}
	}

	var avg FinanceStats
	for _, k := range statOrder {
		avg.Set(k, sums[k]/float64(counts[k]))
	}
	return avg
}

// DiffWritten formats significant stat movements ("+3 compliance") for
// outcome banners. Changes of 0.5 or less are not worth announcing.
func DiffWritten(old, new FinanceStats) []string {
	var changes []string
	for _, k := range statOrder {
		diff := new.Get(k) - old.Get(k)
		if abs(diff) <= 0.5 {
			continue
		}
		label := strings.ReplaceAll(string(k), "_", " ")
		changes = append(changes, fmt.Sprintf("%+d %s", int(math.Round(diff)), label))
	}
	return changes
}
