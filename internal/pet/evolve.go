// Evolution engine — a pure decision function mapping the dilemma history
// onto the next lifecycle form. The caller appends the returned id and bumps
// the age; nothing here mutates the pet.
package pet

import "strings"

// stageThresholds is the resolved-dilemma count required before each stage
// transition is considered.
var stageThresholds = map[int]int{
	0: 3, // baby -> stage 1
	1: 5, // stage 1 -> stage 2
	2: 7, // graduation unlocks
}

// StageThreshold returns the resolved-dilemma count required at a given age.
func StageThreshold(age int) int {
	if t, ok := stageThresholds[age]; ok {
		return t
	}
	return 7
}

// Transition is the outcome of an evolution check.
type Transition struct {
	EvolutionID EvolutionID
	Age         int
}

// EvolveIfNeeded decides whether a pet is due for a stage transition.
// Deterministic in its inputs; returns nil when no transition is due.
func EvolveIfNeeded(resolvedCount int, p *Pet, avg FinanceStats) *Transition {
	if resolvedCount < StageThreshold(p.Age) {
		return nil
	}

	written := WriteStats(avg)

	var next EvolutionID
	switch p.Age {
	case 0:
		next = evolveToStage1(written)
	case 1:
		next = evolveToStage2(p.CurrentEvolution(), written)
	default:
		return nil
	}

	if next == "" {
		return nil
	}
	return &Transition{EvolutionID: next, Age: p.Age + 1}
}

// evolveToStage1 scans the ranked descriptors and takes the first with a
// recognized dominant trait. A pet with no pronounced trait becomes an npc.
func evolveToStage1(written []StatWritten) EvolutionID {
	for _, w := range written {
		switch {
		case strings.Contains(w.Description, "thrifty"):
			return PennyPinscher
		case strings.Contains(w.Description, "strict"):
			return RuleFollower
		case strings.Contains(w.Description, "risk-tolerant"):
			return RiskTaker
		case strings.Contains(w.Description, "vigilant"):
			return Watchdog
		}
	}
	return NPC
}

// evolveToStage2 branches on the current stage-1 form and disambiguates with
// the single most dominant descriptor.
func evolveToStage2(current EvolutionID, written []StatWritten) EvolutionID {
	dominant := ""
	if len(written) > 0 {
		dominant = written[0].Description
	}

	switch current {
	case PennyPinscher:
		if strings.Contains(dominant, "strict") {
			return BudgetSage
		}
		return ForensicAccountant
	case RuleFollower:
		if strings.Contains(dominant, "risk-tolerant") {
			return ChiefRiskOfficer
		}
		return ComplianceGuardian
	case RiskTaker:
		if strings.Contains(dominant, "thrifty") {
			return HedgeFundHawk
		}
		return ChiefRiskOfficer
	case Watchdog:
		if strings.Contains(dominant, "strict") {
			return VigilantAuditor
		}
		return FraudDetective
	case WildCard:
		return FraudDetective
	case BeanCounter:
		return ForensicAccountant
	default:
		return Sigma
	}
}
