// Package pet provides the pet data model, moral stat descriptors, the
// finance dilemma bank, and the evolution engine.
package pet

import "strings"

// EvolutionID identifies a lifecycle form. The last entry of a pet's
// EvolutionIDs slice is its current form.
type EvolutionID string

const (
	// Base
	Baby EvolutionID = "baby"

	// Stage 1
	PennyPinscher EvolutionID = "penny pinscher"
	RuleFollower  EvolutionID = "rule follower"
	RiskTaker     EvolutionID = "risk taker"
	Watchdog      EvolutionID = "watchdog"
	BeanCounter   EvolutionID = "bean counter"
	WildCard      EvolutionID = "wild card"
	NPC           EvolutionID = "npc"

	// Stage 2
	VigilantAuditor     EvolutionID = "vigilant auditor"
	ChiefRiskOfficer    EvolutionID = "chief risk officer"
	ForensicAccountant  EvolutionID = "forensic accountant"
	ComplianceGuardian  EvolutionID = "compliance guardian"
	HedgeFundHawk       EvolutionID = "hedge fund hawk"
	BudgetSage          EvolutionID = "budget sage"
	FraudDetective      EvolutionID = "fraud detective"
	Sigma               EvolutionID = "sigma"

	// Terminal
	Graduated EvolutionID = "graduated"
	RIP       EvolutionID = "rip"
)

// Role tags a conversation turn within a dilemma.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged turn in a dilemma conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BaseStats are the ephemeral vitality counters, each in [0,10].
// They decay over the course of a session and are re-seeded from the stored
// pet when play resumes.
type BaseStats struct {
	Health    float64 `json:"health"`
	Hunger    float64 `json:"hunger"`
	Happiness float64 `json:"happiness"`
	Sanity    float64 `json:"sanity"`
}

// DefaultBaseStats returns the starting vitality counters for a new pet.
func DefaultBaseStats() BaseStats {
	return BaseStats{Health: 5, Hunger: 5, Happiness: 5, Sanity: 5}
}

// Dilemma is one scenario record: the conversation, the moral-stat snapshot
// produced by resolving it, and the correlation tokens carried to and from
// the advisor service.
type Dilemma struct {
	ID          string        `json:"id"`
	Messages    []Message     `json:"messages"`
	Stats       *FinanceStats `json:"stats,omitempty"`
	Completed   bool          `json:"completed"`
	Context     string        `json:"context,omitempty"`
	EvidenceIDs []string      `json:"evidence_ids,omitempty"`
}

// Pet is the root entity. The moral stats drive evolution; the base stats
// drive the tamagotchi survival loop.
type Pet struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Age          int           `json:"age"` // stage index: 0 baby, 1 specialist, 2 graduated
	EvolutionIDs []EvolutionID `json:"evolutionIds"`
	Personality  string        `json:"personality"`
	BaseStats    BaseStats     `json:"baseStats"`
	MoralStats   FinanceStats  `json:"moralStats"`
	Dilemmas     []Dilemma     `json:"dilemmas"`
}

// CurrentEvolution returns the pet's current form. A pet always has at
// least one evolution id; an empty slice reads as baby.
func (p *Pet) CurrentEvolution() EvolutionID {
	if len(p.EvolutionIDs) == 0 {
		return Baby
	}
	return p.EvolutionIDs[len(p.EvolutionIDs)-1]
}

// IsRIP reports whether the terminal death marker has been recorded.
func (p *Pet) IsRIP() bool {
	for _, id := range p.EvolutionIDs {
		if id == RIP {
			return true
		}
	}
	return false
}

// HasGraduated reports whether the pet reached the terminal stage.
func (p *Pet) HasGraduated() bool {
	return p.Age >= 2
}

// ResolvedCount returns the number of completed dilemmas.
func (p *Pet) ResolvedCount() int {
	n := 0
	for _, d := range p.Dilemmas {
		if d.Completed {
			n++
		}
	}
	return n
}

// SeenDilemma reports whether a scenario id is already in the pet's history.
func (p *Pet) SeenDilemma(id string) bool {
	for _, d := range p.Dilemmas {
		if d.ID == id {
			return true
		}
	}
	return false
}

// ValidName reports whether a user-supplied pet name is acceptable.
func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}
