// Package session orchestrates one advisory interaction at a time: obtain a
// scenario, submit free-text advice, receive (or synthesize) a decision,
// collect feedback, and feed the evolution engine. Every remote failure has
// a deterministic local fallback — the state machine always moves forward.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/talgya/finagotchi/internal/advisor"
	"github.com/talgya/finagotchi/internal/pet"
	"github.com/talgya/finagotchi/internal/store"
	"github.com/talgya/finagotchi/internal/vitals"
)

// State is the session's position in the advisory cycle.
type State int

const (
	Idle State = iota
	AwaitingResponse
	AwaitingFeedback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	case AwaitingFeedback:
		return "awaiting_feedback"
	}
	return "unknown"
}

// Advisor is the slice of the decision service the session consumes.
// *advisor.Client satisfies it; tests substitute fakes.
type Advisor interface {
	Enabled() bool
	NextDilemma(ctx context.Context) (*advisor.DilemmaResponse, error)
	SubmitAdvice(ctx context.Context, question, petID, scenarioContext string, evidenceIDs []string) (*advisor.AdviceResponse, error)
	SubmitFeedback(ctx context.Context, interactionID, action string) (*advisor.FeedbackResponse, error)
}

// sanityAdviceBonus is the smaller boost granted when the remote advisor
// answered; offline answers and feedback use the standard care increment.
const sanityAdviceBonus = 1.5

// Offline decision → moral stat delta table.
var fallbackDeltas = map[string]map[pet.StatKey]float64{
	advisor.DecisionApprove:  {pet.StatThriftiness: 3, pet.StatRisk: -2},
	advisor.DecisionFlag:     {pet.StatRisk: 3, pet.StatCompliance: 3},
	advisor.DecisionEscalate: {pet.StatRisk: 5, pet.StatCompliance: 5},
	advisor.DecisionReject:   {pet.StatCompliance: 3},
}

var decisionVerbs = map[string]string{
	advisor.DecisionApprove:  "approved",
	advisor.DecisionFlag:     "flagged",
	advisor.DecisionReject:   "rejected",
	advisor.DecisionEscalate: "escalated",
}

// Session runs the advisory cycle for one pet.
type Session struct {
	mu sync.Mutex

	pet    *pet.Pet
	db     *store.DB
	vitals *vitals.Store
	adv    Advisor
	rng    *rand.Rand

	state         State
	current       *pet.Dilemma
	submitting    bool
	interactionID string
	lastDecision  string

	// Observers replace the original's cross-component events. All optional.
	OnGraph    func(neighborhood, overlay *advisor.GraphBundle)
	OnEvidence func(bundle []advisor.EvidenceItem)
	OnOutcome  func(kind, message string)
}

// New creates a session bound to a pet and its collaborators.
func New(p *pet.Pet, db *store.DB, vit *vitals.Store, adv Advisor, rng *rand.Rand) *Session {
	return &Session{
		pet:    p,
		db:     db,
		vitals: vit,
		adv:    adv,
		rng:    rng,
		state:  Idle,
	}
}

// Pet returns a snapshot of the session's pet record, nil when none is
// adopted. Callers encode it outside the lock, so they never get the live
// struct the session mutates.
func (s *Session) Pet() *pet.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pet == nil {
		return nil
	}
	snap := *s.pet
	return &snap
}

// Adopt rebinds the session to a different pet (or nil after a reset) and
// clears any in-progress scenario.
func (s *Session) Adopt(p *pet.Pet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pet = p
	s.current = nil
	s.interactionID = ""
	s.lastDecision = ""
	s.state = Idle
}

// SyncVitals writes the live counters back onto the pet record and queues a
// save. Called on the engine's persist cadence.
func (s *Session) SyncVitals(stats pet.BaseStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pet == nil || s.pet.IsRIP() {
		return
	}
	s.pet.BaseStats = stats
	s.db.Save(s.pet)
}

// State returns the current machine state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the pending scenario, or nil when idle.
func (s *Session) Current() *pet.Dilemma {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LastDecision returns the most recent decision rendered for the pending
// scenario, for UI hinting on the feedback controls.
func (s *Session) LastDecision() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDecision
}

// Begin starts a new scenario. At most one scenario is pending at a time;
// calling Begin with one active returns it unchanged. Prefers the advisor's
// data-driven scenario, falls back to the local bank, and when the pool is
// exhausted nudges sanity as a consolation and returns nil.
func (s *Session) Begin(ctx context.Context) *pet.Dilemma {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.current
	}
	if s.pet == nil || s.pet.HasGraduated() || s.pet.IsRIP() {
		return nil
	}

	d := s.selectScenario(ctx)
	if d == nil {
		slog.Info("dilemma pool exhausted", "pet", s.pet.ID)
		s.vitals.Increment(vitals.Sanity, vitals.StandardIncrement)
		return nil
	}

	s.current = d
	s.state = AwaitingResponse
	slog.Info("scenario started", "pet", s.pet.ID, "dilemma", d.ID)
	return d
}

// selectScenario returns the next unseen dilemma, remote-first.
func (s *Session) selectScenario(ctx context.Context) *pet.Dilemma {
	if s.adv != nil && s.adv.Enabled() {
		remote, err := s.adv.NextDilemma(ctx)
		if err != nil {
			slog.Warn("remote dilemma unavailable, using local bank", "error", err)
		} else if s.pet.SeenDilemma(remote.ID) {
			slog.Debug("remote dilemma already seen, using local bank", "dilemma", remote.ID)
		} else {
			prompt := strings.ReplaceAll(remote.Question, "{pet}", s.pet.Name)
			return &pet.Dilemma{
				ID:          remote.ID,
				Messages:    []pet.Message{{Role: pet.RoleSystem, Content: prompt}},
				Context:     remote.Context,
				EvidenceIDs: remote.EvidenceIDs,
			}
		}
	}

	d := pet.RandomUnseenDilemma(s.pet, s.rng)
	if d == nil {
		return nil
	}
	d.Messages = []pet.Message{{Role: pet.RoleSystem, Content: pet.DilemmaText(d.ID, s.pet.Name)}}
	return d
}

// Submit sends the user's advice for the pending scenario. A submit while
// one is already in flight is ignored, not queued.
func (s *Session) Submit(ctx context.Context, text string) {
	s.mu.Lock()
	if s.state != AwaitingResponse || s.current == nil || s.submitting {
		s.mu.Unlock()
		return
	}
	s.submitting = true
	s.current.Messages = append(s.current.Messages, pet.Message{Role: pet.RoleUser, Content: text})
	scenarioID := s.current.ID
	scenarioContext := s.current.Context
	evidenceIDs := s.current.EvidenceIDs
	petID := s.pet.ID
	s.mu.Unlock()

	var resp *advisor.AdviceResponse
	var err error
	if s.adv != nil && s.adv.Enabled() {
		resp, err = s.adv.SubmitAdvice(ctx, text, petID, scenarioContext, evidenceIDs)
	} else {
		err = fmt.Errorf("advisor offline")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	// A response that arrives after the user has moved on is stale.
	if s.current == nil || s.current.ID != scenarioID {
		slog.Debug("stale advice response dropped", "dilemma", scenarioID)
		return
	}

	if err != nil {
		slog.Warn("advice call failed, answering offline", "error", err)
		s.applyOfflineAdvice()
	} else {
		s.applyAdvice(resp)
	}
	s.state = AwaitingFeedback
}

// applyAdvice folds a successful advisor response into the pet.
func (s *Session) applyAdvice(resp *advisor.AdviceResponse) {
	ans := resp.Answer

	excerpts := make([]string, 0, 3)
	for i, e := range resp.EvidenceBundle {
		if i >= 3 {
			break
		}
		excerpts = append(excerpts, "["+shortEvidenceID(e.ID)+"]")
	}
	assistant := fmt.Sprintf("decision: %s (confidence: %d%%)\n\n%s\n\nevidence: %s",
		ans.Decision, pct(ans.Confidence), ans.Rationale, strings.Join(excerpts, " "))
	s.current.Messages = append(s.current.Messages, pet.Message{Role: pet.RoleAssistant, Content: assistant})

	old := s.pet.MoralStats
	s.pet.MoralStats = mergeStats(resp.PetStats)
	s.pet.Personality = fmt.Sprintf("%s specialist with %d%% confidence", ans.Decision, pct(ans.Confidence))
	s.db.Save(s.pet)

	s.interactionID = resp.InteractionID
	s.lastDecision = ans.Decision
	s.vitals.Increment(vitals.Sanity, sanityAdviceBonus)

	if s.OnGraph != nil {
		s.OnGraph(&resp.NeighborhoodGraph, &resp.OverlayGraph)
	}
	if s.OnEvidence != nil {
		s.OnEvidence(resp.EvidenceBundle)
	}
	if changes := pet.DiffWritten(old, s.pet.MoralStats); len(changes) > 0 {
		s.outcome("success", fmt.Sprintf("%s: %s", ans.Decision, strings.Join(changes, ", ")))
	}
}

// applyOfflineAdvice synthesizes a decision locally when the service is
// unreachable: a uniform pick from the decision set, a plausible confidence,
// and the fixed delta table.
func (s *Session) applyOfflineAdvice() {
	decision := advisor.Decisions[s.rng.Intn(len(advisor.Decisions))]
	confidence := 0.5 + s.rng.Float64()*0.4

	assistant := fmt.Sprintf(
		"decision: %s (confidence: %d%%)\n\n[offline mode] based on the available information, this transaction should be %s. further review recommended when the advisor is available.\n\nevidence: [local analysis]",
		decision, pct(confidence), decisionVerbs[decision])
	s.current.Messages = append(s.current.Messages, pet.Message{Role: pet.RoleAssistant, Content: assistant})

	for k, delta := range fallbackDeltas[decision] {
		s.pet.MoralStats.Add(k, delta)
	}
	s.db.Save(s.pet)

	s.interactionID = ""
	s.lastDecision = decision
	s.vitals.Increment(vitals.Sanity, vitals.StandardIncrement)
	s.outcome("success", fmt.Sprintf("[offline] %s (%d%%)", decision, pct(confidence)))
}

// Feedback records the user's verdict on the rendered decision, resolves
// the scenario, and runs the evolution check. A failed remote feedback call
// falls back to the local delta table rather than losing the scenario. The
// remote call happens with the lock released so a slow service never stalls
// the engine's persist cadence or concurrent reads.
func (s *Session) Feedback(ctx context.Context, action string) error {
	if fallbackDeltas[action] == nil {
		return fmt.Errorf("unknown feedback action %q", action)
	}

	s.mu.Lock()
	if s.state != AwaitingFeedback || s.current == nil {
		s.mu.Unlock()
		return fmt.Errorf("no decision awaiting feedback")
	}
	if s.submitting {
		s.mu.Unlock()
		return fmt.Errorf("feedback already in flight")
	}
	s.submitting = true
	scenarioID := s.current.ID
	interactionID := s.interactionID
	s.mu.Unlock()

	var resp *advisor.FeedbackResponse
	var err error
	if interactionID != "" && s.adv != nil && s.adv.Enabled() {
		resp, err = s.adv.SubmitFeedback(ctx, interactionID, action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	// The pet may have been reset or re-adopted while the call was in flight.
	if s.current == nil || s.current.ID != scenarioID {
		slog.Debug("stale feedback response dropped", "dilemma", scenarioID)
		return fmt.Errorf("scenario no longer pending")
	}

	old := s.pet.MoralStats
	if err == nil && resp != nil {
		s.pet.MoralStats = mergeStats(resp.UpdatedPetStats)
		if s.OnGraph != nil {
			s.OnGraph(nil, &resp.OverlayGraphDelta)
		}
	} else {
		if err != nil {
			slog.Warn("feedback call failed, applying local deltas", "error", err)
		}
		for k, delta := range fallbackDeltas[action] {
			s.pet.MoralStats.Add(k, delta)
		}
	}

	snapshot := s.pet.MoralStats
	s.current.Completed = true
	s.current.Stats = &snapshot
	s.pet.Dilemmas = append(s.pet.Dilemmas, *s.current)
	s.db.Save(s.pet)

	s.vitals.Increment(vitals.Sanity, vitals.StandardIncrement)
	if changes := pet.DiffWritten(old, s.pet.MoralStats); len(changes) > 0 {
		s.outcome("success", fmt.Sprintf("feedback: %s (%s)", action, strings.Join(changes, ", ")))
	} else {
		s.outcome("success", "feedback: "+action)
	}

	s.current = nil
	s.interactionID = ""
	s.lastDecision = ""
	s.state = Idle

	s.checkEvolution()
	return nil
}

// checkEvolution runs the pure evolution engine against the updated history
// and applies any due transition. Callers hold the lock.
func (s *Session) checkEvolution() {
	avg := pet.AverageMoralStats(s.pet.Dilemmas)
	tr := pet.EvolveIfNeeded(s.pet.ResolvedCount(), s.pet, avg)
	if tr == nil {
		return
	}

	s.pet.EvolutionIDs = append(s.pet.EvolutionIDs, tr.EvolutionID)
	s.pet.Age = tr.Age
	s.db.Save(s.pet)
	s.db.Flush()
	slog.Info("pet evolved", "pet", s.pet.ID, "form", tr.EvolutionID, "age", tr.Age)

	if s.pet.HasGraduated() {
		s.vitals.SetGraduated()
		s.outcome("success", fmt.Sprintf("%s graduated as a %s!", s.pet.Name, tr.EvolutionID))
		return
	}
	s.outcome("success", fmt.Sprintf("%s evolved into a %s!", s.pet.Name, tr.EvolutionID))
}

// MarkDead appends the terminal rip marker exactly once and persists it
// immediately. Wired to the vitals store's death callback.
func (s *Session) MarkDead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pet == nil || s.pet.IsRIP() || s.pet.HasGraduated() {
		return
	}
	s.pet.EvolutionIDs = append(s.pet.EvolutionIDs, pet.RIP)
	s.db.Save(s.pet)
	s.db.Flush()
	slog.Info("pet died", "pet", s.pet.ID, "name", s.pet.Name)
	s.outcome("error", s.pet.Name+" has failed to thrive")
}

func (s *Session) outcome(kind, message string) {
	if s.OnOutcome != nil {
		s.OnOutcome(kind, message)
	}
}

// mergeStats folds a service stat map over the neutral defaults, so missing
// keys read as 50, and clamps the result.
func mergeStats(raw map[string]float64) pet.FinanceStats {
	merged := pet.DefaultFinanceStats()
	for k, v := range raw {
		merged.Set(pet.StatKey(k), v)
	}
	merged.Clamp()
	return merged
}

// shortEvidenceID reduces an evidence id to a displayable fragment: the last
// colon-separated segment, at most 8 characters.
func shortEvidenceID(id string) string {
	if id == "" {
		return "?"
	}
	parts := strings.Split(id, ":")
	frag := parts[len(parts)-1]
	if len(frag) > 8 {
		frag = frag[:8]
	}
	if frag == "" {
		return "?"
	}
	return frag
}

func pct(confidence float64) int {
	return int(math.Round(confidence * 100))
}
