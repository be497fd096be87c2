// Wire types for the advisor service contract.
package advisor

// Decisions the advisor can return for a scenario.
const (
	DecisionApprove  = "approve"
	DecisionFlag     = "flag"
	DecisionReject   = "reject"
	DecisionEscalate = "escalate"
)

// Decisions is the closed decision set, also used for offline synthesis.
var Decisions = [4]string{DecisionApprove, DecisionFlag, DecisionReject, DecisionEscalate}

// EvidenceItem is one retrieved evidence fragment backing a decision.
type EvidenceItem struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

// GraphNode is a node of the evidence knowledge graph.
type GraphNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label,omitempty"`
	Type       string         `json:"type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphEdge is an edge of the evidence knowledge graph. Overlay edges are
// the ones this pet's interactions have added on top of the base graph.
type GraphEdge struct {
	ID        string  `json:"id,omitempty"`
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Label     string  `json:"label,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
	IsOverlay bool    `json:"isOverlay,omitempty"`
}

// GraphBundle is a node/edge set returned by the service.
type GraphBundle struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Answer is the structured decision block of an advice response.
type Answer struct {
	Decision    string   `json:"decision"`
	Confidence  float64  `json:"confidence"`
	Rationale   string   `json:"rationale"`
	EvidenceIDs []string `json:"evidence_ids"`
}

// AdviceResponse is the service's reply to submitted advice.
type AdviceResponse struct {
	Answer            Answer             `json:"answer_json"`
	EvidenceBundle    []EvidenceItem     `json:"evidence_bundle"`
	NeighborhoodGraph GraphBundle        `json:"neighborhood_graph"`
	OverlayGraph      GraphBundle        `json:"overlay_graph"`
	PetStats          map[string]float64 `json:"pet_stats"`
	InteractionID     string             `json:"interaction_id,omitempty"`
}

// FeedbackResponse is the service's reply to a feedback action.
type FeedbackResponse struct {
	UpdatedPetStats   map[string]float64 `json:"updated_pet_stats"`
	OverlayGraphDelta GraphBundle        `json:"overlay_graph_delta"`
	NewPath           string             `json:"new_path,omitempty"`
}

// DilemmaResponse is a data-driven scenario generated by the service.
type DilemmaResponse struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Context     string   `json:"context,omitempty"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}
