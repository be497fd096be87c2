package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientEmptyURLDisabled(t *testing.T) {
	c := NewClient("")
	if c != nil {
		t.Fatal("expected nil client for empty URL")
	}
	if c.Enabled() {
		t.Fatal("nil client must report disabled")
	}
	if _, err := c.NextDilemma(context.Background()); err == nil {
		t.Fatal("expected error from disabled client")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if !c.Health(context.Background()) {
		t.Fatal("expected healthy")
	}

	down := NewClient("http://127.0.0.1:1")
	if down.Health(context.Background()) {
		t.Fatal("expected unhealthy for unreachable service")
	}
}

func TestNextDilemma(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dilemma/next" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(DilemmaResponse{
			ID:          "case-77",
			Question:    "a vendor invoice looks duplicated, what should {pet} do?",
			Context:     "ctx-token",
			EvidenceIDs: []string{"urn:ev:a", "urn:ev:b"},
		})
	}))
	defer srv.Close()

	d, err := NewClient(srv.URL).NextDilemma(context.Background())
	if err != nil {
		t.Fatalf("next dilemma: %v", err)
	}
	if d.ID != "case-77" || d.Context != "ctx-token" || len(d.EvidenceIDs) != 2 {
		t.Fatalf("unexpected response: %+v", d)
	}
}

func TestNextDilemmaRejectsEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(DilemmaResponse{})
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).NextDilemma(context.Background()); err == nil {
		t.Fatal("expected error for empty dilemma id")
	}
}

func TestSubmitAdvice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/qa" || r.Method != http.MethodPost {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			Question    string   `json:"question"`
			PetID       string   `json:"pet_id"`
			Context     string   `json:"context"`
			EvidenceIDs []string `json:"evidence_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Question != "flag it" || req.PetID != "pet-1" || req.Context != "ctx" {
			t.Fatalf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(AdviceResponse{
			Answer: Answer{
				Decision:   DecisionFlag,
				Confidence: 0.82,
				Rationale:  "amount and date pattern matches duplicates",
			},
			EvidenceBundle: []EvidenceItem{{ID: "urn:ev:a", Text: "invoice A"}},
			PetStats:       map[string]float64{"compliance": 58},
			InteractionID:  "int-9",
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).SubmitAdvice(context.Background(), "flag it", "pet-1", "ctx", []string{"urn:ev:a"})
	if err != nil {
		t.Fatalf("submit advice: %v", err)
	}
	if resp.Answer.Decision != DecisionFlag || resp.InteractionID != "int-9" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.PetStats["compliance"] != 58 {
		t.Fatalf("expected pet stats carried through, got %+v", resp.PetStats)
	}
}

func TestSubmitFeedback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feedback" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			InteractionID string `json:"interaction_id"`
			Action        string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.InteractionID != "int-9" || req.Action != DecisionApprove {
			t.Fatalf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(FeedbackResponse{
			UpdatedPetStats: map[string]float64{"risk": 47},
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).SubmitFeedback(context.Background(), "int-9", DecisionApprove)
	if err != nil {
		t.Fatalf("submit feedback: %v", err)
	}
	if resp.UpdatedPetStats["risk"] != 47 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).NextDilemma(context.Background()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
