package agentcard

import (
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"testing"
)

func testCard() *AgentCard {
	return Build(Config{
		Name:        "currency",
		Description: "Currency exchange agent",
		URL:         "http://localhost:7001/",
		Version:     "1.0.0",
		Skills: []AgentSkill{
			{ID: "fx", Name: "currency_exchange", Description: "Convert between currencies", Tags: []string{"usd", "inr", "fx"}},
			{ID: "rates", Name: "rate_lookup", Description: "Look up exchange rates", Tags: []string{"rates", "fx"}},
		},
	})
}

func TestValidate(t *testing.T) {
	if err := Validate(testCard()); err != nil {
		t.Fatalf("valid card rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*AgentCard)
	}{
		{"missing name", func(c *AgentCard) { c.Name = " " }},
		{"relative url", func(c *AgentCard) { c.URL = "/agents/currency" }},
		{"empty url", func(c *AgentCard) { c.URL = "" }},
		{"unnamed skill", func(c *AgentCard) { c.Skills[0].Name = "" }},
		{"duplicate skill", func(c *AgentCard) { c.Skills[1].Name = c.Skills[0].Name }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := testCard()
			tc.mutate(card)
			if err := Validate(card); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Error("nil card accepted")
	}
}

func TestKeywordsPreservesOrderAndDuplicates(t *testing.T) {
	got := testCard().Keywords()
	want := []string{"usd", "inr", "fx", "rates", "fx"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Keywords() = %v, want %v", got, want)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	card := testCard()
	clone := card.Clone()

	clone.Skills[0].Tags[0] = "mutated"
	clone.Skills[1].Name = "renamed"

	if card.Skills[0].Tags[0] != "usd" {
		t.Error("clone shares tag backing array with original")
	}
	if card.Skills[1].Name != "rate_lookup" {
		t.Error("clone shares skill slice with original")
	}

	var nilCard *AgentCard
	if nilCard.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestPublishHandler(t *testing.T) {
	card := testCard()
	rec := httptest.NewRecorder()
	PublishHandler(card).ServeHTTP(rec, httptest.NewRequest("GET", WellKnownPath, nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != DefaultMediaType {
		t.Fatalf("content type = %q, want %q", ct, DefaultMediaType)
	}
	var decoded AgentCard
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Name != card.Name || len(decoded.Skills) != 2 {
		t.Fatalf("decoded card = %+v", decoded)
	}
}

func TestPublishHandlerNilCard(t *testing.T) {
	rec := httptest.NewRecorder()
	PublishHandler(nil).ServeHTTP(rec, httptest.NewRequest("GET", WellKnownPath, nil))
	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
