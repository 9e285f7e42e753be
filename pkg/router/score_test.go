// SPDX-License-Identifier: Apache-2.0

package router

import (
	"reflect"
	"testing"

	"github.com/mbrtn/switchyard/pkg/a2a/agentcard"
	"github.com/mbrtn/switchyard/pkg/registry"
)

func currencyCard() *agentcard.AgentCard {
	return &agentcard.AgentCard{
		Name: "currency",
		URL:  "http://fx.internal:7001/",
		Skills: []agentcard.AgentSkill{
			{
				Name:        "currency_exchange",
				Description: "Convert between currencies",
				Tags:        []string{"usd", "inr"},
			},
		},
	}
}

func indexFor(t *testing.T, cards ...*agentcard.AgentCard) registry.CapabilityIndex {
	t.Helper()
	reg := registry.New()
	for _, c := range cards {
		if _, err := reg.Register(c); err != nil {
			t.Fatalf("register %s: %v", c.Name, err)
		}
	}
	_, index := reg.Snapshot()
	return index
}

func TestScoreTagAndSkillMatch(t *testing.T) {
	card := currencyCard()
	index := indexFor(t, card)

	// Two tag hits (usd, inr) plus one skill match: 2*1.0 + 1.5.
	score, skills := Score("How much is 10 USD in INR?", card, index)
	if score != 3.5 {
		t.Fatalf("score = %v, want 3.5", score)
	}
	if !reflect.DeepEqual(skills, []string{"currency_exchange"}) {
		t.Fatalf("matched skills = %v", skills)
	}
	if got := Confidence(score); got != 0.7 {
		t.Fatalf("confidence = %v, want 0.7", got)
	}
}

func TestScoreNoMatch(t *testing.T) {
	card := currencyCard()
	index := indexFor(t, card)

	score, skills := Score("restart the payments cluster", card, index)
	if score != 0 {
		t.Fatalf("score = %v, want 0", score)
	}
	if skills != nil {
		t.Fatalf("matched skills = %v, want none", skills)
	}
}

func TestScoreCountsRepeatedTags(t *testing.T) {
	card := &agentcard.AgentCard{
		Name: "deployer",
		URL:  "http://deploy/",
		Skills: []agentcard.AgentSkill{
			{Name: "rollout", Tags: []string{"deploy"}},
			{Name: "rollback", Tags: []string{"deploy"}},
		},
	}
	index := indexFor(t, card)

	// The same tag on two skills counts twice, and both skills match
	// through their index entries: 2*1.0 + 2*1.5.
	score, skills := Score("deploy the api service", card, index)
	if score != 5.0 {
		t.Fatalf("score = %v, want 5.0", score)
	}
	if len(skills) != 2 {
		t.Fatalf("matched skills = %v", skills)
	}
	if got := Confidence(score); got != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", got)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	card := currencyCard()
	index := indexFor(t, card)

	first, _ := Score("usd rates please", card, index)
	for i := 0; i < 10; i++ {
		if got, _ := Score("usd rates please", card, index); got != first {
			t.Fatalf("score changed between runs: %v vs %v", got, first)
		}
	}
}

func TestConfidenceClamp(t *testing.T) {
	if got := Confidence(12.5); got != 1.0 {
		t.Fatalf("Confidence(12.5) = %v, want 1.0", got)
	}
	if got := Confidence(0); got != 0 {
		t.Fatalf("Confidence(0) = %v, want 0", got)
	}
}

func TestBuildReasoning(t *testing.T) {
	got := buildReasoning("currency", []string{"usd", "inr"}, []string{"currency_exchange"}, false)
	want := "Selected currency based on keywords: usd, inr and skills: currency_exchange"
	if got != want {
		t.Fatalf("reasoning = %q, want %q", got, want)
	}

	got = buildReasoning("currency", nil, []string{"currency_exchange"}, false)
	want = "Selected currency based on skills: currency_exchange"
	if got != want {
		t.Fatalf("reasoning = %q, want %q", got, want)
	}

	got = buildReasoning("argocd", nil, nil, true)
	want = "Selected argocd using default agent fallback"
	if got != want {
		t.Fatalf("reasoning = %q, want %q", got, want)
	}
}
