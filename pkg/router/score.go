// SPDX-License-Identifier: Apache-2.0

// Package router selects the best-matching agent for a request and
// forwards the request to it over the A2A task protocol.
package router

import (
	"fmt"
	"strings"

	"github.com/mbrtn/switchyard/pkg/a2a/agentcard"
	"github.com/mbrtn/switchyard/pkg/registry"
)

// Scoring weights. A tag hit is worth one point; a skill whose derived
// keyword set matches is worth one and a half.
const (
	keywordWeight = 1.0
	skillWeight   = 1.5

	// confidenceCeiling calibrates score to confidence: 5.0 represents
	// two tag matches plus one strong skill match.
	confidenceCeiling = 5.0

	// fallbackConfidence is reported when no agent scored above zero and
	// the default agent was selected.
	fallbackConfidence = 0.3
)

// Score rates how well a card matches the request. It is a pure function
// of its inputs and returns the total score plus the names of the skills
// whose keyword sets matched.
//
// Two passes run over the card:
//   - keyword pass: every tag occurrence across every skill that is a
//     substring of the request adds keywordWeight. Tags are not
//     deduplicated, so a tag repeated across skills counts each time.
//   - skill pass: a skill matches when any keyword in its index entry is
//     a substring of the request, adding skillWeight.
func Score(request string, card *agentcard.AgentCard, index registry.CapabilityIndex) (float64, []string) {
	requestLower := strings.ToLower(request)

	score := 0.0
	for _, keyword := range card.Keywords() {
		if keyword != "" && strings.Contains(requestLower, strings.ToLower(keyword)) {
			score += keywordWeight
		}
	}

	var matchedSkills []string
	for _, skill := range card.Skills {
		if skillMatches(requestLower, index.Keywords(skill.Name)) {
			score += skillWeight
			matchedSkills = append(matchedSkills, skill.Name)
		}
	}
	return score, matchedSkills
}

func skillMatches(requestLower string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(requestLower, keyword) {
			return true
		}
	}
	return false
}

// Confidence normalizes a winning score into [0, 1].
func Confidence(score float64) float64 {
	confidence := score / confidenceCeiling
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}

// matchedKeywords returns the card's tags that are substrings of the
// request, for the reasoning string.
func matchedKeywords(request string, card *agentcard.AgentCard) []string {
	requestLower := strings.ToLower(request)
	var out []string
	for _, keyword := range card.Keywords() {
		if keyword != "" && strings.Contains(requestLower, strings.ToLower(keyword)) {
			out = append(out, keyword)
		}
	}
	return out
}

// buildReasoning produces the human-readable routing explanation. It is
// deterministic for a fixed request and selection.
func buildReasoning(selectedName string, keywords, skills []string, fallback bool) string {
	parts := []string{fmt.Sprintf("Selected %s", selectedName)}
	if len(keywords) > 0 {
		parts = append(parts, fmt.Sprintf("based on keywords: %s", strings.Join(keywords, ", ")))
	}
	if len(skills) > 0 {
		if len(keywords) > 0 {
			parts = append(parts, fmt.Sprintf("and skills: %s", strings.Join(skills, ", ")))
		} else {
			parts = append(parts, fmt.Sprintf("based on skills: %s", strings.Join(skills, ", ")))
		}
	}
	if fallback {
		parts = append(parts, "using default agent fallback")
	}
	return strings.Join(parts, " ")
}
