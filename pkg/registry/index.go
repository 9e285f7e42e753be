package registry

import (
	"strings"

	"github.com/mbrtn/switchyard/pkg/a2a/agentcard"
)

// CapabilityIndex maps a skill name to its deduplicated, case-normalized
// keyword set. It is derived state: always rebuilt in full from the
// registry contents, never patched in place.
type CapabilityIndex map[string][]string

// minKeywordLen filters description tokens too short to be meaningful.
const minKeywordLen = 3

// descriptionKeywords is how many leading description words feed the index.
const descriptionKeywords = 3

// buildIndex derives a CapabilityIndex from the given cards. It is a pure
// function of its input; the registry invokes it synchronously on every
// mutation so readers never observe a stale index.
func buildIndex(cards []*agentcard.AgentCard) CapabilityIndex {
	index := make(CapabilityIndex)
	for _, card := range cards {
		for _, skill := range card.Skills {
			keywords := index[skill.Name]

			for _, tag := range skill.Tags {
				keywords = appendKeyword(keywords, strings.ToLower(tag))
			}

			// The skill name itself matches requests that spell it out,
			// with underscores read as spaces.
			name := strings.ReplaceAll(strings.ToLower(skill.Name), "_", " ")
			keywords = appendKeyword(keywords, name)

			words := strings.Fields(strings.ToLower(skill.Description))
			if len(words) > descriptionKeywords {
				words = words[:descriptionKeywords]
			}
			for _, word := range words {
				if len(word) >= minKeywordLen {
					keywords = appendKeyword(keywords, word)
				}
			}

			index[skill.Name] = keywords
		}
	}
	return index
}

func appendKeyword(keywords []string, candidate string) []string {
	if candidate == "" {
		return keywords
	}
	for _, existing := range keywords {
		if existing == candidate {
			return keywords
		}
	}
	return append(keywords, candidate)
}

// Clone returns a deep copy of the index.
func (idx CapabilityIndex) Clone() CapabilityIndex {
	out := make(CapabilityIndex, len(idx))
	for name, keywords := range idx {
		out[name] = append([]string(nil), keywords...)
	}
	return out
}

// Keywords returns the keyword set for a skill name, or nil.
func (idx CapabilityIndex) Keywords(skillName string) []string {
	return idx[skillName]
}
