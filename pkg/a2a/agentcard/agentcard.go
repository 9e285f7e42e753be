// Package agentcard defines the self-description document an agent
// publishes and the well-known fetch used to discover it.
package agentcard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AgentSkill is a named capability of an agent with descriptive tags
// used for request matching.
type AgentSkill struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentCard describes one worker agent: identity, endpoint, and skills.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	URL                string            `json:"url"`
	Version            string            `json:"version,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	Skills             []AgentSkill      `json:"skills,omitempty"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
}

// Config describes AgentCard fields derived from runtime settings.
type Config struct {
	Name               string
	Description        string
	URL                string
	Version            string
	Capabilities       AgentCapabilities
	Skills             []AgentSkill
	DefaultInputModes  []string
	DefaultOutputModes []string
}

// Build assembles an AgentCard from the provided config.
func Build(cfg Config) *AgentCard {
	return &AgentCard{
		Name:               cfg.Name,
		Description:        cfg.Description,
		URL:                cfg.URL,
		Version:            cfg.Version,
		Capabilities:       cfg.Capabilities,
		Skills:             cfg.Skills,
		DefaultInputModes:  cfg.DefaultInputModes,
		DefaultOutputModes: cfg.DefaultOutputModes,
	}
}

// Validate checks the card against the schema invariants: a non-empty
// name and an absolute endpoint URL.
func Validate(card *AgentCard) error {
	if card == nil {
		return fmt.Errorf("agent card is nil")
	}
	if strings.TrimSpace(card.Name) == "" {
		return fmt.Errorf("agent card missing name")
	}
	parsed, err := url.Parse(card.URL)
	if err != nil {
		return fmt.Errorf("agent card url: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("agent card url %q is not an absolute URL", card.URL)
	}
	seen := map[string]struct{}{}
	for _, skill := range card.Skills {
		if strings.TrimSpace(skill.Name) == "" {
			return fmt.Errorf("agent card %q has a skill without a name", card.Name)
		}
		if _, ok := seen[skill.Name]; ok {
			return fmt.Errorf("agent card %q has duplicate skill %q", card.Name, skill.Name)
		}
		seen[skill.Name] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the card so registry snapshots never
// expose internal state.
func (c *AgentCard) Clone() *AgentCard {
	if c == nil {
		return nil
	}
	out := *c
	out.Skills = make([]AgentSkill, len(c.Skills))
	for i, skill := range c.Skills {
		out.Skills[i] = skill
		out.Skills[i].Tags = append([]string(nil), skill.Tags...)
	}
	out.DefaultInputModes = append([]string(nil), c.DefaultInputModes...)
	out.DefaultOutputModes = append([]string(nil), c.DefaultOutputModes...)
	return &out
}

// Keywords returns all skill tags of the card in declaration order,
// duplicates preserved.
func (c *AgentCard) Keywords() []string {
	var out []string
	for _, skill := range c.Skills {
		out = append(out, skill.Tags...)
	}
	return out
}

// PublishHandler serves the provided AgentCard as JSON.
func PublishHandler(card *AgentCard) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if card == nil {
			http.Error(w, "agent card not configured", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", DefaultMediaType)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(card)
	})
}
