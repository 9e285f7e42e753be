package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbrtn/switchyard/pkg/a2a/agentcard"
)

// Manifest is a static list of agent descriptors loaded from disk. It
// seeds the registry without a network fetch, for environments where the
// agents' well-known endpoints are not reachable at startup.
type Manifest struct {
	Agents []ManifestAgent `yaml:"agents"`
}

// ManifestAgent mirrors the agent card schema in YAML form.
type ManifestAgent struct {
	Name         string          `yaml:"name"`
	Description  string          `yaml:"description"`
	URL          string          `yaml:"url"`
	Version      string          `yaml:"version"`
	Skills       []ManifestSkill `yaml:"skills"`
	Capabilities struct {
		Streaming              bool `yaml:"streaming"`
		PushNotifications      bool `yaml:"push_notifications"`
		StateTransitionHistory bool `yaml:"state_transition_history"`
	} `yaml:"capabilities"`
}

// ManifestSkill mirrors the skill schema in YAML form.
type ManifestSkill struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// LoadManifest parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &manifest, nil
}

// Card converts a manifest entry to an agent card.
func (a ManifestAgent) Card() *agentcard.AgentCard {
	skills := make([]agentcard.AgentSkill, 0, len(a.Skills))
	for _, skill := range a.Skills {
		skills = append(skills, agentcard.AgentSkill{
			ID:          skill.ID,
			Name:        skill.Name,
			Description: skill.Description,
			Tags:        skill.Tags,
		})
	}
	return &agentcard.AgentCard{
		Name:        a.Name,
		Description: a.Description,
		URL:         a.URL,
		Version:     a.Version,
		Skills:      skills,
		Capabilities: agentcard.AgentCapabilities{
			Streaming:              a.Capabilities.Streaming,
			PushNotifications:      a.Capabilities.PushNotifications,
			StateTransitionHistory: a.Capabilities.StateTransitionHistory,
		},
	}
}

// RegisterManifest loads a manifest file and registers every agent in
// it. It returns the number of agents registered; per-agent validation
// failures abort the load so a bad manifest is caught at startup.
func (r *Registry) RegisterManifest(path string) (int, error) {
	manifest, err := LoadManifest(path)
	if err != nil {
		return 0, err
	}
	for i, entry := range manifest.Agents {
		if _, err := r.Register(entry.Card()); err != nil {
			return i, fmt.Errorf("manifest agent %d (%s): %w", i, entry.Name, err)
		}
	}
	return len(manifest.Agents), nil
}
