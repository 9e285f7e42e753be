// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"fmt"
	"strings"
)

// Command prefixes recognized by Execute. Anything else is treated as a
// routing request.
const (
	cmdListAgents      = "LIST_AGENTS"
	cmdRegisterAgent   = "REGISTER_AGENT:"
	cmdUnregisterAgent = "UNREGISTER_AGENT:"
)

// AgentSummary is one row of a LIST_AGENTS response.
type AgentSummary struct {
	AgentID      string              `json:"agent_id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Endpoint     string              `json:"endpoint"`
	Skills       []string            `json:"skills"`
	Keywords     map[string][]string `json:"keywords"`
	Capabilities map[string]bool     `json:"capabilities"`
}

// AgentList is the LIST_AGENTS response envelope.
type AgentList struct {
	Type       string         `json:"type"`
	Agents     []AgentSummary `json:"agents"`
	TotalCount int            `json:"total_count"`
}

// CommandResult is the envelope for registry mutation commands.
type CommandResult struct {
	Success   bool   `json:"success"`
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Execute dispatches one line of input: the management commands
// LIST_AGENTS, REGISTER_AGENT:<endpoint> and UNREGISTER_AGENT:<id> are
// handled against the registry; everything else runs the routing
// pipeline. The returned value is always JSON-serializable and Execute
// never panics on malformed input.
func (r *Router) Execute(ctx context.Context, input string) any {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == cmdListAgents:
		return r.listAgents()
	case strings.HasPrefix(trimmed, cmdRegisterAgent):
		endpoint := strings.TrimSpace(strings.TrimPrefix(trimmed, cmdRegisterAgent))
		return r.registerAgent(ctx, endpoint)
	case strings.HasPrefix(trimmed, cmdUnregisterAgent):
		identifier := strings.TrimSpace(strings.TrimPrefix(trimmed, cmdUnregisterAgent))
		return r.unregisterAgent(ctx, identifier)
	default:
		return r.ProcessRequest(ctx, input)
	}
}

func (r *Router) listAgents() *AgentList {
	cards, index := r.registry.Snapshot()
	list := &AgentList{
		Type:       "agent_list",
		Agents:     make([]AgentSummary, 0, len(cards)),
		TotalCount: len(cards),
	}
	for _, card := range cards {
		skills := make([]string, 0, len(card.Skills))
		keywords := make(map[string][]string, len(card.Skills))
		for _, skill := range card.Skills {
			skills = append(skills, skill.Name)
			keywords[skill.Name] = index.Keywords(skill.Name)
		}
		list.Agents = append(list.Agents, AgentSummary{
			AgentID:     card.Name,
			Name:        card.Name,
			Description: card.Description,
			Endpoint:    card.URL,
			Skills:      skills,
			Keywords:    keywords,
			Capabilities: map[string]bool{
				"streaming":                card.Capabilities.Streaming,
				"push_notifications":       card.Capabilities.PushNotifications,
				"state_transition_history": card.Capabilities.StateTransitionHistory,
			},
		})
	}
	return list
}

func (r *Router) registerAgent(ctx context.Context, endpoint string) *CommandResult {
	if endpoint == "" {
		return &CommandResult{Success: false, Error: "REGISTER_AGENT requires an endpoint URL"}
	}
	card, err := r.registry.FetchAndRegister(ctx, endpoint)
	if err != nil {
		return &CommandResult{Success: false, Endpoint: endpoint, Error: err.Error()}
	}
	return &CommandResult{
		Success:   true,
		AgentID:   card.Name,
		AgentName: card.Name,
		Endpoint:  endpoint,
		Message:   fmt.Sprintf("Successfully registered agent %q from %s", card.Name, endpoint),
	}
}

func (r *Router) unregisterAgent(ctx context.Context, identifier string) *CommandResult {
	if identifier == "" {
		return &CommandResult{Success: false, Error: "UNREGISTER_AGENT requires an agent id, name or endpoint"}
	}
	card, err := r.registry.Unregister(identifier)
	if err != nil {
		return &CommandResult{Success: false, Error: err.Error()}
	}
	return &CommandResult{
		Success:   true,
		AgentID:   card.Name,
		AgentName: card.Name,
		Endpoint:  card.URL,
		Message:   fmt.Sprintf("Successfully unregistered agent %q", card.Name),
	}
}
