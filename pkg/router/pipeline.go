// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbrtn/switchyard/pkg/errors"
	"github.com/mbrtn/switchyard/pkg/registry"
	"github.com/mbrtn/switchyard/pkg/telemetry"
)

// Router runs the two-stage routing pipeline: analyze (score every
// registered agent and pick a winner) then route (forward the request to
// the winner). The stages are strictly sequential and never loop back.
type Router struct {
	registry     *registry.Registry
	forwarder    Forwarder
	defaultAgent string
	logger       *slog.Logger
	metrics      *telemetry.RouterMetrics
	tracer       trace.Tracer
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithDefaultAgent sets the agent selected when nothing matches.
func WithDefaultAgent(agentID string) RouterOption {
	return func(r *Router) {
		if agentID != "" {
			r.defaultAgent = agentID
		}
	}
}

// WithRouterLogger sets the logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRouterMetrics sets the metrics tracker.
func WithRouterMetrics(metrics *telemetry.RouterMetrics) RouterOption {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// New creates a Router over the given registry and forwarder.
func New(reg *registry.Registry, forwarder Forwarder, opts ...RouterOption) *Router {
	r := &Router{
		registry:     reg,
		forwarder:    forwarder,
		defaultAgent: "argocd",
		logger:       slog.Default(),
		tracer:       otel.Tracer("switchyard/router"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// routeState is the per-request working state threaded through the
// pipeline. It is created fresh per request and never shared.
type routeState struct {
	request       string
	selectedAgent string
	fallback      bool
	confidence    float64
	reasoning     string
	matchedSkills []string
	response      string
	metadata      map[string]any
}

// Result is the uniform envelope returned for every processed request.
type Result struct {
	Success           bool           `json:"success"`
	Request           string         `json:"request"`
	SelectedAgentID   string         `json:"selected_agent_id,omitempty"`
	SelectedAgentName string         `json:"selected_agent_name,omitempty"`
	AgentSkills       []string       `json:"agent_skills,omitempty"`
	MatchedSkills     []string       `json:"matched_skills,omitempty"`
	Confidence        float64        `json:"confidence"`
	Reasoning         string         `json:"reasoning,omitempty"`
	Response          string         `json:"response,omitempty"`
	Error             string         `json:"error,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// ProcessRequest routes one request: analyze then route. A forwarding
// failure does not hide the routing decision; the caller always learns
// which agent would have handled the request.
func (r *Router) ProcessRequest(ctx context.Context, request string) *Result {
	ctx, span := r.tracer.Start(ctx, "router.process")
	defer span.End()

	state := &routeState{
		request: request,
		metadata: map[string]any{
			"request_id":      uuid.NewString(),
			"start_timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	span.SetAttributes(attribute.String(telemetry.AttrRequestID, state.metadata["request_id"].(string)))

	r.analyze(ctx, state)
	span.SetAttributes(
		attribute.String(telemetry.AttrAgentID, state.selectedAgent),
		attribute.Float64(telemetry.AttrConfidence, state.confidence),
		attribute.Bool(telemetry.AttrFallback, state.fallback),
	)
	r.metrics.RecordConfidence(ctx, state.selectedAgent, state.confidence, state.fallback)

	result := r.route(ctx, state)
	outcome := "completed"
	if !result.Success {
		outcome = fmt.Sprintf("%v", state.metadata["status"])
	}
	r.metrics.RecordRequest(ctx, state.selectedAgent, outcome)
	return result
}

// analyze scores every agent from one registry snapshot and picks the
// winner. Iteration follows registry insertion order; the first agent to
// reach the highest score keeps it (ties never overtake).
func (r *Router) analyze(ctx context.Context, state *routeState) {
	ctx, span := r.tracer.Start(ctx, "router.analyze")
	defer span.End()

	cards, index := r.registry.Snapshot()
	r.metrics.RecordRegistrySize(ctx, len(cards))

	bestAgent := ""
	bestScore := 0.0
	var bestKeywords, bestSkills []string
	agentScores := make(map[string]float64, len(cards))
	skillMatches := make(map[string][]string, len(cards))

	for _, card := range cards {
		score, matched := Score(state.request, card, index)
		agentScores[card.Name] = score
		skillMatches[card.Name] = matched
		if score > bestScore {
			bestScore = score
			bestAgent = card.Name
			bestSkills = matched
			bestKeywords = matchedKeywords(state.request, card)
		}
	}

	if bestAgent == "" {
		// Nothing matched (or the registry is empty): fall back to the
		// configured default agent.
		state.selectedAgent = r.defaultAgent
		state.fallback = true
		state.confidence = fallbackConfidence
		agentScores[r.defaultAgent] = fallbackConfidence
		state.reasoning = buildReasoning(r.defaultAgent, nil, nil, true)
	} else {
		state.selectedAgent = bestAgent
		state.confidence = Confidence(bestScore)
		state.matchedSkills = bestSkills
		state.reasoning = buildReasoning(bestAgent, bestKeywords, bestSkills, false)
	}

	state.metadata["agent_scores"] = agentScores
	state.metadata["skill_matches"] = skillMatches
	state.metadata["analysis_timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	span.SetAttributes(attribute.Float64(telemetry.AttrScore, bestScore))
}

// route forwards the request to the selected agent. Forwarding failure
// downgrades to a routing-only result instead of aborting.
func (r *Router) route(ctx context.Context, state *routeState) *Result {
	ctx, span := r.tracer.Start(ctx, "router.route")
	defer span.End()

	defer func() {
		state.metadata["response_timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	}()

	card, ok := r.registry.Get(state.selectedAgent)
	if !ok {
		// Race with a concurrent unregister, or an unregistered default
		// agent. The selection decision is still reported.
		state.metadata["status"] = "pipeline_error"
		err := errors.Newf(errors.CodePipeline, "selected agent %q is not registered", state.selectedAgent)
		r.logger.ErrorContext(ctx, "router.route.agent_missing",
			slog.String("agent", state.selectedAgent))
		return r.envelope(state, false, err.Error())
	}

	state.metadata["agent_endpoint"] = card.URL
	skillNames := make([]string, 0, len(card.Skills))
	for _, skill := range card.Skills {
		skillNames = append(skillNames, skill.Name)
	}
	state.metadata["agent_skills"] = skillNames

	response, err := r.forwarder.Forward(ctx, card.URL, state.request)
	if err != nil {
		state.metadata["status"] = "routing_only"
		state.response = routingOnlyResponse(card.Name, card.URL, state, err)
		r.logger.WarnContext(ctx, "router.route.forward_failed",
			slog.String("agent", card.Name),
			slog.String("endpoint", card.URL),
			slog.String("error", err.Error()))
		result := r.envelope(state, false, err.Error())
		result.AgentSkills = skillNames
		return result
	}

	state.metadata["status"] = "completed"
	state.response = fmt.Sprintf("Routed to %s → %s", card.Name, response)
	result := r.envelope(state, true, "")
	result.AgentSkills = skillNames
	return result
}

func (r *Router) envelope(state *routeState, success bool, errMsg string) *Result {
	return &Result{
		Success:           success,
		Request:           state.request,
		SelectedAgentID:   state.selectedAgent,
		SelectedAgentName: state.selectedAgent,
		MatchedSkills:     state.matchedSkills,
		Confidence:        state.confidence,
		Reasoning:         state.reasoning,
		Response:          state.response,
		Error:             errMsg,
		Metadata:          state.metadata,
	}
}

// routingOnlyResponse renders the selection decision when delivery
// failed, so the caller can still contact the agent directly.
func routingOnlyResponse(agentName, endpoint string, state *routeState, err error) string {
	return fmt.Sprintf(
		"Routing decision\n"+
			"Selected agent: %s\n"+
			"Endpoint: %s\n"+
			"Confidence: %.2f\n"+
			"Reasoning: %s\n"+
			"Could not forward request: %v\n"+
			"Connect directly to %s at %s",
		agentName, endpoint, state.confidence, state.reasoning, err, agentName, endpoint)
}
