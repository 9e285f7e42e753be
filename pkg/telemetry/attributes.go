// SPDX-License-Identifier: Apache-2.0

package telemetry

// Semantic conventions for Switchyard router telemetry.
const (
	// Routing decision attributes
	AttrRequestID     = "switchyard.request.id"
	AttrAgentID       = "switchyard.agent.id"
	AttrAgentEndpoint = "switchyard.agent.endpoint"
	AttrScore         = "switchyard.route.score"
	AttrConfidence    = "switchyard.route.confidence"
	AttrFallback      = "switchyard.route.fallback"

	// Forwarding attributes
	AttrTaskID       = "switchyard.task.id"
	AttrTaskState    = "switchyard.task.state"
	AttrPollAttempts = "switchyard.forward.poll_attempts"

	// Registry attributes
	AttrRegistrySize = "switchyard.registry.size"
)
