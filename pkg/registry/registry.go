// SPDX-License-Identifier: Apache-2.0

// Package registry maintains the live set of known worker agents and the
// capability index derived from their skills.
package registry

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/mbrtn/switchyard/pkg/a2a/agentcard"
	"github.com/mbrtn/switchyard/pkg/errors"
)

// Registry is the source of truth for which agents exist. It is safe for
// concurrent use: mutations and the index rebuild happen under one write
// lock, reads take a read lock and always observe a consistent
// registry+index pair.
type Registry struct {
	mu     sync.RWMutex
	cards  map[string]*agentcard.AgentCard
	order  []string
	index  CapabilityIndex
	fetch  *agentcard.Fetcher
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithHTTPClient sets the HTTP client used for agent card fetches.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(r *Registry) {
		r.fetch = agentcard.NewFetcher(httpClient)
	}
}

// WithLogger sets the logger used for bootstrap and mutation events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		cards:  make(map[string]*agentcard.AgentCard),
		index:  make(CapabilityIndex),
		fetch:  agentcard.NewFetcher(nil),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register inserts or replaces the entry keyed by the card name and
// rebuilds the capability index. Re-registering an existing name
// overwrites the card but keeps its position in iteration order.
// It returns the resolved agent id.
func (r *Registry) Register(card *agentcard.AgentCard) (string, error) {
	if err := agentcard.Validate(card); err != nil {
		return "", errors.New(errors.CodeInvalidInput, "invalid agent card", err)
	}
	clone := card.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cards[clone.Name]; !exists {
		r.order = append(r.order, clone.Name)
	}
	r.cards[clone.Name] = clone
	r.rebuildLocked()
	return clone.Name, nil
}

// Unregister removes the entry matching the identifier. The identifier
// may match by registry id, exact endpoint URL, case-insensitive name,
// or substring of the endpoint, checked in that priority order.
func (r *Registry) Unregister(identifier string) (*agentcard.AgentCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.resolveLocked(identifier)
	if id == "" {
		available := append([]string(nil), r.order...)
		return nil, errors.Newf(errors.CodeNotFound, "agent not found: %s", identifier).
			WithContext("available_agents", available)
	}

	removed := r.cards[id]
	delete(r.cards, id)
	for i, name := range r.order {
		if name == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.rebuildLocked()
	return removed, nil
}

// resolveLocked maps an identifier to a registry key. Each identifier
// form is tried against every entry before falling through to the next,
// weaker form.
func (r *Registry) resolveLocked(identifier string) string {
	for _, name := range r.order {
		if name == identifier {
			return name
		}
	}
	for _, name := range r.order {
		if r.cards[name].URL == identifier {
			return name
		}
	}
	for _, name := range r.order {
		if strings.EqualFold(name, identifier) {
			return name
		}
	}
	for _, name := range r.order {
		if identifier != "" && strings.Contains(r.cards[name].URL, identifier) {
			return name
		}
	}
	return ""
}

// Get returns a copy of the card registered under id.
func (r *Registry) Get(id string) (*agentcard.AgentCard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[id]
	if !ok {
		return nil, false
	}
	return card.Clone(), true
}

// List returns a snapshot of all registered cards in insertion order.
func (r *Registry) List() []*agentcard.AgentCard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Snapshot returns the registered cards and the capability index as one
// consistent pair, taken under a single read lock.
func (r *Registry) Snapshot() ([]*agentcard.AgentCard, CapabilityIndex) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(), r.index.Clone()
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// FetchAndRegister retrieves the agent card published at the endpoint's
// well-known path and registers it. The network fetch happens outside
// the registry lock.
func (r *Registry) FetchAndRegister(ctx context.Context, endpoint string) (*agentcard.AgentCard, error) {
	card, err := r.fetch.Fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if _, err := r.Register(card); err != nil {
		return nil, err
	}
	return card, nil
}

// Bootstrap seeds the registry from a list of agent endpoints. A failed
// fetch is logged and skipped; bootstrap itself never fails.
func (r *Registry) Bootstrap(ctx context.Context, endpoints []string) {
	for _, endpoint := range endpoints {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		card, err := r.FetchAndRegister(ctx, endpoint)
		if err != nil {
			r.logger.WarnContext(ctx, "registry.bootstrap.skip",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()))
			continue
		}
		r.logger.InfoContext(ctx, "registry.bootstrap.registered",
			slog.String("agent", card.Name),
			slog.String("endpoint", endpoint))
	}
}

func (r *Registry) snapshotLocked() []*agentcard.AgentCard {
	out := make([]*agentcard.AgentCard, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.cards[name].Clone())
	}
	return out
}

func (r *Registry) rebuildLocked() {
	ordered := make([]*agentcard.AgentCard, 0, len(r.order))
	for _, name := range r.order {
		ordered = append(ordered, r.cards[name])
	}
	r.index = buildIndex(ordered)
}
