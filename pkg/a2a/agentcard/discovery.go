package agentcard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mbrtn/switchyard/pkg/errors"
)

// Discovery constants for AgentCard HTTP endpoints.
const (
	// WellKnownPath is the standardized location for AgentCard discovery.
	WellKnownPath = "/.well-known/agent-card.json"
	// DefaultMediaType is the A2A media type for JSON payloads.
	DefaultMediaType = "application/a2a+json"
)

// Fetcher retrieves AgentCards from agent base URLs.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a fetcher. A nil client falls back to
// http.DefaultClient.
func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{httpClient: httpClient}
}

// Fetch retrieves and validates an AgentCard from a base URL. Failures
// are reported as FETCH_ERROR so callers can surface them uniformly.
func (f *Fetcher) Fetch(ctx context.Context, baseURL string) (*AgentCard, error) {
	target := strings.TrimRight(baseURL, "/") + WellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.New(errors.CodeFetch, "invalid agent endpoint", err).
			WithContext("endpoint", baseURL)
	}
	req.Header.Set("Accept", DefaultMediaType)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeFetch, "agent card fetch failed", err).
			WithContext("endpoint", baseURL).
			WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CodeFetch, "agent card fetch failed: %s", resp.Status).
			WithContext("endpoint", baseURL).
			WithRecoverable(true)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.CodeFetch, "agent card read failed", err).
			WithContext("endpoint", baseURL)
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, errors.New(errors.CodeFetch, "agent card is not valid JSON", err).
			WithContext("endpoint", baseURL)
	}
	// Agents occasionally publish cards without a url field; the base
	// endpoint is the only address we know them by in that case.
	if strings.TrimSpace(card.URL) == "" {
		card.URL = baseURL
	}
	if err := Validate(&card); err != nil {
		return nil, errors.New(errors.CodeFetch, "agent card failed validation", err).
			WithContext("endpoint", baseURL)
	}
	return &card, nil
}

// Fetch retrieves an AgentCard using the default HTTP client.
func Fetch(ctx context.Context, baseURL string) (*AgentCard, error) {
	return NewFetcher(nil).Fetch(ctx, baseURL)
}
