// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mbrtn/switchyard/pkg/errors"
)

// fakeAgent serves the JSON-RPC agent side: message/send creates a task
// and tasks/get walks through the given states on successive polls.
type fakeAgent struct {
	states    []string // state per poll; the last one repeats
	finalBody string   // raw task JSON served once a terminal state is hit
	sendBody  string   // overrides the message/send result when set
	polls     atomic.Int64
	sends     atomic.Int64
}

func (a *fakeAgent) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "message/send":
			a.sends.Add(1)
			body := a.sendBody
			if body == "" {
				body = `{"id":"task-1","status":{"state":"submitted"}}`
			}
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"1","result":%s}`, body)
		case "tasks/get":
			n := a.polls.Add(1)
			idx := int(n) - 1
			if idx >= len(a.states) {
				idx = len(a.states) - 1
			}
			state := a.states[idx]
			body := a.finalBody
			if body == "" || !isTerminal(state) {
				body = fmt.Sprintf(`{"id":"task-1","status":{"state":"%s"}}`, state)
			}
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"1","result":%s}`, body)
		default:
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"method not found"}}`)
		}
	}
}

func isTerminal(state string) bool {
	return state == "completed" || state == "failed" || state == "input-required"
}

func fastForwarder(extra ...ForwarderOption) *HTTPForwarder {
	opts := append([]ForwarderOption{WithPolling(time.Millisecond, 3)}, extra...)
	return NewHTTPForwarder(opts...)
}

func TestForwardImmediateMessage(t *testing.T) {
	agent := &fakeAgent{sendBody: `{"role":"agent","parts":[{"kind":"text","text":"instant answer"}]}`}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	text, err := fastForwarder().Forward(context.Background(), srv.URL, "hello")
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if text != "instant answer" {
		t.Fatalf("text = %q", text)
	}
	if agent.polls.Load() != 0 {
		t.Fatalf("polled %d times for a message result", agent.polls.Load())
	}
}

func TestForwardPollsToCompletion(t *testing.T) {
	agent := &fakeAgent{
		states:    []string{"working", "working", "completed"},
		finalBody: `{"id":"task-1","status":{"state":"completed"},"artifacts":[{"parts":[{"kind":"text","text":"834.50 INR"}]}]}`,
	}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	text, err := fastForwarder().Forward(context.Background(), srv.URL, "convert 10 usd to inr")
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if text != "834.50 INR" {
		t.Fatalf("text = %q", text)
	}
	if agent.polls.Load() != 3 {
		t.Fatalf("polls = %d, want 3", agent.polls.Load())
	}
}

func TestForwardCompletedWithoutArtifact(t *testing.T) {
	agent := &fakeAgent{states: []string{"completed"}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	text, err := fastForwarder().Forward(context.Background(), srv.URL, "do it")
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if text != noArtifactText {
		t.Fatalf("text = %q, want sentinel", text)
	}
}

func TestForwardTaskFailed(t *testing.T) {
	agent := &fakeAgent{states: []string{"failed"}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	_, err := fastForwarder().Forward(context.Background(), srv.URL, "do it")
	if errors.CodeOf(err) != errors.CodeProtocol {
		t.Fatalf("code = %s, want PROTOCOL_ERROR", errors.CodeOf(err))
	}
}

func TestForwardInputRequired(t *testing.T) {
	agent := &fakeAgent{
		states:    []string{"input-required"},
		finalBody: `{"id":"task-1","status":{"state":"input-required","message":{"role":"agent","parts":[{"kind":"text","text":"which currency?"}]}}}`,
	}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	// A clarifying question is a valid response, not an error.
	text, err := fastForwarder().Forward(context.Background(), srv.URL, "convert 10")
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if text != "which currency?" {
		t.Fatalf("text = %q", text)
	}
}

func TestForwardInputRequiredWithoutMessage(t *testing.T) {
	agent := &fakeAgent{states: []string{"input-required"}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	text, err := fastForwarder().Forward(context.Background(), srv.URL, "convert 10")
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if text != noInputRequiredText {
		t.Fatalf("text = %q, want sentinel", text)
	}
}

func TestForwardTimeoutExhaustsAttemptBudget(t *testing.T) {
	agent := &fakeAgent{states: []string{"working"}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	_, err := fastForwarder().Forward(context.Background(), srv.URL, "slow job")
	if errors.CodeOf(err) != errors.CodeTimeout {
		t.Fatalf("code = %s, want TIMEOUT", errors.CodeOf(err))
	}
	if agent.polls.Load() != 3 {
		t.Fatalf("polls = %d, want exactly the attempt budget", agent.polls.Load())
	}
}

func TestForwardContextCancelled(t *testing.T) {
	agent := &fakeAgent{states: []string{"working"}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	f := NewHTTPForwarder(WithPolling(time.Hour, 3))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := f.Forward(ctx, srv.URL, "slow job")
	if errors.CodeOf(err) != errors.CodeTimeout {
		t.Fatalf("code = %s, want TIMEOUT", errors.CodeOf(err))
	}
	if agent.polls.Load() != 0 {
		t.Fatalf("polls = %d, cancellation should beat the first wait", agent.polls.Load())
	}
}

func TestForwardSubmitHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fastForwarder().Forward(context.Background(), srv.URL, "hello")
	if errors.CodeOf(err) != errors.CodeProtocol {
		t.Fatalf("code = %s, want PROTOCOL_ERROR", errors.CodeOf(err))
	}
}

func TestForwardBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "agent down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := fastForwarder(WithBreaker(2, time.Hour))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.Forward(ctx, srv.URL, "hello"); err == nil {
			t.Fatal("expected error")
		}
	}

	_, err := f.Forward(ctx, srv.URL, "hello")
	if err == nil {
		t.Fatal("expected open-circuit error")
	}
	if !strings.Contains(err.Error(), "circuit open") {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("endpoint hits = %d, breaker should fail fast after trip", hits.Load())
	}
}
