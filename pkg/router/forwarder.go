package router

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbrtn/switchyard/pkg/a2a/jsonrpc/client"
	"github.com/mbrtn/switchyard/pkg/a2a/types"
	"github.com/mbrtn/switchyard/pkg/errors"
	"github.com/mbrtn/switchyard/pkg/telemetry"
)

// Forwarder delivers a request to an agent endpoint and tracks the
// resulting task to a terminal state.
type Forwarder interface {
	Forward(ctx context.Context, endpoint, request string) (string, error)
}

// Polling defaults: one-second interval, thirty attempts, a hard
// thirty-second budget.
const (
	defaultPollInterval = time.Second
	defaultMaxAttempts  = 30
)

// Circuit breaker defaults for agent submissions.
const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
)

// Response sentinels for terminal states that carry no text.
const (
	noArtifactText      = "Task completed but no response text found"
	noMessageText       = "Message received but no text content"
	noInputRequiredText = "Agent requires input but no message provided"
)

// HTTPForwarder implements Forwarder over the JSON-RPC HTTP binding. It
// submits via message/send, then polls tasks/get until the task reaches
// completed, failed, or input-required, or the attempt budget runs out.
// Submissions to each endpoint run through a circuit breaker so an agent
// that keeps failing is failed fast instead of hammered.
type HTTPForwarder struct {
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int

	breakerMaxFailures uint32
	breakerTimeout     time.Duration
	breakersMu         sync.Mutex
	breakers           map[string]*gobreaker.CircuitBreaker[*types.SendResult]

	logger  *slog.Logger
	metrics *telemetry.RouterMetrics
	tracer  trace.Tracer
}

// ForwarderOption configures an HTTPForwarder.
type ForwarderOption func(*HTTPForwarder)

// WithForwarderHTTPClient overrides the HTTP client used for submissions
// and polling.
func WithForwarderHTTPClient(httpClient *http.Client) ForwarderOption {
	return func(f *HTTPForwarder) {
		if httpClient != nil {
			f.httpClient = httpClient
		}
	}
}

// WithPolling sets the poll interval and the maximum number of attempts.
func WithPolling(interval time.Duration, maxAttempts int) ForwarderOption {
	return func(f *HTTPForwarder) {
		if interval > 0 {
			f.pollInterval = interval
		}
		if maxAttempts > 0 {
			f.maxAttempts = maxAttempts
		}
	}
}

// WithBreaker sets circuit breaker thresholds for agent submissions.
func WithBreaker(maxFailures uint32, timeout time.Duration) ForwarderOption {
	return func(f *HTTPForwarder) {
		if maxFailures > 0 {
			f.breakerMaxFailures = maxFailures
		}
		if timeout > 0 {
			f.breakerTimeout = timeout
		}
	}
}

// WithForwarderLogger sets the logger.
func WithForwarderLogger(logger *slog.Logger) ForwarderOption {
	return func(f *HTTPForwarder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithForwarderMetrics sets the metrics tracker.
func WithForwarderMetrics(metrics *telemetry.RouterMetrics) ForwarderOption {
	return func(f *HTTPForwarder) {
		f.metrics = metrics
	}
}

// NewHTTPForwarder creates a forwarder with default polling and breaker
// settings.
func NewHTTPForwarder(opts ...ForwarderOption) *HTTPForwarder {
	f := &HTTPForwarder{
		httpClient:         http.DefaultClient,
		pollInterval:       defaultPollInterval,
		maxAttempts:        defaultMaxAttempts,
		breakerMaxFailures: defaultBreakerMaxFailures,
		breakerTimeout:     defaultBreakerTimeout,
		breakers:           make(map[string]*gobreaker.CircuitBreaker[*types.SendResult]),
		logger:             slog.Default(),
		tracer:             otel.Tracer("switchyard/forwarder"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Forward submits the request to the endpoint and returns the agent's
// response text. input-required is a valid outcome: the clarifying
// question comes back as the response. The context cancels the poll
// loop; the remote task is abandoned, not cancelled.
func (f *HTTPForwarder) Forward(ctx context.Context, endpoint, request string) (string, error) {
	ctx, span := f.tracer.Start(ctx, "forwarder.forward",
		trace.WithAttributes(attribute.String(telemetry.AttrAgentEndpoint, endpoint)))
	defer span.End()

	rpc := client.New(endpoint, client.WithHTTPClient(f.httpClient))
	params := types.SendParams{
		ID: uuid.NewString(),
		Message: &types.Message{
			Role:      "user",
			MessageID: uuid.NewString(),
			ContextID: uuid.NewString(),
			Parts:     []types.Part{types.TextPart(request)},
		},
		Configuration: &types.SendConfiguration{AcceptedOutputModes: []string{"text"}},
	}

	result, err := f.submit(ctx, endpoint, rpc, params)
	if err != nil {
		f.metrics.RecordForwardError(ctx, endpoint, err)
		return "", err
	}

	// The remote may answer with a terminal message instead of a task.
	if result.Kind == types.ResultMessage {
		if text, ok := result.Message.Text(); ok {
			return text, nil
		}
		return noMessageText, nil
	}

	span.SetAttributes(attribute.String(telemetry.AttrTaskID, result.Task.ID))
	text, err := f.poll(ctx, rpc, result.Task.ID)
	if err != nil {
		f.metrics.RecordForwardError(ctx, endpoint, err)
		return "", err
	}
	return text, nil
}

func (f *HTTPForwarder) submit(ctx context.Context, endpoint string, rpc *client.Client, params types.SendParams) (*types.SendResult, error) {
	breaker := f.breakerFor(endpoint)
	result, err := breaker.Execute(func() (*types.SendResult, error) {
		return rpc.SendMessage(ctx, params)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errors.New(errors.CodeProtocol, "agent endpoint circuit open", err).
				WithContext("endpoint", endpoint).
				WithRecoverable(true)
		}
		return nil, err
	}
	return result, nil
}

func (f *HTTPForwarder) breakerFor(endpoint string) *gobreaker.CircuitBreaker[*types.SendResult] {
	f.breakersMu.Lock()
	defer f.breakersMu.Unlock()
	if breaker, ok := f.breakers[endpoint]; ok {
		return breaker
	}
	maxFailures := f.breakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker[*types.SendResult](gobreaker.Settings{
		Name:        "agent:" + endpoint,
		MaxRequests: 1, // one probe in half-open state
		Timeout:     f.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("forwarder.breaker.state_change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	f.breakers[endpoint] = breaker
	return breaker
}

// poll drives the task state machine: wait one interval, fetch the
// task, decide. Waits are cancellable so an upstream deadline wins over
// the attempt budget.
func (f *HTTPForwarder) poll(ctx context.Context, rpc *client.Client, taskID string) (string, error) {
	timer := time.NewTimer(f.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", errors.New(errors.CodeTimeout, "forwarding cancelled", ctx.Err()).
				WithContext("task_id", taskID)
		case <-timer.C:
		}

		task, err := rpc.GetTask(ctx, taskID)
		if err != nil {
			return "", err
		}

		switch task.State() {
		case types.TaskStateCompleted:
			f.metrics.RecordPollAttempts(ctx, attempt)
			if text, ok := task.ArtifactText(); ok {
				return text, nil
			}
			return noArtifactText, nil

		case types.TaskStateFailed:
			f.metrics.RecordPollAttempts(ctx, attempt)
			return "", errors.Newf(errors.CodeProtocol, "agent task failed").
				WithContext("task_id", taskID)

		case types.TaskStateInputRequired:
			// The agent is asking a clarifying question; that is a
			// valid response, not an error.
			f.metrics.RecordPollAttempts(ctx, attempt)
			if text, ok := task.Status.Message.Text(); ok {
				return text, nil
			}
			return noInputRequiredText, nil
		}

		timer.Reset(f.pollInterval)
	}

	f.metrics.RecordPollAttempts(ctx, f.maxAttempts)
	return "", errors.Newf(errors.CodeTimeout, "task did not complete within %d attempts", f.maxAttempts).
		WithContext("task_id", taskID).
		WithRecoverable(true)
}
