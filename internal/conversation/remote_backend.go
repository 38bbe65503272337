package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totalhomes/lead-qualifier/internal/observability/metrics"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

const (
	defaultRemoteTimeout = 30 * time.Second
	defaultMaxTokens     = 1024
	defaultTemperature   = 0.7
)

var remoteTracer = otel.Tracer("leadqualifier.internal.conversation.remote")

// RemoteOptions tunes a RemoteBackend. Zero values fall back to defaults.
type RemoteOptions struct {
	Provider    string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int32
	Logger      *slog.Logger
	Metrics     *metrics.QualifierMetrics
}

// RemoteBackend delegates the turn to a completion service and parses its
// structured reply. The JSON repair request is its only retry.
type RemoteBackend struct {
	client      LLMClient
	provider    string
	model       string
	timeout     time.Duration
	temperature float32
	maxTokens   int32
	logger      *slog.Logger
	metrics     *metrics.QualifierMetrics
}

func NewRemoteBackend(client LLMClient, opts RemoteOptions) *RemoteBackend {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	b := &RemoteBackend{
		client:      client,
		provider:    opts.Provider,
		model:       opts.Model,
		timeout:     opts.Timeout,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if b.timeout <= 0 {
		b.timeout = defaultRemoteTimeout
	}
	if b.temperature == 0 {
		b.temperature = defaultTemperature
	}
	if b.maxTokens <= 0 {
		b.maxTokens = defaultMaxTokens
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.provider == "" {
		b.provider = "openai"
	}
	return b
}

func (b *RemoteBackend) Name() string { return "remote:" + b.provider }

func (b *RemoteBackend) RunTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	ctx, span := remoteTracer.Start(ctx, "conversation.remote_turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("leadqualifier.provider", b.provider),
		attribute.String("leadqualifier.language", string(req.Language)),
		attribute.String("leadqualifier.step", string(req.State.Step)),
	)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	history := make([]ChatMessage, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, ChatMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := b.client.Complete(ctx, LLMRequest{
		Model:       b.model,
		System:      []string{BuildSystemPrompt(req.Config, req.Language)},
		Messages:    history,
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
	})
	if err != nil {
		err = b.classify(ctx, err)
		span.RecordError(err)
		return TurnResult{}, err
	}

	reply, err := ParseStructuredReply(resp.Text)
	if err != nil {
		b.logger.Warn("remote reply is not valid JSON, requesting repair", "provider", b.provider, "error", err)
		span.AddEvent("json_repair")
		reply, err = b.repair(ctx, resp.Text)
		if err != nil {
			span.RecordError(err)
			return TurnResult{}, err
		}
	}
	return b.apply(req, reply), nil
}

// repair asks the model once to fix its own output.
func (b *RemoteBackend) repair(ctx context.Context, broken string) (StructuredReply, error) {
	resp, err := b.client.Complete(ctx, LLMRequest{
		Model:       b.model,
		System:      []string{repairPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: broken}},
		MaxTokens:   b.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		b.metrics.ObserveRepair(false)
		return StructuredReply{}, b.classify(ctx, err)
	}
	reply, err := ParseStructuredReply(resp.Text)
	if err != nil {
		b.metrics.ObserveRepair(false)
		return StructuredReply{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	b.metrics.ObserveRepair(true)
	return reply, nil
}

// apply merges the reply into the request's state copy, then re-derives the
// overrides locally so a model cannot hide a disqualification or an opt-out.
func (b *RemoteBackend) apply(req TurnRequest, reply StructuredReply) TurnResult {
	state := req.State
	asked := qualify.NextStep(&state)

	u, sig := reply.Update(req.Config)
	qualify.Merge(&state, u)
	switch {
	case sig.optOut:
		state.WantsCallback = qualify.Known(false)
		state.DoNotContact = true
	case sig.declinedCallback && asked == qualify.StepNeedCallbackConsent && state.WantsCallback.IsUnknown():
		qualify.RefuseCallback(&state)
	}

	local := qualify.Score(&state, req.Config)
	overridden := state.DoNotContact || local.Disqualified != qualify.DisqualifyNone
	if overridden {
		state.ApplyScore(local)
	} else {
		score := min(max(reply.Score, 0), 100)
		if tier := qualify.TierFor(score); tier != qualify.ClampTier(reply.Tier) {
			b.logger.Debug("remote tier disagrees with score, using score bucket", "score", score, "tier", reply.Tier)
		}
		reasons := reply.Reasons
		if len(reasons) == 0 {
			reasons = local.Reasons
		}
		state.ApplyScore(qualify.Result{Score: score, Tier: qualify.TierFor(score), Reasons: reasons})
	}
	state.Step = qualify.NextStep(&state)

	display := reply.DisplayText
	next := reply.NextQuestion
	if state.Terminal() {
		if overridden && qualify.ClampTier(reply.Tier) != 5 {
			display = qualify.Closing(&state, req.Language, req.Config)
		}
	} else if next == "" {
		next = qualify.Question(&state, req.Language)
	}
	return resultFromState(state, display, next)
}

// classify maps provider failures onto the turn error taxonomy.
func (b *RemoteBackend) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %w", ErrBackendTimeout, b.timeout, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %w: %w", ErrBackendTimeout, b.timeout, context.DeadlineExceeded, err)
	case isRateLimited(err):
		return fmt.Errorf("%w: %w", ErrBackendRateLimited, err)
	default:
		return fmt.Errorf("conversation: %s completion failed: %w", b.provider, err)
	}
}
