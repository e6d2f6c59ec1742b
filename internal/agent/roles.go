package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/webpilot-ai/webpilot/api/schemas"
	"github.com/webpilot-ai/webpilot/internal/config"
	"github.com/webpilot-ai/webpilot/internal/llmutil"
)

// proposalWire is the JSON shape the proposing role must emit.
type proposalWire struct {
	Message string       `json:"message"`
	Done    bool         `json:"done"`
	Actions []wireAction `json:"actions"`
}

// verdictWire is the JSON shape the verifying role must emit.
type verdictWire struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// roleClient wraps the LLM client with the retry-on-malformed-output loop
// both roles share. An invalid response is fed back to the model verbatim
// with the parse error so it can self-correct within the same turn.
type roleClient struct {
	llm     schemas.LLMClient
	limiter *rate.Limiter
	cfg     config.LLMConfig
	logger  *zap.Logger
}

func newRoleClient(llm schemas.LLMClient, limiter *rate.Limiter, cfg config.LLMConfig, logger *zap.Logger) *roleClient {
	return &roleClient{llm: llm, limiter: limiter, cfg: cfg, logger: logger}
}

func (c *roleClient) options() schemas.GenerationOptions {
	return schemas.GenerationOptions{
		Temperature:     c.cfg.Temperature,
		ForceJSONFormat: true,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}
}

// generate performs one LLM call under the configured per-call timeout.
func (c *roleClient) generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.llm.Generate(ctx, req)
}

// generateValidated calls the model up to MaxRetries+1 times until parse
// succeeds. The parse callback returns a descriptive error on schema
// violations; that error becomes corrective feedback for the next attempt.
func generateValidated[T any](ctx context.Context, c *roleClient, req schemas.GenerationRequest, parse func(string) (*T, error)) (*T, error) {
	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter interrupted: %w", err)
		}

		response, err := c.generate(ctx, req)
		if err != nil {
			lastErr = fmt.Errorf("llm call failed: %w", err)
			c.logger.Warn("LLM call failed.", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		parsed, err := parse(response)
		if err == nil {
			return parsed, nil
		}

		lastErr = err
		c.logger.Warn("LLM response failed validation, retrying with feedback.",
			zap.Int("attempt", attempt), zap.Error(err))

		req = withCorrection(req, response, err)
	}
	return nil, fmt.Errorf("no valid response after %d attempts: %w", attempts, lastErr)
}

// withCorrection appends the rejected response and its parse error so the
// model sees exactly what it emitted and why it was rejected.
func withCorrection(req schemas.GenerationRequest, response string, parseErr error) schemas.GenerationRequest {
	out := req
	out.Blocks = append(out.Blocks[:len(out.Blocks):len(out.Blocks)], schemas.ContextBlock{
		Label: "CORRECTION",
		Text: fmt.Sprintf(
			"Your previous response was invalid and has been discarded.\nResponse:\n%s\n\nError: %v\n\nRespond again with a single valid JSON object.",
			response, parseErr),
	})
	return out
}

// proposerRole asks the model for the next batch of actions.
type proposerRole struct {
	client  *roleClient
	builder *ContextBuilder
}

func newProposerRole(client *roleClient, builder *ContextBuilder) *proposerRole {
	return &proposerRole{client: client, builder: builder}
}

func (r *proposerRole) propose(ctx context.Context, task *Task, page *PageContext, feedback string) (*Proposal, error) {
	req := r.builder.ProposerRequest(task, page, feedback, r.client.options())

	wire, err := generateValidated(ctx, r.client, req, parseProposal)
	if err != nil {
		return nil, err
	}

	actions := make([]Action, 0, len(wire.Actions))
	for _, w := range wire.Actions {
		actions = append(actions, decodeAction(w))
	}
	return &Proposal{Message: wire.Message, Done: wire.Done, Actions: actions}, nil
}

func parseProposal(response string) (*proposalWire, error) {
	wire, err := llmutil.ParseJSONResponse[proposalWire](response)
	if err != nil {
		return nil, err
	}
	if wire.Message == "" && !wire.Done && len(wire.Actions) == 0 {
		return nil, fmt.Errorf("proposal is empty: provide a message, actions, or done")
	}
	for i, action := range wire.Actions {
		if action.Tool == "" {
			return nil, fmt.Errorf("action %d is missing the tool name", i+1)
		}
	}
	return wire, nil
}

// verifierRole asks the model whether the task is actually finished.
type verifierRole struct {
	client  *roleClient
	builder *ContextBuilder
}

func newVerifierRole(client *roleClient, builder *ContextBuilder) *verifierRole {
	return &verifierRole{client: client, builder: builder}
}

func (r *verifierRole) verify(ctx context.Context, task *Task, page *PageContext) (*Verdict, error) {
	req := r.builder.VerifierRequest(task, page, r.client.options())

	wire, err := generateValidated(ctx, r.client, req, parseVerdict)
	if err != nil {
		return nil, err
	}
	return &Verdict{Status: VerdictStatus(wire.Status), Message: wire.Message}, nil
}

func parseVerdict(response string) (*verdictWire, error) {
	wire, err := llmutil.ParseJSONResponse[verdictWire](response)
	if err != nil {
		return nil, err
	}
	switch VerdictStatus(wire.Status) {
	case VerdictComplete, VerdictIncomplete, VerdictFailed:
		return wire, nil
	default:
		return nil, fmt.Errorf("verdict status must be one of complete, incomplete, failed; got %q", wire.Status)
	}
}
