package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/webpilot-ai/webpilot/api/schemas"
	"github.com/webpilot-ai/webpilot/internal/config"
)

// uuidNewString is a seam for deterministic IDs in tests.
var uuidNewString = uuid.NewString

// Engine drives one task at a time through the role loop: propose, execute,
// verify, until a terminal state. It is synchronous and not safe for
// concurrent use; run one engine per task (see Pool).
type Engine struct {
	cfg        config.EngineConfig
	logger     *zap.Logger
	driver     Driver
	builder    *ContextBuilder
	dispatcher *Dispatcher
	proposer   *proposerRole
	verifier   *verifierRole

	task  *Task
	state EngineState

	// noProgress counts consecutive proposing turns that produced nothing
	// executable. Reset whenever actions run, completion is claimed, or
	// control is forced to the verifier.
	noProgress int

	// feedback is guidance for exactly the next proposing turn: a verifier
	// rejection message or an engine note about stale references.
	feedback string

	finalMessage   string
	classification ErrorCode
}

// NewEngine assembles an engine from its collaborators. The prompt
// repository is captured by value here and used unchanged for the lifetime
// of every task this engine runs.
func NewEngine(cfg *config.Config, llm schemas.LLMClient, driver Driver, prompts PromptRepository, logger *zap.Logger) *Engine {
	logger = logger.Named("engine")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Engine.ActionDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Engine.ActionDelay), 1)
	}

	builder := NewContextBuilder(prompts, cfg.Engine.HistoryWindow, cfg.Engine.Screenshots, logger)
	client := newRoleClient(llm, limiter, cfg.LLM, logger.Named("llm"))

	return &Engine{
		cfg:        cfg.Engine,
		logger:     logger,
		driver:     driver,
		builder:    builder,
		dispatcher: NewDispatcher(driver, limiter, cfg.Engine.ActionTimeout, logger),
		proposer:   newProposerRole(client, builder),
		verifier:   newVerifierRole(client, builder),
	}
}

// StartTask installs a new task and resets all per-task state. Any previous
// task is replaced wholesale; its steps survive only if the request carries
// them as PriorSteps.
func (e *Engine) StartTask(req TaskRequest) error {
	if req.Description == "" {
		return fmt.Errorf("task description must not be empty")
	}

	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = e.cfg.MaxSteps
	}

	e.task = &Task{
		ID:          uuidNewString(),
		Description: req.Description,
		Resources:   req.Resources,
		MaxSteps:    maxSteps,
		PriorSteps:  req.PriorSteps,
	}
	e.state = StateProposing
	e.noProgress = 0
	e.feedback = ""
	e.finalMessage = ""
	e.classification = ""

	e.logger.Info("Task started.",
		zap.String("task_id", e.task.ID),
		zap.Int("max_steps", maxSteps),
		zap.Int("prior_steps", len(req.PriorSteps)))
	return nil
}

// State returns the engine's current position in the step loop.
func (e *Engine) State() EngineState { return e.state }

// Task returns the task being driven. Callers must treat it as read-only.
func (e *Engine) Task() *Task { return e.task }

// AdvanceStep performs exactly one engine turn and returns the resulting
// state. Once a terminal state is reached it is a no-op. Role-level
// failures (LLM outage, snapshot failure) do not fail the task; they count
// as turns without progress and the no-progress guard bounds how long the
// engine tolerates them.
func (e *Engine) AdvanceStep(ctx context.Context) (EngineState, error) {
	if e.task == nil {
		return e.state, fmt.Errorf("no task started")
	}
	if e.state.Terminal() {
		return e.state, nil
	}
	if err := ctx.Err(); err != nil {
		e.fail(ErrCodeAborted, fmt.Sprintf("task aborted: %v", err))
		return e.state, nil
	}

	switch e.state {
	case StateProposing:
		e.stepPropose(ctx)
	case StateVerifying:
		e.stepVerify(ctx)
	default:
		return e.state, fmt.Errorf("cannot advance from state %s", e.state)
	}
	return e.state, nil
}

// RunTask drives a request from start to terminal state and reports the
// outcome. In-task failures (budget, verification, abort) are encoded in
// the outcome; the error return is reserved for setup problems.
func (e *Engine) RunTask(ctx context.Context, req TaskRequest) (TaskOutcome, error) {
	if err := e.StartTask(req); err != nil {
		return TaskOutcome{}, err
	}

	for !e.state.Terminal() {
		if _, err := e.AdvanceStep(ctx); err != nil {
			return TaskOutcome{}, err
		}
	}
	return e.outcome(), nil
}

// stepPropose runs one proposing turn: budget gate, fresh page context,
// proposal, then execution of whatever was proposed.
func (e *Engine) stepPropose(ctx context.Context) {
	if len(e.task.Steps) >= e.task.MaxSteps {
		e.fail(ErrCodeBudgetExhausted,
			fmt.Sprintf("step budget of %d exhausted without completion", e.task.MaxSteps))
		return
	}

	page, err := e.builder.BuildPageContext(ctx, e.driver)
	if err != nil {
		e.logger.Warn("Page context build failed, counting as a turn without progress.", zap.Error(err))
		e.recordFailedTurn(fmt.Sprintf("could not inspect the page: %v", err))
		return
	}

	feedback := e.feedback
	e.feedback = ""

	proposal, err := e.proposer.propose(ctx, e.task, page, feedback)
	if err != nil {
		e.logger.Warn("Proposer produced no usable proposal.", zap.Error(err))
		e.recordFailedTurn(fmt.Sprintf("no usable proposal this turn: %v", err))
		return
	}

	if len(proposal.Actions) == 0 {
		e.appendStep(Step{Role: RoleProposer, Proposal: proposal})
		if proposal.Done {
			e.logger.Info("Proposer claims completion, handing to verifier.",
				zap.String("message", proposal.Message))
			e.noProgress = 0
			e.state = StateVerifying
			return
		}
		e.recordNoProgress()
		return
	}

	e.noProgress = 0
	e.state = StateExecuting

	results := e.dispatcher.ExecuteAll(ctx, e.task, page.Refs, proposal.Actions)
	e.appendStep(Step{Role: RoleProposer, Proposal: proposal, Results: results})

	if note := staleViewNote(results); note != "" {
		e.feedback = note
	}

	if proposal.Done {
		e.state = StateVerifying
		return
	}
	e.state = StateProposing
}

// stepVerify runs one verifying turn against a fresh page context.
func (e *Engine) stepVerify(ctx context.Context) {
	page, err := e.builder.BuildPageContext(ctx, e.driver)
	if err != nil {
		e.logger.Warn("Page context build failed during verification.", zap.Error(err))
		e.feedback = "Verification could not inspect the page; continue working toward the goal."
		e.state = StateProposing
		return
	}

	verdict, err := e.verifier.verify(ctx, e.task, page)
	if err != nil {
		e.logger.Warn("Verifier produced no usable verdict, resuming proposing.", zap.Error(err))
		e.feedback = "Verification was inconclusive; continue working toward the goal."
		e.state = StateProposing
		return
	}

	e.appendStep(Step{Role: RoleVerifier, Verdict: verdict})

	switch verdict.Status {
	case VerdictComplete:
		e.finalMessage = verdict.Message
		e.state = StateDone
		e.logger.Info("Task verified complete.", zap.String("task_id", e.task.ID))
	case VerdictIncomplete:
		// The rejection message is the whole point of the verifier: it
		// becomes direction for the next proposing turn.
		e.feedback = verdict.Message
		e.state = StateProposing
		e.logger.Info("Verifier rejected completion.", zap.String("message", verdict.Message))
	case VerdictFailed:
		e.fail(ErrCodeVerificationFailed, verdict.Message)
	}
}

// recordFailedTurn books a proposing turn that produced nothing. The turn
// still consumes budget: with a permanently broken page or model, the step
// ceiling is what guarantees the loop terminates.
func (e *Engine) recordFailedTurn(note string) {
	e.appendStep(Step{Role: RoleProposer, Proposal: &Proposal{Message: note}})
	e.recordNoProgress()
}

// recordNoProgress bumps the stall counter and forces verification once the
// threshold is hit, so a stuck proposer cannot spin the budget away.
func (e *Engine) recordNoProgress() {
	e.noProgress++
	if e.noProgress >= e.cfg.NoProgressThreshold {
		e.logger.Info("No-progress threshold reached, forcing verification.",
			zap.Int("threshold", e.cfg.NoProgressThreshold))
		e.noProgress = 0
		e.state = StateVerifying
	}
}

func (e *Engine) appendStep(step Step) {
	step.ID = uuidNewString()
	step.Time = time.Now().UTC()
	e.task.AddStep(step)
}

func (e *Engine) fail(code ErrorCode, msg string) {
	e.classification = code
	e.finalMessage = msg
	e.state = StateFailed
	e.logger.Warn("Task failed.",
		zap.String("task_id", e.task.ID),
		zap.String("classification", string(code)),
		zap.String("message", msg))
}

func (e *Engine) outcome() TaskOutcome {
	out := TaskOutcome{
		Classification: e.classification,
		FinalMessage:   e.finalMessage,
		Steps:          e.task.Steps,
	}
	switch {
	case e.state == StateDone:
		out.Status = TaskCompleted
	case e.classification == ErrCodeAborted:
		out.Status = TaskAborted
	default:
		out.Status = TaskFailed
	}
	return out
}

// staleViewNote summarizes reference failures for the next proposing turn.
// The rebuilt page context already fixes the staleness; the note tells the
// model why its last identifiers died.
func staleViewNote(results []ExecutionResult) string {
	for _, res := range results {
		if res.Code == ErrCodeReferenceNotFound || res.Code == ErrCodeLocatorFailed {
			return "One or more element identifiers from your previous turn were stale. " +
				"The page outline below is freshly rebuilt; use only its identifiers."
		}
	}
	return ""
}
