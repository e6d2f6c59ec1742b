// Package agent implements the role engine at the core of webpilot: a small
// state machine that alternates between an action-proposing role and a
// completion-verifying role, executing proposed browser actions through a
// tool dispatcher until the task completes, fails, or runs out of budget.
package agent

import (
	"time"
)

// Role identifies which cooperating role produced a step.
type Role string

const (
	RoleProposer Role = "PROPOSER" // decides the next browser actions
	RoleVerifier Role = "VERIFIER" // judges whether the task is finished
)

// EngineState is the role engine's position in its step loop.
type EngineState string

const (
	StateProposing EngineState = "PROPOSING" // building context and asking for actions
	StateExecuting EngineState = "EXECUTING" // dispatching proposed actions
	StateVerifying EngineState = "VERIFYING" // judging completion
	StateDone      EngineState = "DONE"      // terminal: task complete
	StateFailed    EngineState = "FAILED"    // terminal: task failed or aborted
)

// Terminal reports whether the state permits no further steps.
func (s EngineState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Proposal is one role's LLM-derived decision for a turn. Immutable once
// recorded in a Step.
type Proposal struct {
	// Message is the role's natural-language status explanation.
	Message string
	// Done signals the role believes the task is complete. A proposal may
	// carry both actions and Done: "do these things, then I am finished".
	Done bool
	// Actions are the browser operations to execute, in order.
	Actions []Action
}

// VerdictStatus is the verifier's three-way judgment.
type VerdictStatus string

const (
	VerdictComplete   VerdictStatus = "complete"   // task truly done
	VerdictIncomplete VerdictStatus = "incomplete" // needs another actionable pass
	VerdictFailed     VerdictStatus = "failed"     // unrecoverable
)

// Verdict is the verifying role's completion judgment. Its Message doubles
// as feedback for the next proposing turn when the status is incomplete.
type Verdict struct {
	Status  VerdictStatus
	Message string
}

// ExecutionResult is the outcome of attempting one action. Created
// synchronously by the dispatcher and never mutated afterwards.
type ExecutionResult struct {
	Success bool
	Code    ErrorCode
	Error   string
	// Payload carries optional tool output, e.g. extracted text.
	Payload any
}

// Step is one full engine turn: the role that ran, what it decided, and the
// per-action outcomes (parallel to Proposal.Actions, shorter only when
// execution stopped early on a blocking failure). Immutable once appended.
type Step struct {
	ID   string
	Role Role
	// Proposal is set for proposer turns.
	Proposal *Proposal
	// Verdict is set for verifier turns.
	Verdict *Verdict
	Results []ExecutionResult
	Time    time.Time
}

// Task is the top-level unit of work. A new task replaces the previous one
// wholesale; prior steps are only carried forward read-only when the caller
// requests conversational continuation.
type Task struct {
	ID          string
	Description string
	// Resources maps user-facing names to local file paths available for
	// upload. The LLM only ever sees the names.
	Resources map[string]string
	MaxSteps  int
	// PriorSteps from a previous task, included as context only.
	PriorSteps []Step
	// Steps is the authoritative, append-only history of this task.
	Steps []Step
}

// AddStep appends a completed step to the task history.
func (t *Task) AddStep(step Step) {
	t.Steps = append(t.Steps, step)
}

// TaskRequest is the caller-facing description of a task to run.
type TaskRequest struct {
	Description string
	Resources   map[string]string
	// MaxSteps overrides the configured default step budget when positive.
	MaxSteps int
	// PriorSteps opts into conversational continuation.
	PriorSteps []Step
}

// TaskStatus classifies how a task ended.
type TaskStatus string

const (
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
	TaskAborted   TaskStatus = "ABORTED"
)

// TaskOutcome is what RunTask always returns for in-task failures and
// successes alike; only setup-time errors surface as Go errors.
type TaskOutcome struct {
	Status         TaskStatus
	Classification ErrorCode
	FinalMessage   string
	Steps          []Step
}
