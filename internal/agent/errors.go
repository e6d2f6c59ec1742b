package agent

// ErrorCode classifies an action or task failure for both the outer caller
// and the proposing role, which receives codes verbatim in its history
// context and is prompted on how to recover from each.
type ErrorCode string

const (
	// ErrCodeInvalidParameters marks an action whose parameters failed
	// schema validation. Non-blocking unless it was the only proposed
	// action, since later actions in the batch may still be meaningful.
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"

	// ErrCodeReferenceNotFound marks an element identifier absent from the
	// current reference map, i.e. the role proposed against a stale view.
	// Blocking: subsequent actions would target the same stale view.
	ErrCodeReferenceNotFound ErrorCode = "REFERENCE_NOT_FOUND"

	// ErrCodeLocatorFailed marks an identifier that was known but whose
	// origin element could no longer be addressed in the live page. Blocking.
	ErrCodeLocatorFailed ErrorCode = "LOCATOR_COMPUTATION_FAILED"

	// ErrCodeDriverFailure marks a browser-level error: navigation failure,
	// element not interactable, timeout. Blocking.
	ErrCodeDriverFailure ErrorCode = "DRIVER_FAILURE"

	// ErrCodeResourceNotFound marks an upload naming a resource the task
	// does not have. Detected before the driver is touched. Blocking.
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// ErrCodeBudgetExhausted is the engine-level classification for a task
	// that hit its step budget without completing.
	ErrCodeBudgetExhausted ErrorCode = "BUDGET_EXHAUSTED"

	// ErrCodeAborted is the engine-level classification for external
	// cancellation between steps.
	ErrCodeAborted ErrorCode = "ABORTED"

	// ErrCodeVerificationFailed is the engine-level classification for a
	// verifier verdict that the task cannot be completed.
	ErrCodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"
)

// Blocking reports whether a failed result with this code must stop the
// remainder of the action batch. onlyAction is true when the batch held a
// single action, which upgrades parameter validation failures to blocking.
func (c ErrorCode) Blocking(onlyAction bool) bool {
	switch c {
	case ErrCodeInvalidParameters:
		return onlyAction
	case ErrCodeReferenceNotFound, ErrCodeLocatorFailed, ErrCodeDriverFailure, ErrCodeResourceNotFound:
		return true
	default:
		return false
	}
}
