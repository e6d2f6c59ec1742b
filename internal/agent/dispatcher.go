package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/webpilot-ai/webpilot/internal/dom"
)

// Dispatcher executes proposed actions against the browser driver, one at a
// time in proposal order. It owns parameter validation, identifier
// resolution and failure classification; the driver only ever sees locators
// it handed out itself.
type Dispatcher struct {
	driver        Driver
	limiter       *rate.Limiter
	actionTimeout time.Duration
	logger        *zap.Logger
}

// NewDispatcher wires a dispatcher. The limiter is shared with the roles so
// actions and LLM calls pace against the same budget.
func NewDispatcher(driver Driver, limiter *rate.Limiter, actionTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		driver:        driver,
		limiter:       limiter,
		actionTimeout: actionTimeout,
		logger:        logger.Named("dispatcher"),
	}
}

// ExecuteAll runs the batch sequentially and stops at the first blocking
// failure, so the returned slice may be shorter than the batch. Results are
// index-aligned with the actions that did run.
func (d *Dispatcher) ExecuteAll(ctx context.Context, task *Task, refs *dom.RefMap, actions []Action) []ExecutionResult {
	results := make([]ExecutionResult, 0, len(actions))
	onlyAction := len(actions) == 1

	for i, action := range actions {
		if err := d.limiter.Wait(ctx); err != nil {
			results = append(results, ExecutionResult{
				Code:  ErrCodeDriverFailure,
				Error: fmt.Sprintf("interrupted before execution: %v", err),
			})
			return results
		}

		result := d.execute(ctx, task, refs, action)
		results = append(results, result)

		if !result.Success {
			d.logger.Warn("Action failed.",
				zap.Int("index", i),
				zap.String("tool", action.Tool()),
				zap.String("code", string(result.Code)),
				zap.String("error", result.Error))
			if result.Code.Blocking(onlyAction) {
				break
			}
			continue
		}
		d.logger.Debug("Action executed.", zap.Int("index", i), zap.String("tool", action.Tool()))
	}
	return results
}

// execute validates and runs one action. A panic in the driver is contained
// here and surfaces as a driver failure rather than tearing down the engine.
func (d *Dispatcher) execute(ctx context.Context, task *Task, refs *dom.RefMap, action Action) (result ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(ErrCodeDriverFailure, fmt.Sprintf("driver panicked: %v", r))
		}
	}()

	if err := action.validate(); err != nil {
		return failure(ErrCodeInvalidParameters, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, d.actionTimeout)
	defer cancel()

	switch act := action.(type) {
	case NavigateAction:
		if err := d.driver.Navigate(ctx, act.URL); err != nil {
			return failure(ErrCodeDriverFailure, fmt.Sprintf("navigation to %s failed: %v", act.URL, err))
		}
		return success()

	case ClickAction:
		loc, res, ok := d.resolve(refs, act.ElementID)
		if !ok {
			return res
		}
		// One silent retry: clicks race with late layout shifts and are
		// idempotent enough that a second attempt is safe.
		if err := d.driver.Click(ctx, loc); err != nil {
			if err = d.driver.Click(ctx, loc); err != nil {
				return failure(ErrCodeDriverFailure, fmt.Sprintf("click on %s failed: %v", act.ElementID, err))
			}
		}
		return success()

	case FillAction:
		loc, res, ok := d.resolve(refs, act.ElementID)
		if !ok {
			return res
		}
		if err := d.driver.Fill(ctx, loc, act.Value); err != nil {
			return failure(ErrCodeDriverFailure, fmt.Sprintf("fill on %s failed: %v", act.ElementID, err))
		}
		return success()

	case TypeAction:
		loc, res, ok := d.resolve(refs, act.ElementID)
		if !ok {
			return res
		}
		if err := d.driver.Type(ctx, loc, act.Text); err != nil {
			return failure(ErrCodeDriverFailure, fmt.Sprintf("type on %s failed: %v", act.ElementID, err))
		}
		return success()

	case UploadAction:
		// Resource names resolve before any driver traffic so a bad name
		// never half-performs the upload.
		paths := make([]string, 0, len(act.ResourceNames))
		for _, name := range act.ResourceNames {
			path, ok := task.Resources[name]
			if !ok {
				return failure(ErrCodeResourceNotFound, fmt.Sprintf("task has no resource named %q", name))
			}
			paths = append(paths, path)
		}
		loc, res, ok := d.resolve(refs, act.ElementID)
		if !ok {
			return res
		}
		if err := d.driver.UploadFiles(ctx, loc, paths); err != nil {
			return failure(ErrCodeDriverFailure, fmt.Sprintf("upload to %s failed: %v", act.ElementID, err))
		}
		return success()

	case WaitAction:
		if err := d.driver.Wait(ctx, time.Duration(act.Seconds*float64(time.Second))); err != nil {
			return failure(ErrCodeDriverFailure, fmt.Sprintf("wait failed: %v", err))
		}
		return success()

	case invalidAction:
		// validate already rejected it above; unreachable.
		return failure(ErrCodeInvalidParameters, act.Err.Error())

	default:
		return failure(ErrCodeInvalidParameters, fmt.Sprintf("unhandled tool %q", action.Tool()))
	}
}

// resolve maps an identifier to a live locator, classifying the two distinct
// failure modes the proposing role must tell apart.
func (d *Dispatcher) resolve(refs *dom.RefMap, id string) (dom.Locator, ExecutionResult, bool) {
	loc, err := refs.Resolve(id)
	if err == nil {
		return loc, ExecutionResult{}, true
	}
	switch {
	case errors.Is(err, dom.ErrReferenceNotFound):
		return dom.Locator{}, failure(ErrCodeReferenceNotFound, err.Error()), false
	case errors.Is(err, dom.ErrLocatorComputationFailed):
		return dom.Locator{}, failure(ErrCodeLocatorFailed, err.Error()), false
	default:
		return dom.Locator{}, failure(ErrCodeDriverFailure, err.Error()), false
	}
}

func success() ExecutionResult {
	return ExecutionResult{Success: true}
}

func failure(code ErrorCode, msg string) ExecutionResult {
	return ExecutionResult{Code: code, Error: msg}
}
