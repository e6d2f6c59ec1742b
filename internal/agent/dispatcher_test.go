package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const uploadPage = `<html><body><form><input type="file" name="cv"><button type="submit">Send</button></form></body></html>`

func testDispatcher(driver Driver) *Dispatcher {
	return NewDispatcher(driver, rate.NewLimiter(rate.Inf, 1), time.Second, zap.NewNop())
}

func TestExecuteUploadResolvesResourceNames(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)
	task := &Task{Resources: map[string]string{"cv": "/data/cv.pdf"}}

	driver.On("UploadFiles", mock.Anything, mock.Anything, []string{"/data/cv.pdf"}).Return(nil)

	results := testDispatcher(driver).ExecuteAll(context.Background(), task, refs, []Action{
		UploadAction{ElementID: "input-0", ResourceNames: []string{"cv"}, Rationale: "attach cv"},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	driver.AssertExpectations(t)
}

func TestExecuteUploadUnknownResourceSkipsDriver(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)
	task := &Task{Resources: map[string]string{"cv": "/data/cv.pdf"}}

	results := testDispatcher(driver).ExecuteAll(context.Background(), task, refs, []Action{
		UploadAction{ElementID: "input-0", ResourceNames: []string{"cover-letter"}, Rationale: "attach"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, ErrCodeResourceNotFound, results[0].Code)
	assert.Contains(t, results[0].Error, "cover-letter")
	driver.AssertNotCalled(t, "UploadFiles", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteInvalidParametersNonBlockingInBatch(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)
	driver.On("Wait", mock.Anything, time.Second).Return(nil)

	results := testDispatcher(driver).ExecuteAll(context.Background(), &Task{}, refs, []Action{
		WaitAction{Seconds: 0, Rationale: "bad"},
		WaitAction{Seconds: 1, Rationale: "good"},
	})

	// The invalid action fails in place but the batch continues.
	require.Len(t, results, 2)
	assert.Equal(t, ErrCodeInvalidParameters, results[0].Code)
	assert.True(t, results[1].Success)
}

func TestExecuteInvalidParametersBlockingWhenOnlyAction(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)

	results := testDispatcher(driver).ExecuteAll(context.Background(), &Task{}, refs, []Action{
		WaitAction{Seconds: -1, Rationale: "bad"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, ErrCodeInvalidParameters, results[0].Code)
}

func TestExecuteReferenceNotFoundStopsBatch(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)

	results := testDispatcher(driver).ExecuteAll(context.Background(), &Task{}, refs, []Action{
		ClickAction{ElementID: "button-42", Rationale: "stale"},
		WaitAction{Seconds: 1, Rationale: "never runs"},
	})

	// A stale identifier invalidates the rest of the batch.
	require.Len(t, results, 1)
	assert.Equal(t, ErrCodeReferenceNotFound, results[0].Code)
	driver.AssertNotCalled(t, "Wait", mock.Anything, mock.Anything)
}

func TestExecuteClickRetriesOnce(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)

	driver.On("Click", mock.Anything, mock.Anything).Return(errors.New("node detached")).Once()
	driver.On("Click", mock.Anything, mock.Anything).Return(nil).Once()

	results := testDispatcher(driver).ExecuteAll(context.Background(), &Task{}, refs, []Action{
		ClickAction{ElementID: "button-0", Rationale: "press send"},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	driver.AssertNumberOfCalls(t, "Click", 2)
}

func TestExecuteClickFailsAfterRetry(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)

	driver.On("Click", mock.Anything, mock.Anything).Return(errors.New("not interactable"))

	results := testDispatcher(driver).ExecuteAll(context.Background(), &Task{}, refs, []Action{
		ClickAction{ElementID: "button-0", Rationale: "press send"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, ErrCodeDriverFailure, results[0].Code)
	driver.AssertNumberOfCalls(t, "Click", 2)
}

func TestExecuteUnknownToolNeverReachesDriver(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)

	action := decodeAction(wireAction{Tool: "teleport", Reason: "nope"})
	results := testDispatcher(driver).ExecuteAll(context.Background(), &Task{}, refs, []Action{action})

	require.Len(t, results, 1)
	assert.Equal(t, ErrCodeInvalidParameters, results[0].Code)
	assert.Contains(t, results[0].Error, "teleport")
}

func TestExecuteContainsDriverPanic(t *testing.T) {
	driver := new(MockDriver)
	_, refs := buildRefs(t, uploadPage)

	driver.On("Navigate", mock.Anything, "https://example.com").
		Run(func(mock.Arguments) { panic("cdp session lost") }).Return(nil)

	results := testDispatcher(driver).ExecuteAll(context.Background(), &Task{}, refs, []Action{
		NavigateAction{URL: "https://example.com", Rationale: "go"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, ErrCodeDriverFailure, results[0].Code)
	assert.Contains(t, results[0].Error, "panicked")
}

func TestResolveDistinguishesFailureModes(t *testing.T) {
	driver := new(MockDriver)
	snap, refs := buildRefs(t, uploadPage)
	d := testDispatcher(driver)

	loc, _, ok := d.resolve(refs, "input-0")
	require.True(t, ok)
	assert.NotEmpty(t, loc.XPath)

	_, res, ok := d.resolve(refs, "input-99")
	require.False(t, ok)
	assert.Equal(t, ErrCodeReferenceNotFound, res.Code)

	// Detach the button's origin to force a locator computation failure.
	button, found := refs.Node("button-0")
	require.True(t, found)
	button.Origin.Parent.Parent = nil
	require.NotSame(t, snap.Root, button.Origin.Root())

	_, res, ok = d.resolve(refs, "button-0")
	require.False(t, ok)
	assert.Equal(t, ErrCodeLocatorFailed, res.Code)
}
