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

	"github.com/webpilot-ai/webpilot/api/schemas"
	"github.com/webpilot-ai/webpilot/internal/config"
)

func testRoleClient(llm schemas.LLMClient, maxRetries int) *roleClient {
	cfg := config.LLMConfig{
		Temperature: 0.2,
		Timeout:     time.Second,
		MaxRetries:  maxRetries,
	}
	return newRoleClient(llm, rate.NewLimiter(rate.Inf, 1), cfg, zap.NewNop())
}

func testPage() *PageContext {
	return &PageContext{Outline: "Page:\n  URL: https://example.com\n"}
}

func TestProposeParsesMarkdownFencedResponse(t *testing.T) {
	llm := new(MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything).
		Return("Here you go:\n```json\n{\"message\":\"ok\",\"done\":false,\"actions\":[{\"tool\":\"wait\",\"params\":{\"seconds\":1},\"reason\":\"settle\"}]}\n```", nil).Once()

	role := newProposerRole(testRoleClient(llm, 0), testBuilder(0, false))
	proposal, err := role.propose(context.Background(), &Task{Description: "x"}, testPage(), "")
	require.NoError(t, err)

	assert.Equal(t, "ok", proposal.Message)
	require.Len(t, proposal.Actions, 1)
	assert.Equal(t, WaitAction{Seconds: 1, Rationale: "settle"}, proposal.Actions[0])
}

func TestProposeRetriesWithCorrectionFeedback(t *testing.T) {
	llm := new(MockLLMClient)

	var second schemas.GenerationRequest
	llm.On("Generate", mock.Anything, mock.Anything).
		Return("I think we should click around a bit.", nil).Once()
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { second = args.Get(1).(schemas.GenerationRequest) }).
		Return(`{"message":"ok","done":true,"actions":[]}`, nil).Once()

	role := newProposerRole(testRoleClient(llm, 1), testBuilder(0, false))
	proposal, err := role.propose(context.Background(), &Task{Description: "x"}, testPage(), "")
	require.NoError(t, err)
	assert.True(t, proposal.Done)

	// The retry prompt must carry the rejected response and the parse error.
	correction := findBlock(second, "CORRECTION")
	require.NotNil(t, correction)
	assert.Contains(t, correction.Text, "click around")
	llm.AssertExpectations(t)
}

func TestProposeGivesUpAfterRetryBudget(t *testing.T) {
	llm := new(MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything).Return("not json at all", nil)

	role := newProposerRole(testRoleClient(llm, 2), testBuilder(0, false))
	_, err := role.propose(context.Background(), &Task{Description: "x"}, testPage(), "")

	require.Error(t, err)
	llm.AssertNumberOfCalls(t, "Generate", 3)
}

func TestProposeSurfacesLLMErrors(t *testing.T) {
	llm := new(MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	role := newProposerRole(testRoleClient(llm, 0), testBuilder(0, false))
	_, err := role.propose(context.Background(), &Task{Description: "x"}, testPage(), "")

	assert.ErrorContains(t, err, "quota exceeded")
}

func TestProposeRejectsActionWithoutTool(t *testing.T) {
	_, err := parseProposal(`{"message":"ok","done":false,"actions":[{"params":{"url":"https://example.com"}}]}`)
	assert.ErrorContains(t, err, "missing the tool name")
}

func TestVerifyParsesVerdict(t *testing.T) {
	llm := new(MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything).
		Return(`{"status":"incomplete","message":"the cart is still empty"}`, nil).Once()

	role := newVerifierRole(testRoleClient(llm, 0), testBuilder(0, false))
	verdict, err := role.verify(context.Background(), &Task{Description: "x"}, testPage())
	require.NoError(t, err)

	assert.Equal(t, VerdictIncomplete, verdict.Status)
	assert.Equal(t, "the cart is still empty", verdict.Message)
}

func TestParseVerdictRejectsUnknownStatus(t *testing.T) {
	_, err := parseVerdict(`{"status":"maybe","message":"unsure"}`)
	assert.ErrorContains(t, err, "must be one of")
}

func TestGenerateOptionsForceJSON(t *testing.T) {
	client := testRoleClient(new(MockLLMClient), 0)
	opts := client.options()
	assert.True(t, opts.ForceJSONFormat)
	assert.Equal(t, 0.2, opts.Temperature)
}
