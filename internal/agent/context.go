package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/webpilot-ai/webpilot/api/schemas"
	"github.com/webpilot-ai/webpilot/internal/dom"
)

// Context block labels, in the order roles receive them.
const (
	blockTask     = "TASK"
	blockHistory  = "HISTORY"
	blockFeedback = "FEEDBACK"
	blockPage     = "PAGE"
)

// PageContext is the ground truth for exactly one step: a fresh snapshot,
// its filtered view, the identifier map derived from it, and the serialized
// outline. The reference map here is the only one the dispatcher may resolve
// against during that step.
type PageContext struct {
	Snapshot   *dom.Snapshot
	Filtered   *dom.Node
	Refs       *dom.RefMap
	Outline    string
	Screenshot []byte
}

// ContextBuilder assembles role context from task state and the live page.
type ContextBuilder struct {
	prompts       PromptRepository
	filter        dom.FilterConfig
	historyWindow int
	screenshots   bool
	logger        *zap.Logger
}

// NewContextBuilder wires a builder. historyWindow bounds how many recent
// steps the proposing role sees; zero means all of them. The live page
// outline is never truncated regardless of size.
func NewContextBuilder(prompts PromptRepository, historyWindow int, screenshots bool, logger *zap.Logger) *ContextBuilder {
	return &ContextBuilder{
		prompts:       prompts,
		filter:        dom.DefaultFilterConfig(),
		historyWindow: historyWindow,
		screenshots:   screenshots,
		logger:        logger.Named("context"),
	}
}

// BuildPageContext snapshots the live page and derives the filtered tree,
// reference map and outline in one pass. A blank page is a valid context,
// not an error. Screenshot capture is best effort: a failure is logged and
// the textual context proceeds without the image.
func (b *ContextBuilder) BuildPageContext(ctx context.Context, driver Driver) (*PageContext, error) {
	snap, err := driver.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}

	filtered := dom.Filter(snap.Root, b.filter)
	refs := dom.Assign(filtered, snap.Root)

	pc := &PageContext{
		Snapshot: snap,
		Filtered: filtered,
		Refs:     refs,
		Outline:  dom.Serialize(snap.URL, filtered, refs),
	}

	if b.screenshots {
		img, err := driver.Screenshot(ctx, refs.Boxes())
		if err != nil {
			b.logger.Warn("Screenshot capture failed, continuing with text-only context.", zap.Error(err))
		} else {
			pc.Screenshot = img
		}
	}

	b.logger.Debug("Built page context.",
		zap.String("url", snap.URL),
		zap.Int("elements", refs.Len()),
		zap.Bool("screenshot", pc.Screenshot != nil))
	return pc, nil
}

// ProposerRequest builds the full generation request for a proposing turn.
// feedback carries verifier guidance or engine notes for this turn only.
func (b *ContextBuilder) ProposerRequest(task *Task, page *PageContext, feedback string, opts schemas.GenerationOptions) schemas.GenerationRequest {
	blocks := []schemas.ContextBlock{
		{Label: blockTask, Text: b.taskBlock(task)},
	}

	if history := b.historyBlock(task, b.historyWindow); history != "" {
		blocks = append(blocks, schemas.ContextBlock{Label: blockHistory, Text: history})
	}
	if feedback != "" {
		blocks = append(blocks, schemas.ContextBlock{Label: blockFeedback, Text: feedback})
	}
	blocks = append(blocks, schemas.ContextBlock{Label: blockPage, Text: page.Outline})

	req := schemas.GenerationRequest{
		SystemPrompt: b.prompts.ProposerSystem,
		Blocks:       blocks,
		Options:      opts,
	}
	if page.Screenshot != nil {
		req.Image = &schemas.ImageAttachment{MIMEType: "image/png", Data: page.Screenshot}
	}
	return req
}

// VerifierRequest builds the generation request for a verifying turn. The
// verifier's view is deliberately narrower than the proposer's: the most
// recent step plus the current page is the evidence it judges from.
func (b *ContextBuilder) VerifierRequest(task *Task, page *PageContext, opts schemas.GenerationOptions) schemas.GenerationRequest {
	blocks := []schemas.ContextBlock{
		{Label: blockTask, Text: b.taskBlock(task)},
	}
	if history := b.historyBlock(task, 1); history != "" {
		blocks = append(blocks, schemas.ContextBlock{Label: blockHistory, Text: history})
	}
	blocks = append(blocks, schemas.ContextBlock{Label: blockPage, Text: page.Outline})

	return schemas.GenerationRequest{
		SystemPrompt: b.prompts.VerifierSystem,
		Blocks:       blocks,
		Options:      opts,
	}
}

func (b *ContextBuilder) taskBlock(task *Task) string {
	var sb strings.Builder
	sb.WriteString(task.Description)
	if len(task.Resources) > 0 {
		names := make([]string, 0, len(task.Resources))
		for name := range task.Resources {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("\n\nAvailable resources for upload: ")
		sb.WriteString(strings.Join(names, ", "))
	}
	return sb.String()
}

// historyBlock serializes the most recent `window` steps (all when zero),
// prior-task steps first. Older steps fall off whole; the current page
// outline is never part of this budget.
func (b *ContextBuilder) historyBlock(task *Task, window int) string {
	steps := make([]Step, 0, len(task.PriorSteps)+len(task.Steps))
	steps = append(steps, task.PriorSteps...)
	steps = append(steps, task.Steps...)

	if window > 0 && len(steps) > window {
		steps = steps[len(steps)-window:]
	}
	if len(steps) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, step := range steps {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeStep(&sb, i+1, step)
	}
	return sb.String()
}

func writeStep(sb *strings.Builder, ordinal int, step Step) {
	fmt.Fprintf(sb, "Step %d (%s):\n", ordinal, step.Role)

	switch {
	case step.Proposal != nil:
		fmt.Fprintf(sb, "  message: %s\n", step.Proposal.Message)
		if step.Proposal.Done {
			sb.WriteString("  claimed done\n")
		}
		for i, action := range step.Proposal.Actions {
			raw, _ := wireJSON.Marshal(encodeAction(action))
			fmt.Fprintf(sb, "  action %d: %s\n", i+1, raw)
			if i < len(step.Results) {
				writeResult(sb, step.Results[i])
			} else {
				sb.WriteString("    result: not executed (stopped after earlier failure)\n")
			}
		}
	case step.Verdict != nil:
		fmt.Fprintf(sb, "  verdict: %s\n", step.Verdict.Status)
		fmt.Fprintf(sb, "  message: %s\n", step.Verdict.Message)
	}
}

func writeResult(sb *strings.Builder, res ExecutionResult) {
	if res.Success {
		sb.WriteString("    result: ok\n")
		return
	}
	fmt.Fprintf(sb, "    result: %s: %s\n", res.Code, res.Error)
}
