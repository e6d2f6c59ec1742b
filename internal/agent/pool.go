package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/webpilot-ai/webpilot/api/schemas"
	"github.com/webpilot-ai/webpilot/internal/config"
)

// DriverFactory opens a fresh browser session for one task.
type DriverFactory func(ctx context.Context) (Driver, error)

// Pool runs independent tasks concurrently, one engine and one browser
// session per task. Engines are single-task by design; the pool is how
// callers get parallelism.
type Pool struct {
	cfg         *config.Config
	llm         schemas.LLMClient
	newDriver   DriverFactory
	prompts     PromptRepository
	concurrency int64
	logger      *zap.Logger
}

// NewPool wires a pool. concurrency bounds simultaneously open browser
// sessions; values below one are clamped to one.
func NewPool(cfg *config.Config, llm schemas.LLMClient, newDriver DriverFactory, prompts PromptRepository, concurrency int, logger *zap.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		cfg:         cfg,
		llm:         llm,
		newDriver:   newDriver,
		prompts:     prompts,
		concurrency: int64(concurrency),
		logger:      logger.Named("pool"),
	}
}

// Run executes all requests and returns outcomes index-aligned with them.
// A failed task is a normal outcome, not an error; the error return covers
// infrastructure failures (driver startup) and context cancellation, and the
// first such failure cancels the remaining tasks.
func (p *Pool) Run(ctx context.Context, reqs []TaskRequest) ([]TaskOutcome, error) {
	outcomes := make([]TaskOutcome, len(reqs))
	sem := semaphore.NewWeighted(p.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			outcome, err := p.runOne(ctx, req)
			if err != nil {
				return fmt.Errorf("task %d: %w", i, err)
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (p *Pool) runOne(ctx context.Context, req TaskRequest) (TaskOutcome, error) {
	driver, err := p.newDriver(ctx)
	if err != nil {
		return TaskOutcome{}, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := driver.Close(context.Background()); err != nil {
			p.logger.Warn("Failed to close browser session.", zap.Error(err))
		}
	}()

	engine := NewEngine(p.cfg, p.llm, driver, p.prompts, p.logger)
	return engine.RunTask(ctx, req)
}
