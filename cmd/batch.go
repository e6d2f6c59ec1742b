package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/webpilot-ai/webpilot/internal/agent"
	"github.com/webpilot-ai/webpilot/internal/browser"
	"github.com/webpilot-ai/webpilot/internal/llmclient"
	"github.com/webpilot-ai/webpilot/internal/observability"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <tasks-file>",
	Short: "Run many independent tasks from a file, one per line.",
	Long:  "Reads task descriptions one per line (blank lines and lines starting\nwith # are skipped) and runs them concurrently, each in its own\nbrowser session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		ctx := cmd.Context()

		reqs, err := readTaskFile(args[0])
		if err != nil {
			return err
		}
		if len(reqs) == 0 {
			return fmt.Errorf("no tasks found in %s", args[0])
		}

		llm, err := llmclient.NewClient(ctx, cfg.LLM, logger)
		if err != nil {
			return err
		}
		defer llm.Close()

		pool := agent.NewPool(cfg, llm, browser.Factory(cfg.Browser, logger), agent.DefaultPrompts(), batchConcurrency, logger)
		outcomes, err := pool.Run(ctx, reqs)
		if err != nil {
			return err
		}

		failed := 0
		for i, outcome := range outcomes {
			cmd.Printf("[%d] %-9s steps=%d %s\n", i+1, outcome.Status, len(outcome.Steps), outcome.FinalMessage)
			if outcome.Status != agent.TaskCompleted {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d tasks did not complete", failed, len(outcomes))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 2, "number of concurrent browser sessions")
	rootCmd.AddCommand(batchCmd)
}

func readTaskFile(path string) ([]agent.TaskRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks file: %w", err)
	}
	defer f.Close()

	var reqs []agent.TaskRequest
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		reqs = append(reqs, agent.TaskRequest{Description: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}
	return reqs, nil
}
