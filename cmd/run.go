package cmd

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webpilot-ai/webpilot/internal/agent"
	"github.com/webpilot-ai/webpilot/internal/browser"
	"github.com/webpilot-ai/webpilot/internal/llmclient"
	"github.com/webpilot-ai/webpilot/internal/observability"
)

var (
	runMaxSteps    int
	runResources   []string
	runScreenshots bool
	runHeadful     bool
	runJSONOutput  bool
)

var runCmd = &cobra.Command{
	Use:   "run \"<task description>\"",
	Short: "Run a browser task described in natural language.",
	Example: `  webpilot run "Open example.com and accept the cookie banner"
  webpilot run --resource cv=./cv.pdf "Upload my CV to the careers form on example.com"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		ctx := cmd.Context()

		resources, err := parseResources(runResources)
		if err != nil {
			return err
		}

		if runScreenshots {
			cfg.Engine.Screenshots = true
		}
		if runHeadful {
			cfg.Browser.Headless = false
		}

		llm, err := llmclient.NewClient(ctx, cfg.LLM, logger)
		if err != nil {
			return err
		}
		defer llm.Close()

		driver, err := browser.New(ctx, cfg.Browser, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := driver.Close(ctx); err != nil {
				logger.Warn("Failed to close browser.", zap.Error(err))
			}
		}()

		engine := agent.NewEngine(cfg, llm, driver, agent.DefaultPrompts(), logger)
		outcome, err := engine.RunTask(ctx, agent.TaskRequest{
			Description: args[0],
			Resources:   resources,
			MaxSteps:    runMaxSteps,
		})
		if err != nil {
			return err
		}

		printOutcome(cmd, outcome)
		if outcome.Status != agent.TaskCompleted {
			// Non-zero exit for scripting; details are already printed.
			return fmt.Errorf("task %s: %s", strings.ToLower(string(outcome.Status)), outcome.FinalMessage)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "step budget for this task (0 uses the configured default)")
	runCmd.Flags().StringArrayVar(&runResources, "resource", nil, "uploadable resource as name=path, repeatable")
	runCmd.Flags().BoolVar(&runScreenshots, "screenshots", false, "attach annotated screenshots to model context")
	runCmd.Flags().BoolVar(&runHeadful, "headful", false, "show the browser window")
	runCmd.Flags().BoolVar(&runJSONOutput, "json", false, "print the outcome as JSON")
	rootCmd.AddCommand(runCmd)
}

// parseResources validates name=path pairs and checks the files exist up
// front, before any browser or LLM traffic.
func parseResources(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	resources := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, path, ok := strings.Cut(pair, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid resource %q, expected name=path", pair)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("resource %q: %w", name, err)
		}
		resources[name] = path
	}
	return resources, nil
}

func printOutcome(cmd *cobra.Command, outcome agent.TaskOutcome) {
	if runJSONOutput {
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(outcomeReport(outcome), "", "  ")
		if err == nil {
			cmd.Println(string(out))
			return
		}
	}

	cmd.Printf("Status:  %s\n", outcome.Status)
	if outcome.Classification != "" {
		cmd.Printf("Reason:  %s\n", outcome.Classification)
	}
	cmd.Printf("Steps:   %d\n", len(outcome.Steps))
	if outcome.FinalMessage != "" {
		cmd.Printf("Message: %s\n", outcome.FinalMessage)
	}
}

// outcomeReport is the stable JSON shape for --json output.
func outcomeReport(outcome agent.TaskOutcome) map[string]any {
	steps := make([]map[string]any, 0, len(outcome.Steps))
	for _, step := range outcome.Steps {
		entry := map[string]any{
			"id":   step.ID,
			"role": step.Role,
			"time": step.Time,
		}
		if step.Proposal != nil {
			entry["message"] = step.Proposal.Message
			entry["done"] = step.Proposal.Done
			entry["actions"] = len(step.Proposal.Actions)
		}
		if step.Verdict != nil {
			entry["verdict"] = step.Verdict.Status
			entry["message"] = step.Verdict.Message
		}
		steps = append(steps, entry)
	}
	return map[string]any{
		"status":         outcome.Status,
		"classification": outcome.Classification,
		"final_message":  outcome.FinalMessage,
		"steps":          steps,
	}
}
