package agent

import (
	"os"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/webpilot-ai/webpilot/internal/config"
	"github.com/webpilot-ai/webpilot/internal/observability"
)

// TestMain initializes the global logger before running the package tests
// and verifies nothing leaks goroutines on the way out.
func TestMain(m *testing.M) {
	cfg := config.NewDefaultConfig()
	logCfg := cfg.Logger
	logCfg.Level = "debug"
	logCfg.ServiceName = "agent-test"
	logCfg.Format = "console"

	observability.Initialize(logCfg, zapcore.Lock(os.Stdout))

	exitCode := m.Run()

	observability.Sync()
	observability.ResetForTest()

	if exitCode == 0 {
		if err := goleak.Find(); err != nil {
			os.Exit(1)
		}
	}
	os.Exit(exitCode)
}
