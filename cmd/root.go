// Package cmd wires the webpilot CLI: configuration loading, logging setup
// and the task-running subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/webpilot-ai/webpilot/internal/config"
	"github.com/webpilot-ai/webpilot/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "webpilot",
	Short:   "Webpilot is an LLM-driven browser automation agent.",
	Long:    "Webpilot drives a real browser through natural-language tasks:\nit snapshots pages, proposes actions with an LLM, executes them and\nverifies the result before claiming success.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup order matters: env file first so the config layer can see
		// the variables, then config, then logging from config.
		loadDotenv()

		if err := initializeConfig(); err != nil {
			return err
		}

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			// Fall back to a usable logger so the error itself gets logged.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "webpilot"})
			return err
		}
		cfg = loaded

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("Starting webpilot.", zap.String("version", Version))
		return nil
	},
}

// Execute runs the CLI under the given signal-aware context and exits
// non-zero on failure.
func Execute(ctx context.Context) {
	defer observability.Sync()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./webpilot.yaml, then ~/.webpilot/config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadDotenv pulls in a local .env file when present. Missing files are
// normal; anything else is worth a note on stderr since logging is not up.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
}

// initializeConfig merges defaults, the config file and WEBPILOT_* env vars.
func initializeConfig() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".webpilot"))
		}
		v.SetConfigName("webpilot")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("WEBPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
