// Package cmd defines and implements the CLI commands for the presscrawl
// executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"presscrawl/internal/config"
	"presscrawl/internal/logging"
)

var cfgFile string

// runtimeKeyType is the key for storing the runtime in the command context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// runtime bundles the services every subcommand needs. It is built once in
// the root command's PersistentPreRunE and handed down via the context, so
// subcommands stay testable.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// newRuntime is a variable so tests can swap in a canned runtime.
var newRuntime = func(context.Context) (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("runtime not initialized")
	}
	return rt, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presscrawl",
		Short: "A deduplicating news crawler",
		Long: `presscrawl discovers article URLs from configured news sources,
fetches the ones it has not seen before, and persists parsed articles to
MongoDB keyed by a content fingerprint.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*runtime); ok && rt != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus PRESSCRAWL_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newScheduleCmd())

	return cmd
}

// Execute is the main entry point.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
