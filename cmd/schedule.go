package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"presscrawl/internal/api"
	"presscrawl/internal/scheduler"
)

// newScheduleCmd creates the 'schedule' subcommand: a long-running process
// that crawls once a day and serves health/metrics in between.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Crawl daily at the configured time",
		Long: `Runs until interrupted. Each day at schedule.at (in schedule.timezone)
a full crawl executes; between runs the process serves /healthz and
/metrics on server.port.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			return runSchedule(cmd.Context(), rt)
		},
	}
}

func runSchedule(ctx context.Context, rt *runtime) error {
	sched, err := scheduler.New(rt.cfg.Schedule.At, rt.cfg.Schedule.Timezone, rt.logger.Named("scheduler"))
	if err != nil {
		return err
	}

	st, err := openStore(ctx, rt, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(context.WithoutCancel(ctx)); cerr != nil {
			rt.logger.Warn("store close failed", zap.Error(cerr))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := api.NewServer(rt.cfg.Server.Port, rt.logger.Named("api"))
	apiErr := make(chan error, 1)
	go func() {
		err := srv.Run(ctx)
		if err != nil {
			// A dead listener means no health checks; stop the schedule
			// rather than run unobserved.
			cancel()
		}
		apiErr <- err
	}()

	err = sched.Run(ctx, func(runCtx context.Context) error {
		return runCrawl(runCtx, rt, st)
	})

	cancel()
	if serveErr := <-apiErr; serveErr != nil {
		return serveErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
