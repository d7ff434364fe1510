package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"presscrawl/internal/article"
	"presscrawl/internal/enrich"
	"presscrawl/internal/fetch"
	"presscrawl/internal/knownset"
	"presscrawl/internal/pipeline"
	"presscrawl/internal/store"
)

// newCrawlCmd creates the 'crawl' subcommand: one full run over all
// configured sources, then exit.
func newCrawlCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl over all configured sources",
		Long: `Discovers article URLs for every configured source, fetches the ones
not seen in earlier runs, and upserts parsed articles into MongoDB.
With --dry-run everything runs against an in-memory store instead.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context(), rt, dryRun)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := st.Close(context.WithoutCancel(cmd.Context())); cerr != nil {
					rt.logger.Warn("store close failed", zap.Error(cerr))
				}
			}()

			return runCrawl(cmd.Context(), rt, st)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "crawl against an in-memory store, never touching MongoDB")
	return cmd
}

func openStore(ctx context.Context, rt *runtime, dryRun bool) (store.Store, error) {
	if dryRun {
		rt.logger.Info("dry run: using in-memory store")
		return store.NewMemory(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	st, err := store.Connect(connectCtx, rt.cfg.Mongo.URI, rt.cfg.Mongo.Database, rt.logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// crawlError decides the command's exit status after a run. Cancellation of
// the command's own context is an orderly shutdown and exits clean. Anything
// else is a failure, even when a source's error chain happens to wrap a
// cancellation, so per-source failures are never swallowed.
func crawlError(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("crawl: %w", err)
}

// runCrawl executes one full pipeline run against the given store. Shared
// with the schedule command, which reuses one store across runs.
func runCrawl(ctx context.Context, rt *runtime, st store.Store) error {
	logger := rt.logger

	known := knownset.Seed(ctx, st, logger.Named("knownset"))

	ids := article.NewIDGenerator()
	if max, err := st.MaxID(ctx); err != nil {
		logger.Warn("max id scan failed, ids start at 1", zap.Error(err))
	} else {
		ids.Advance(max)
	}

	sources, err := buildSources(rt.cfg, ids, logger)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no sources configured")
	}

	defaultFetcher := fetch.NewCollyFetcher(fetch.Config{
		UserAgent: rt.cfg.Crawl.UserAgent,
		Timeout:   time.Duration(rt.cfg.Crawl.TimeoutSeconds) * time.Second,
	})
	enricher := enrich.New(rt.cfg.Enrich.Enabled, rt.cfg.Enrich.MaxKeywords, logger.Named("enrich"))

	p := pipeline.New(st, known, defaultFetcher, enricher, ids, pipeline.SystemClock{}, logger.Named("pipeline"))

	stats, err := p.Run(ctx, sources)
	if cerr := crawlError(ctx, err); cerr != nil {
		return cerr
	}

	logger.Info("crawl complete",
		zap.Int("discovered", stats.Discovered),
		zap.Int("persisted", stats.Persisted),
		zap.Int("skipped_known", stats.SkippedKnown),
		zap.Int("skipped_duplicate", stats.SkippedDuplicate),
		zap.Int("discarded", stats.Discarded),
		zap.Int("failed", stats.Failed),
	)
	return nil
}
