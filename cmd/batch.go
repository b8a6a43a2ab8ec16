package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/roster"
)

var (
	batchFile        string
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Research every company listed in a CSV or XLSX file",
	Long: `Reads companies from the "company" (or "name", "domain", "website") column of a
CSV or XLSX file, or its first column when no header is recognised, and researches
each with its own browsing session.

Examples:
  atlas batch --file companies.csv
  atlas batch --file leads.xlsx --limit 10 --concurrency 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		companies, err := roster.Read(ctx, batchFile)
		if err != nil {
			return eris.Wrap(err, "batch: read companies")
		}

		env, err := initResearch(ctx, cfg, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentCompanies
		}

		sum, err := processBatch(ctx, companies, batchLimit, concurrency, env.Runner.Run)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Researched %d companies: %d succeeded, %d failed (%s)\n",
			sum.Total, sum.Succeeded, sum.Failed, sum.Elapsed.Round(time.Second))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV or XLSX file listing companies")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of companies to research (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "companies researched at once (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// runFunc researches one company.
type runFunc func(ctx context.Context, company string, progress model.ProgressFunc) (*model.Run, error)

type batchSummary struct {
	Total     int
	Succeeded int64
	Failed    int64
	Elapsed   time.Duration
}

// processBatch applies limit, then researches companies with at most
// concurrency in flight. A failed company does not stop the others.
func processBatch(ctx context.Context, companies []string, limit, concurrency int, run runFunc) (batchSummary, error) {
	start := time.Now()
	if len(companies) == 0 {
		zap.L().Info("no companies to research")
		return batchSummary{}, nil
	}

	if limit > 0 && len(companies) > limit {
		companies = companies[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("companies", len(companies)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, company := range companies {
		g.Go(func() error {
			log := zap.L().With(zap.String("company", company), zap.Int("index", i))
			progress := func(msg string) { log.Debug(msg) }

			r, err := run(gctx, company, progress)
			if err != nil {
				failed.Add(1)
				log.Error("research failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("research complete", zap.String("run_id", r.ID))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	sum := batchSummary{
		Total:     len(companies),
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Elapsed:   time.Since(start),
	}
	zap.L().Info("batch complete",
		zap.Int64("succeeded", sum.Succeeded),
		zap.Int64("failed", sum.Failed),
	)
	return sum, nil
}
