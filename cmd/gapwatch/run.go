package main

import (
	"fmt"
	"path/filepath"

	"github.com/andresuchdata/gapwatch/internal/cache"
	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/metrics"
	"github.com/andresuchdata/gapwatch/internal/monitoring"
	"github.com/andresuchdata/gapwatch/internal/notify"
	"github.com/andresuchdata/gapwatch/internal/pipeline"
	"github.com/andresuchdata/gapwatch/internal/pipeline/gap_score"
	"github.com/andresuchdata/gapwatch/internal/storage"
	"github.com/andresuchdata/gapwatch/pkg/logger"
	"github.com/urfave/cli/v2"
)

func cycleFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "week",
			Usage: "ISO week number for the snapshot (default: current week)",
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "Snapshot date in YYYY-MM-DD (default: today)",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Usage:   "Directory for plans, summaries, KPIs and insights",
			Value:   cfg.App.OutputDir,
			EnvVars: []string{"APP_OUTPUT_DIR"},
		},
		&cli.StringFlag{
			Name:    "snapshot-dir",
			Usage:   "Directory holding weekly snapshots",
			Value:   cfg.App.SnapshotDir,
			EnvVars: []string{"APP_SNAPSHOT_DIR"},
		},
		&cli.IntFlag{
			Name:  "top-n",
			Usage: "Categories listed in ranking insights",
			Value: 5,
		},
		&cli.StringFlag{
			Name:  "intermediate-dir",
			Usage: "Root directory for debug layers",
			Value: filepath.Join("data", "intermediate", "gap_score"),
		},
		&cli.BoolFlag{
			Name:  "persist-debug-layers",
			Usage: "Write supply/demand and scored layers as CSV",
		},
		&cli.BoolFlag{
			Name:  "ascending",
			Usage: "Rank lowest gap score first",
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write cycle metrics in Prometheus text format to this path",
		},
	}
}

func runCommand(cfg *config.Config) *cli.Command {
	flags := append(sourceFlags(cfg), dimensionFlag(cfg))
	flags = append(flags, cycleFlags(cfg)...)

	return &cli.Command{
		Name:   "run",
		Usage:  "Run one monitoring cycle: score, snapshot, compare, plan and export",
		Flags:  flags,
		Action: func(c *cli.Context) error { return runCycle(c, cfg) },
	}
}

func newGapPipeline(c *cli.Context, cfg *config.Config) (*gap_score.GapScorePipeline, error) {
	dim, err := resolveDimension(c)
	if err != nil {
		return nil, err
	}
	return gap_score.NewGapScorePipeline(gap_score.Config{
		Dimension:          dim,
		Gap:                cfg.Gap,
		Ascending:          c.Bool("ascending"),
		IntermediateDir:    c.String("intermediate-dir"),
		PersistDebugLayers: c.Bool("persist-debug-layers"),
		RunDate:            c.String("date"),
	}), nil
}

func runCycle(c *cli.Context, cfg *config.Config) error {
	ctx := c.Context

	gapPipeline, err := newGapPipeline(c, cfg)
	if err != nil {
		return err
	}

	ds, err := loadDataset(ctx, c, cfg)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	pcfg := pipeline.DefaultPipelineConfig(gapPipeline.Name())
	pcfg.OutputDir = c.String("output-dir")
	pcfg.SnapshotDir = c.String("snapshot-dir")
	pcfg.Week = c.Int("week")
	pcfg.Date = c.String("date")
	pcfg.TopN = c.Int("top-n")

	collector := metrics.NewCollector()
	sinks := pipeline.Sinks{Metrics: collector}

	if cfg.Storage.Enabled {
		store, err := storage.NewS3Storage(cfg.Storage)
		if err != nil {
			return err
		}
		sinks.Artifacts = store
		sinks.ArtifactsRoot = cfg.Storage.Prefix
	}

	publisher, err := notify.NewAlertPublisher(cfg.Kafka)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to close alert publisher")
		}
	}()
	sinks.Alerts = publisher

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}
	sinks.Cache = reportCache

	orchestrator := pipeline.NewOrchestrator(gapPipeline, pcfg, cfg).WithSinks(sinks)
	report, err := orchestrator.RunCycle(ctx, ds)
	if err != nil {
		return fmt.Errorf("monitoring cycle failed: %w", err)
	}

	if path := c.String("metrics-textfile"); path != "" {
		if err := collector.WriteTextfile(path); err != nil {
			logger.Log.Warn().Err(err).Str("path", path).Msg("failed to write metrics textfile")
		}
	}

	printCycleReport(c, report)
	return nil
}

func printCycleReport(c *cli.Context, r pipeline.CycleReport) {
	w := c.App.Writer
	fmt.Fprintf(w, "Cycle %s (%s) week %d, %s: %s\n", r.RunID, r.Pipeline, r.Week, r.Date, r.Status)
	if r.HasHistory {
		fmt.Fprintf(w, "Compared against snapshot of %s\n", r.PreviousDate)
	} else {
		fmt.Fprintln(w, "No previous snapshot, changes reported as zero")
	}
	fmt.Fprintf(w, "Categories: %d  avg gap: %.2f  max gap: %.2f (%s)  critical: %d\n",
		r.KPIs.TotalCategories, r.KPIs.AvgGapScore, r.KPIs.MaxGapScore, r.KPIs.MaxGapCategory, r.KPIs.CriticalCategories)
	fmt.Fprintf(w, "Categories needing attention: %d (action plans: %d)\n",
		len(monitoring.NeedingAttention(r.Changes)), len(r.Plan.ActionPlans))
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, a := range r.Artifacts {
		fmt.Fprintf(w, "  %s\n", a)
	}
}
