package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/internal/export"
	"github.com/andresuchdata/gapwatch/internal/monitoring"
	"github.com/andresuchdata/gapwatch/internal/planner"
	"github.com/andresuchdata/gapwatch/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	SummaryBaseName = "gap_summary"
	CycleCacheView  = "cycle"
)

// AlertPublisher delivers High priority change records.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, runID string, records []domain.ChangeRecord) (int, error)
}

// ReportCache holds API views derived from snapshots.
type ReportCache interface {
	Set(ctx context.Context, view, date string, v interface{}) error
	InvalidateAll(ctx context.Context) error
}

// MetricsRecorder observes finished cycles.
type MetricsRecorder interface {
	ObserveCycle(status string, records []domain.ChangeRecord, kpis domain.KPISummary, at time.Time)
}

// Sinks are the optional side effects of a cycle. Nil members are skipped and failures
// only degrade the cycle status.
type Sinks struct {
	Artifacts     storage.Uploader
	ArtifactsRoot string
	Alerts        AlertPublisher
	Cache         ReportCache
	Metrics       MetricsRecorder
}

// Orchestrator runs one monitoring cycle: score, snapshot, compare, plan and export.
// It holds no lock; callers serialize cycles.
type Orchestrator struct {
	pipeline Pipeline
	cfg      PipelineConfig
	gap      config.GapConfig
	store    *monitoring.SnapshotStore
	analyzer *monitoring.Analyzer
	planner  *planner.Planner
	exporter *export.Exporter
	sinks    Sinks
	now      func() time.Time
}

// NewOrchestrator wires the snapshot store, change analyzer, planner and exporter from cfg.
func NewOrchestrator(p Pipeline, cfg PipelineConfig, appCfg *config.Config) *Orchestrator {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultPipelineConfig(cfg.Name).TopN
	}
	return &Orchestrator{
		pipeline: p,
		cfg:      cfg,
		gap:      appCfg.Gap,
		store:    monitoring.NewSnapshotStore(cfg.SnapshotDir),
		analyzer: monitoring.NewAnalyzer(appCfg.Monitor),
		planner:  planner.NewPlanner(appCfg.Planner),
		exporter: export.NewExporter(cfg.OutputDir, appCfg.Gap.StatusColors),
		now:      time.Now,
	}
}

func (o *Orchestrator) WithSinks(s Sinks) *Orchestrator {
	o.sinks = s
	return o
}

// WithClock fixes the clock used for default week and date.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	if now != nil {
		o.now = now
		o.store.WithClock(now)
		o.planner.WithClock(now)
	}
	return o
}

// WithExporter replaces the rich summary exporter.
func (o *Orchestrator) WithExporter(e *export.Exporter) *Orchestrator {
	if e != nil {
		o.exporter = e
	}
	return o
}

func (o *Orchestrator) Store() *monitoring.SnapshotStore {
	return o.store
}

// RunCycle processes ds end to end. Errors before the snapshot is written abort the cycle;
// failing optional sinks are reported as warnings with status degraded.
func (o *Orchestrator) RunCycle(ctx context.Context, ds domain.Dataset) (CycleReport, error) {
	report := CycleReport{
		RunID:      uuid.NewString(),
		Pipeline:   o.pipeline.Name(),
		Status:     StatusFailed,
		StartedAt:  o.now(),
		Artifacts:  []string{},
		TargetGaps: []domain.TargetGap{},
	}
	logger := log.With().Str("run_id", report.RunID).Str("pipeline", report.Pipeline).Logger()

	week, date, err := o.store.ResolveWeekDate(o.cfg.Week, o.cfg.Date)
	if err != nil {
		return report, err
	}
	report.Week, report.Date = week, date

	// 1) aggregate, score, normalize and rank
	if err := o.pipeline.Validate(ds); err != nil {
		return report, fmt.Errorf("validate dataset: %w", err)
	}
	records, err := o.pipeline.Transform(ctx, ds)
	if err != nil {
		return report, fmt.Errorf("transform dataset: %w", err)
	}
	logger.Info().Int("week", week).Str("date", date).Int("categories", len(records)).Msg("cycle: scored")

	// 2) previous is the latest snapshot strictly older than date, as in the API views
	previous, hasHistory, err := o.store.LoadBefore(date)
	if err != nil {
		return report, fmt.Errorf("load previous snapshot: %w", err)
	}
	var prev *domain.Snapshot
	if hasHistory {
		prev = &previous
		report.HasHistory = true
		report.PreviousDate = previous.Date
	}

	// 3) persist
	jsonPath, csvPath, err := o.store.Save(records, week, date)
	if err != nil {
		return report, fmt.Errorf("save snapshot: %w", err)
	}
	report.Artifacts = append(report.Artifacts, jsonPath, csvPath)

	// 4) changes and alerts
	current := domain.ToSnapshotRecords(records, date, week)
	report.Changes = o.analyzer.Analyze(current, prev)
	if !hasHistory {
		logger.Info().Msg("cycle: no previous snapshot, changes reported as zero")
	}

	// 5) action plan
	report.Plan = o.planner.GeneratePlan(report.Changes, week, date)
	planJSON, err := planner.WriteJSON(report.Plan, o.cfg.OutputDir)
	if err != nil {
		return report, err
	}
	planText, err := planner.WriteText(report.Plan, o.cfg.OutputDir)
	if err != nil {
		return report, err
	}
	report.Artifacts = append(report.Artifacts, planJSON, planText)

	// 6) summary, KPIs and insights
	paths, warnings, err := o.writeReports(ds, current, &report)
	report.Artifacts = append(report.Artifacts, paths...)
	report.Warnings = append(report.Warnings, warnings...)
	if err != nil {
		return report, err
	}

	report.Status = StatusCompleted
	if len(report.Warnings) > 0 {
		report.Status = StatusDegraded
	}

	// 7) optional side effects
	o.runSinks(ctx, &report)

	report.CompletedAt = o.now()
	if o.sinks.Metrics != nil {
		o.sinks.Metrics.ObserveCycle(string(report.Status), report.Changes, report.KPIs, report.CompletedAt)
	}

	logger.Info().
		Str("status", string(report.Status)).
		Int("needing_attention", len(monitoring.NeedingAttention(report.Changes))).
		Int("artifacts", len(report.Artifacts)).
		Dur("elapsed", report.CompletedAt.Sub(report.StartedAt)).
		Msg("cycle: finished")
	return report, nil
}

func (o *Orchestrator) writeReports(ds domain.Dataset, current []domain.SnapshotRecord, report *CycleReport) ([]string, []string, error) {
	var paths, warnings []string

	rows := export.BuildGapSummary(current)
	csvPath := filepath.Join(o.cfg.OutputDir, SummaryBaseName+".csv")
	if err := export.WriteSummaryCSV(rows, csvPath); err != nil {
		return paths, warnings, err
	}
	jsonPath := filepath.Join(o.cfg.OutputDir, SummaryBaseName+".json")
	if err := export.WriteSummaryJSON(rows, jsonPath); err != nil {
		return paths, warnings, err
	}
	paths = append(paths, csvPath, jsonPath)

	richPath, fellBack, err := o.exporter.ExportRich(rows, SummaryBaseName)
	if err != nil {
		return paths, warnings, err
	}
	if fellBack {
		warnings = append(warnings, "summary workbook rendering failed, wrote "+filepath.Base(richPath))
	}
	paths = append(paths, richPath)

	report.KPIs = monitoring.ComputeKPIs(current)
	targets, overall := monitoring.ComputeTargetGaps(monitoring.DatasetMetrics(ds), o.gap.TargetMultipliers)
	report.TargetGaps = targets

	kpiPath := filepath.Join(o.cfg.OutputDir, export.KPIFileName)
	if err := export.WriteKPIs(export.KPIReport{
		Date:             report.Date,
		Week:             report.Week,
		Summary:          report.KPIs,
		TargetGaps:       targets,
		OverallTargetPct: overall,
	}, kpiPath); err != nil {
		return paths, warnings, err
	}
	paths = append(paths, kpiPath)

	insightPaths, err := export.WriteInsights(current, report.KPIs, o.cfg.OutputDir, o.cfg.TopN)
	paths = append(paths, insightPaths...)
	if err != nil {
		return paths, warnings, err
	}
	return paths, warnings, nil
}

func (o *Orchestrator) runSinks(ctx context.Context, report *CycleReport) {
	degrade := func(msg string, err error) {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg(msg)
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", msg, err))
		report.Status = StatusDegraded
	}

	if o.sinks.Artifacts != nil {
		if err := o.uploadArtifacts(ctx, report); err != nil {
			degrade("artifact upload failed", err)
		}
	}

	if o.sinks.Alerts != nil {
		if _, err := o.sinks.Alerts.PublishAlerts(ctx, report.RunID, report.Changes); err != nil {
			degrade("alert publishing failed", err)
		}
	}

	if o.sinks.Cache != nil {
		if err := o.sinks.Cache.InvalidateAll(ctx); err != nil {
			degrade("report cache invalidation failed", err)
		} else if err := o.sinks.Cache.Set(ctx, CycleCacheView, "", report); err != nil {
			degrade("report cache write failed", err)
		}
	}
}

func (o *Orchestrator) uploadArtifacts(ctx context.Context, report *CycleReport) error {
	keys, err := storage.UploadFiles(ctx, o.sinks.Artifacts, o.sinks.ArtifactsRoot, report.Date, report.Artifacts)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", report.RunID).Int("objects", len(keys)).Msg("cycle: artifacts uploaded")
	return nil
}
