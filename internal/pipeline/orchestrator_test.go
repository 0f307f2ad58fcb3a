package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/internal/export"
	"github.com/andresuchdata/gapwatch/internal/pipeline"
	"github.com/andresuchdata/gapwatch/internal/pipeline/gap_score"
)

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) UploadObject(_ context.Context, key string, _ []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

type fakePublisher struct {
	sent []domain.ChangeRecord
}

func (f *fakePublisher) PublishAlerts(_ context.Context, _ string, records []domain.ChangeRecord) (int, error) {
	n := 0
	for _, r := range records {
		if r.Priority == domain.PriorityHigh {
			f.sent = append(f.sent, r)
			n++
		}
	}
	return n, nil
}

type fakeCache struct {
	invalidations int
	views         map[string]interface{}
}

func (f *fakeCache) Set(_ context.Context, view, date string, v interface{}) error {
	if f.views == nil {
		f.views = map[string]interface{}{}
	}
	f.views[view+"@"+date] = v
	return nil
}

func (f *fakeCache) InvalidateAll(context.Context) error {
	f.invalidations++
	return nil
}

type fakeMetrics struct {
	statuses []string
}

func (f *fakeMetrics) ObserveCycle(status string, _ []domain.ChangeRecord, _ domain.KPISummary, _ time.Time) {
	f.statuses = append(f.statuses, status)
}

func baseDataset() domain.Dataset {
	return domain.Dataset{
		Products: []domain.Product{
			{ProductKey: "P1", Category: "Bikes", Subcategory: "Road"},
			{ProductKey: "P2", Category: "Bikes", Subcategory: "Mountain"},
			{ProductKey: "P3", Category: "Bikes", Subcategory: "Mountain"},
			{ProductKey: "P4", Category: "Clothing", Subcategory: "Jerseys"},
			{ProductKey: "P5", Category: "Components", Subcategory: "Frames"},
		},
		Transactions: []domain.Transaction{
			{OrderNumber: "SO1", ProductKey: "P1", Quantity: 2, CustomerKey: "C1"},
			{OrderNumber: "SO1", ProductKey: "P2", Quantity: 1, CustomerKey: "C1"},
			{OrderNumber: "SO2", ProductKey: "P3", Quantity: 3, CustomerKey: "C2"},
			{OrderNumber: "SO3", ProductKey: "P4", Quantity: 5, CustomerKey: "C1"},
			{OrderNumber: "SO4", ProductKey: "P9", Category: "Accessories", Subcategory: "Helmets", Quantity: 4, CustomerKey: "C3"},
			{OrderNumber: "SO5", ProductKey: "P1", Quantity: 7, CustomerKey: "C4"},
		},
	}
}

func newOrchestrator(t *testing.T, root string, week int, date string) *pipeline.Orchestrator {
	t.Helper()
	appCfg := &config.Config{
		Gap:     config.DefaultGapConfig(),
		Monitor: config.DefaultMonitorConfig(),
		Planner: config.DefaultPlannerConfig(),
	}
	p := gap_score.NewGapScorePipeline(gap_score.Config{Dimension: domain.DimensionCategory, Gap: appCfg.Gap})

	cfg := pipeline.DefaultPipelineConfig("weekly")
	cfg.OutputDir = filepath.Join(root, "results")
	cfg.SnapshotDir = filepath.Join(root, "snapshots")
	cfg.Week = week
	cfg.Date = date

	clock := func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return pipeline.NewOrchestrator(p, cfg, appCfg).WithClock(clock)
}

func TestRunCycleTwoWeeks(t *testing.T) {
	root := t.TempDir()

	// week 2: no history
	first, err := newOrchestrator(t, root, 2, "2024-01-08").RunCycle(context.Background(), baseDataset())
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if first.Status != pipeline.StatusCompleted || first.HasHistory {
		t.Fatalf("unexpected first report status=%s history=%v", first.Status, first.HasHistory)
	}
	if first.RunID == "" {
		t.Error("expected run id")
	}
	for _, c := range first.Changes {
		if c.GapChangePct != 0 || c.PreviousGapScore != nil {
			t.Errorf("first cycle should report no change, got %+v", c)
		}
	}
	if first.KPIs.TotalCategories != 4 {
		t.Errorf("expected 4 categories, got %d", first.KPIs.TotalCategories)
	}

	// week 3: Accessories demand grows from 4 to 10
	ds := baseDataset()
	ds.Transactions = append(ds.Transactions, domain.Transaction{
		OrderNumber: "SO6", ProductKey: "P9", Category: "Accessories", Subcategory: "Helmets", Quantity: 6, CustomerKey: "C5",
	})

	pub := &fakePublisher{}
	up := &fakeUploader{}
	cache := &fakeCache{}
	met := &fakeMetrics{}
	o := newOrchestrator(t, root, 3, "2024-01-15").WithSinks(pipeline.Sinks{
		Artifacts:     up,
		ArtifactsRoot: "gapwatch",
		Alerts:        pub,
		Cache:         cache,
		Metrics:       met,
	})

	second, err := o.RunCycle(context.Background(), ds)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if second.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", second.Status, second.Warnings)
	}
	if !second.HasHistory || second.PreviousDate != "2024-01-08" {
		t.Fatalf("expected history from 2024-01-08, got %v %q", second.HasHistory, second.PreviousDate)
	}

	top := second.Changes[0]
	if top.Category != "Accessories" || top.GapScore != 11 {
		t.Fatalf("unexpected top change %+v", top)
	}
	// (11-5)/(5+1)*100
	if top.GapChangePct != 100 {
		t.Errorf("gap change = %v, want 100", top.GapChangePct)
	}
	for _, a := range []domain.Alert{domain.AlertCritical, domain.AlertGapIncreasing, domain.AlertDemandSpike} {
		if !top.HasAlert(a) {
			t.Errorf("expected alert %s in %v", a, top.Alerts)
		}
	}
	if top.Priority != domain.PriorityHigh {
		t.Errorf("priority = %s", top.Priority)
	}

	if len(pub.sent) != 1 || pub.sent[0].Category != "Accessories" {
		t.Errorf("expected one published alert, got %+v", pub.sent)
	}
	if len(up.keys) != len(second.Artifacts) {
		t.Errorf("uploaded %d of %d artifacts", len(up.keys), len(second.Artifacts))
	}
	if cache.invalidations != 1 || cache.views[pipeline.CycleCacheView+"@"] == nil {
		t.Errorf("cache not refreshed: %+v", cache)
	}
	if len(met.statuses) != 1 || met.statuses[0] != string(pipeline.StatusCompleted) {
		t.Errorf("metrics statuses %v", met.statuses)
	}

	for _, name := range []string{
		"action_plan_week_3.json", "action_plan_week_3.txt",
		"gap_summary.csv", "gap_summary.json", "gap_summary.xlsx",
		export.KPIFileName, export.InsightsTextFileName, export.ExecutiveSummaryFileName,
	} {
		if _, err := os.Stat(filepath.Join(root, "results", name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	infos, err := o.Store().List()
	if err != nil || len(infos) != 2 {
		t.Fatalf("expected 2 snapshots, got %v (%v)", infos, err)
	}
}

func TestSnapshotSeverityRoundTrip(t *testing.T) {
	root := t.TempDir()
	o := newOrchestrator(t, root, 3, "2024-01-15")
	if _, err := o.RunCycle(context.Background(), baseDataset()); err != nil {
		t.Fatal(err)
	}

	snap, ok, err := o.Store().LoadLatest()
	if err != nil || !ok {
		t.Fatalf("LoadLatest: ok=%v err=%v", ok, err)
	}
	scorer := gap_score.NewScorer(config.DefaultGapConfig())
	for _, r := range snap.Records {
		if got := scorer.Classify(r.GapScore); got != r.GapStatus {
			t.Errorf("%s: persisted %s, reclassified %s", r.Category, r.GapStatus, got)
		}
	}
}

func TestRunCycleDegradesOnSinkFailure(t *testing.T) {
	root := t.TempDir()
	o := newOrchestrator(t, root, 3, "2024-01-15").WithSinks(pipeline.Sinks{
		Artifacts: &fakeUploader{err: errors.New("bucket unavailable")},
	})

	report, err := o.RunCycle(context.Background(), baseDataset())
	if err != nil {
		t.Fatalf("sink failure must not abort the cycle: %v", err)
	}
	if report.Status != pipeline.StatusDegraded || len(report.Warnings) != 1 {
		t.Fatalf("expected degraded with 1 warning, got %s %v", report.Status, report.Warnings)
	}
}

func TestRunCycleExportFallback(t *testing.T) {
	root := t.TempDir()
	o := newOrchestrator(t, root, 3, "2024-01-15")
	failing := export.NewExporter(filepath.Join(root, "results"), nil).
		WithRenderer(func([]domain.GapSummaryRow, string) error { return errors.New("no renderer") })
	o.WithExporter(failing)

	report, err := o.RunCycle(context.Background(), baseDataset())
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != pipeline.StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if _, err := os.Stat(filepath.Join(root, "results", "gap_summary_fallback.csv")); err != nil {
		t.Errorf("missing fallback csv: %v", err)
	}
}

func TestRunCycleFailsFastOnInput(t *testing.T) {
	root := t.TempDir()

	_, err := newOrchestrator(t, root, 3, "2024-01-15").RunCycle(context.Background(), domain.Dataset{})
	if !errors.Is(err, gap_score.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}

	_, err = newOrchestrator(t, root, 3, "15/01/2024").RunCycle(context.Background(), baseDataset())
	if err == nil {
		t.Fatal("expected invalid date error")
	}

	if _, statErr := os.Stat(filepath.Join(root, "snapshots")); !os.IsNotExist(statErr) {
		t.Error("no snapshot should be written for rejected input")
	}
}

func grownDataset() domain.Dataset {
	ds := baseDataset()
	ds.Transactions = append(ds.Transactions, domain.Transaction{
		OrderNumber: "SO6", ProductKey: "P9", Category: "Accessories", Subcategory: "Helmets", Quantity: 6, CustomerKey: "C5",
	})
	return ds
}

func TestRunCycleRerunComparesAgainstPriorDate(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	if _, err := newOrchestrator(t, root, 2, "2024-01-08").RunCycle(ctx, baseDataset()); err != nil {
		t.Fatalf("week 2: %v", err)
	}
	first, err := newOrchestrator(t, root, 3, "2024-01-15").RunCycle(ctx, grownDataset())
	if err != nil {
		t.Fatalf("week 3: %v", err)
	}
	rerun, err := newOrchestrator(t, root, 3, "2024-01-15").RunCycle(ctx, grownDataset())
	if err != nil {
		t.Fatalf("week 3 rerun: %v", err)
	}

	if rerun.PreviousDate != "2024-01-08" {
		t.Fatalf("rerun compared against %q, want 2024-01-08", rerun.PreviousDate)
	}
	if rerun.Changes[0].GapChangePct != first.Changes[0].GapChangePct || rerun.Changes[0].GapChangePct != 100 {
		t.Errorf("rerun gap change %v, first %v, want 100", rerun.Changes[0].GapChangePct, first.Changes[0].GapChangePct)
	}
	if !rerun.Changes[0].HasAlert(domain.AlertGapIncreasing) {
		t.Errorf("rerun lost alerts: %v", rerun.Changes[0].Alerts)
	}

	infos, err := newOrchestrator(t, root, 3, "2024-01-15").Store().List()
	if err != nil || len(infos) != 2 {
		t.Fatalf("rerun must overwrite its own snapshot, got %v (%v)", infos, err)
	}
}

func TestRunCycleBackfillIgnoresNewerSnapshots(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	if _, err := newOrchestrator(t, root, 3, "2024-01-15").RunCycle(ctx, grownDataset()); err != nil {
		t.Fatalf("week 3: %v", err)
	}
	backfill, err := newOrchestrator(t, root, 2, "2024-01-08").RunCycle(ctx, baseDataset())
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if backfill.HasHistory || backfill.PreviousDate != "" {
		t.Fatalf("backfill should have no history, got %q", backfill.PreviousDate)
	}
}

func TestRunCycleNegativeQuantitiesStayUsable(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	ds := baseDataset()
	ds.Transactions = append(ds.Transactions, domain.Transaction{
		OrderNumber: "RT1", ProductKey: "R1", Category: "Returns", Quantity: -2, CustomerKey: "C9",
	})

	for _, run := range []struct {
		week int
		date string
	}{{2, "2024-01-08"}, {3, "2024-01-15"}} {
		report, err := newOrchestrator(t, root, run.week, run.date).RunCycle(ctx, ds)
		if err != nil {
			t.Fatalf("cycle %s: %v", run.date, err)
		}
		for _, c := range report.Changes {
			if c.Demand < 0 || c.GapScore <= 0 {
				t.Errorf("cycle %s: %s demand=%d gap=%v", run.date, c.Category, c.Demand, c.GapScore)
			}
			if c.Category == "Returns" && (c.GapScore != 1 || c.GapChangePct != 0) {
				t.Errorf("cycle %s: Returns gap=%v change=%v, want 1 and 0", run.date, c.GapScore, c.GapChangePct)
			}
		}
	}
}
