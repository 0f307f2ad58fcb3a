package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresuchdata/gapwatch/internal/domain"
)

func sampleRecords() []domain.SnapshotRecord {
	return []domain.SnapshotRecord{
		{Category: "Helmets", Supply: 3, Demand: 420, GapScore: 105.25, GapStatus: domain.SeverityHigh},
		{Category: "Bikes", Supply: 9, Demand: 2500, GapScore: 250.1, GapStatus: domain.SeverityCritical},
		{Category: "Socks", Supply: 4, Demand: 60, GapScore: 12.2, GapStatus: domain.SeverityLow},
		{Category: "Gloves", Supply: 2, Demand: 170, GapScore: 57, GapStatus: domain.SeverityModerate},
	}
}

func TestBuildGapSummary(t *testing.T) {
	rows := BuildGapSummary(sampleRecords())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	wantOrder := []string{"Bikes", "Helmets", "Gloves", "Socks"}
	for i, cat := range wantOrder {
		if rows[i].Category != cat {
			t.Fatalf("row %d: expected %s, got %s", i, cat, rows[i].Category)
		}
	}
	// (420-3)/(3+1)*100
	if rows[1].GapPct != 10425 {
		t.Errorf("expected gap pct 10425, got %v", rows[1].GapPct)
	}
}

func TestWriteSummaryCSVAndJSON(t *testing.T) {
	dir := t.TempDir()
	rows := BuildGapSummary(sampleRecords())

	csvPath := filepath.Join(dir, "gap_summary.csv")
	if err := WriteSummaryCSV(rows, csvPath); err != nil {
		t.Fatalf("WriteSummaryCSV: %v", err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 lines, got %d", len(lines))
	}
	if strings.Join(lines[0], ",") != "category,supply,demand,gap_score,gap_status,gap_pct" {
		t.Errorf("unexpected header %v", lines[0])
	}
	if lines[1][0] != "Bikes" || lines[1][4] != "Critical Gap" {
		t.Errorf("unexpected first row %v", lines[1])
	}

	jsonPath := filepath.Join(dir, "empty.json")
	if err := WriteSummaryJSON(nil, jsonPath); err != nil {
		t.Fatalf("WriteSummaryJSON: %v", err)
	}
	raw, _ := os.ReadFile(jsonPath)
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Errorf("expected empty list, got %s", raw)
	}
}

func TestExporterWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, map[domain.Severity]string{domain.SeverityCritical: "#e74c3c"})

	path, fellBack, err := e.ExportRich(BuildGapSummary(sampleRecords()), "gap_summary")
	if err != nil {
		t.Fatalf("ExportRich: %v", err)
	}
	if fellBack {
		t.Fatal("did not expect fallback")
	}
	if filepath.Ext(path) != ".xlsx" {
		t.Errorf("expected xlsx path, got %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("workbook not written: %v", err)
	}
}

func TestExporterFallsBackToCSV(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, nil).WithRenderer(func([]domain.GapSummaryRow, string) error {
		return errors.New("renderer unavailable")
	})

	path, fellBack, err := e.ExportRich(BuildGapSummary(sampleRecords()), "gap_summary")
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if !fellBack {
		t.Fatal("expected fallback")
	}
	if filepath.Base(path) != "gap_summary_fallback.csv" {
		t.Errorf("unexpected fallback path %s", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "gap_summary.xlsx")); !os.IsNotExist(err) {
		t.Error("workbook should not exist after failed render")
	}
}

func TestBuildInsights(t *testing.T) {
	if _, ok := BuildInsights(nil, 5); ok {
		t.Fatal("empty table should produce no insights")
	}

	in, ok := BuildInsights(sampleRecords(), 2)
	if !ok {
		t.Fatal("expected insights")
	}
	if in.SupplyDemand != "Bikes: 2,500 demand vs 9 supply (ratio: 277.8:1)" {
		t.Errorf("supply/demand: %q", in.SupplyDemand)
	}
	if in.GapSeverity != "2/4 categories critical/high (50.0%). worst: Bikes (250.10)" {
		t.Errorf("severity: %q", in.GapSeverity)
	}
	if in.Heatmap != "best balanced: Socks (gap: 12.20)" {
		t.Errorf("heatmap: %q", in.Heatmap)
	}
	if in.Ranking != "top 2 gaps range from 105.25 to 250.10" {
		t.Errorf("ranking: %q", in.Ranking)
	}
}

func TestWriteInsights(t *testing.T) {
	dir := t.TempDir()
	kpis := domain.KPISummary{TotalCategories: 4, AvgGapScore: 106.14, CriticalCategories: 2, CriticalPct: 50}

	paths, err := WriteInsights(sampleRecords(), kpis, dir, 5)
	if err != nil {
		t.Fatalf("WriteInsights: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 artifacts, got %v", paths)
	}

	text, _ := os.ReadFile(filepath.Join(dir, InsightsTextFileName))
	if !strings.HasPrefix(string(text), strings.Repeat("=", 80)+"\nGAP ANALYSIS INSIGHTS\n") {
		t.Errorf("unexpected banner:\n%s", text)
	}
	if !strings.Contains(string(text), "- Expand supply for Bikes (gap score 250.10)") {
		t.Errorf("missing immediate recommendation:\n%s", text)
	}

	var summary ExecutiveSummary
	raw, _ := os.ReadFile(filepath.Join(dir, ExecutiveSummaryFileName))
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatal(err)
	}
	if len(summary.CriticalGaps) != 2 || summary.CriticalGaps[0].Category != "Bikes" {
		t.Errorf("critical gaps: %+v", summary.CriticalGaps)
	}
	if len(summary.BalancedCategories) != 1 || summary.BalancedCategories[0].Category != "Socks" {
		t.Errorf("balanced: %+v", summary.BalancedCategories)
	}

	paths, err = WriteInsights(nil, domain.KPISummary{}, t.TempDir(), 5)
	if err != nil || paths != nil {
		t.Errorf("empty table: paths=%v err=%v", paths, err)
	}
}

func TestWriteInsightsEmptyTableRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteInsights(sampleRecords(), domain.KPISummary{TotalCategories: 4}, dir, 5); err != nil {
		t.Fatalf("WriteInsights: %v", err)
	}

	paths, err := WriteInsights(nil, domain.KPISummary{}, dir, 5)
	if err != nil || paths != nil {
		t.Fatalf("empty table: paths=%v err=%v", paths, err)
	}
	for _, name := range []string{InsightsTextFileName, ExecutiveSummaryFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s from the earlier cycle should be gone, stat err=%v", name, err)
		}
	}
}
