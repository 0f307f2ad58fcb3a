package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/pkg/numfmt"
)

const (
	InsightsTextFileName       = "gap_insights.txt"
	ExecutiveSummaryFileName   = "executive_summary.json"
	ruleWidth                  = 80
	defaultTopN                = 5
	executiveSummaryListLength = 3
)

// Insights holds the one-line observations per view of the gap table.
type Insights struct {
	SupplyDemand string `json:"supply_demand"`
	GapSeverity  string `json:"gap_severity"`
	Heatmap      string `json:"heatmap"`
	Ranking      string `json:"ranking"`
}

// CategoryHighlight names one category and its score in the executive summary.
type CategoryHighlight struct {
	Category string          `json:"category"`
	GapScore float64         `json:"gap_score"`
	Status   domain.Severity `json:"gap_status"`
}

type OverallMetrics struct {
	TotalCategories    int     `json:"total_categories"`
	AvgGapScore        float64 `json:"avg_gap_score"`
	CriticalCategories int     `json:"critical_categories"`
	TotalSupply        int     `json:"total_supply"`
	TotalDemand        int     `json:"total_demand"`
}

type Recommendations struct {
	Immediate  []string `json:"immediate"`
	MediumTerm []string `json:"medium_term"`
	Strategic  []string `json:"strategic"`
}

// ExecutiveSummary is the condensed report handed to stakeholders.
type ExecutiveSummary struct {
	CriticalGaps       []CategoryHighlight `json:"critical_gaps"`
	BalancedCategories []CategoryHighlight `json:"balanced_categories"`
	OverallMetrics     OverallMetrics      `json:"overall_metrics"`
	Recommendations    Recommendations     `json:"recommendations"`
}

// BuildInsights derives one observation per view. ok is false for an empty table.
func BuildInsights(records []domain.SnapshotRecord, topN int) (Insights, bool) {
	if len(records) == 0 {
		return Insights{}, false
	}
	if topN <= 0 {
		topN = defaultTopN
	}

	byScore := sortedByScore(records)
	worst := byScore[0]
	best := byScore[len(byScore)-1]

	severe := 0
	for _, r := range records {
		if r.GapStatus.IsSevere() {
			severe++
		}
	}

	top := byScore
	if len(top) > topN {
		top = top[:topN]
	}
	lowTop, highTop := top[len(top)-1].GapScore, top[0].GapScore

	return Insights{
		SupplyDemand: fmt.Sprintf("%s: %s demand vs %s supply (ratio: %.1f:1)",
			worst.Category, numfmt.Thousands(worst.Demand), numfmt.Thousands(worst.Supply),
			float64(worst.Demand)/float64(max(worst.Supply, 1))),
		GapSeverity: fmt.Sprintf("%d/%d categories critical/high (%.1f%%). worst: %s (%.2f)",
			severe, len(records), float64(severe)/float64(len(records))*100, worst.Category, worst.GapScore),
		Heatmap: fmt.Sprintf("best balanced: %s (gap: %.2f)", best.Category, best.GapScore),
		Ranking: fmt.Sprintf("top %d gaps range from %.2f to %.2f", len(top), lowTop, highTop),
	}, true
}

// BuildExecutiveSummary condenses the gap table and KPIs into the stakeholder report.
func BuildExecutiveSummary(records []domain.SnapshotRecord, kpis domain.KPISummary) ExecutiveSummary {
	byScore := sortedByScore(records)

	summary := ExecutiveSummary{
		CriticalGaps:       []CategoryHighlight{},
		BalancedCategories: []CategoryHighlight{},
		OverallMetrics: OverallMetrics{
			TotalCategories:    kpis.TotalCategories,
			AvgGapScore:        kpis.AvgGapScore,
			CriticalCategories: kpis.CriticalCategories,
			TotalSupply:        kpis.TotalSupply,
			TotalDemand:        kpis.TotalDemand,
		},
	}

	for _, r := range byScore {
		if r.GapStatus.IsSevere() && len(summary.CriticalGaps) < executiveSummaryListLength {
			summary.CriticalGaps = append(summary.CriticalGaps, highlight(r))
		}
	}
	for i := len(byScore) - 1; i >= 0 && len(summary.BalancedCategories) < executiveSummaryListLength; i-- {
		if byScore[i].GapStatus == domain.SeverityLow {
			summary.BalancedCategories = append(summary.BalancedCategories, highlight(byScore[i]))
		}
	}

	rec := Recommendations{Immediate: []string{}, MediumTerm: []string{}, Strategic: []string{}}
	for _, c := range summary.CriticalGaps {
		rec.Immediate = append(rec.Immediate, fmt.Sprintf("Expand supply for %s (gap score %.2f)", c.Category, c.GapScore))
	}
	if kpis.CriticalPct > 0 {
		rec.MediumTerm = append(rec.MediumTerm,
			fmt.Sprintf("Reduce the share of critical/high categories from %.1f%%", kpis.CriticalPct))
	}
	for _, b := range summary.BalancedCategories {
		rec.MediumTerm = append(rec.MediumTerm, fmt.Sprintf("Use %s as the sourcing benchmark", b.Category))
	}
	rec.Strategic = append(rec.Strategic,
		"Review supplier coverage quarterly against demand growth",
		"Track weekly gap snapshots to confirm trends before reallocating budget",
	)
	summary.Recommendations = rec
	return summary
}

// RenderInsightsText formats insights and the executive summary as a plain text report.
func RenderInsightsText(in Insights, summary ExecutiveSummary) string {
	var b strings.Builder
	banner := strings.Repeat("=", ruleWidth)
	rule := strings.Repeat("-", ruleWidth)

	b.WriteString(banner + "\nGAP ANALYSIS INSIGHTS\n" + banner + "\n\n")

	section := func(title string, lines ...string) {
		b.WriteString(strings.ToUpper(title) + "\n" + rule + "\n")
		for _, l := range lines {
			b.WriteString(l + "\n")
		}
		b.WriteString("\n")
	}

	section("Supply vs demand", in.SupplyDemand)
	section("Gap severity", in.GapSeverity)
	section("Balance", in.Heatmap)
	section("Ranking", in.Ranking)

	m := summary.OverallMetrics
	section("Overall metrics",
		fmt.Sprintf("Categories: %d", m.TotalCategories),
		fmt.Sprintf("Average gap score: %.2f", m.AvgGapScore),
		fmt.Sprintf("Critical/high categories: %d", m.CriticalCategories),
		fmt.Sprintf("Total supply: %s", numfmt.Thousands(m.TotalSupply)),
		fmt.Sprintf("Total demand: %s", numfmt.Thousands(m.TotalDemand)),
	)

	section("Recommendations", bulletList(summary.Recommendations.Immediate, summary.Recommendations.MediumTerm, summary.Recommendations.Strategic)...)
	return b.String()
}

// WriteInsights writes gap_insights.txt and executive_summary.json into dir. For an empty
// table nothing is written and files left by an earlier cycle are removed.
func WriteInsights(records []domain.SnapshotRecord, kpis domain.KPISummary, dir string, topN int) ([]string, error) {
	in, ok := BuildInsights(records, topN)
	if !ok {
		return nil, removeStale(dir, InsightsTextFileName, ExecutiveSummaryFileName)
	}
	summary := BuildExecutiveSummary(records, kpis)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	textPath := filepath.Join(dir, InsightsTextFileName)
	if err := os.WriteFile(textPath, []byte(RenderInsightsText(in, summary)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write insights: %w", err)
	}
	jsonPath := filepath.Join(dir, ExecutiveSummaryFileName)
	if err := WriteJSON(summary, jsonPath); err != nil {
		return []string{textPath}, err
	}
	return []string{textPath, jsonPath}, nil
}

func removeStale(dir string, names ...string) error {
	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale %s: %w", name, err)
		}
	}
	return nil
}

func sortedByScore(records []domain.SnapshotRecord) []domain.SnapshotRecord {
	out := make([]domain.SnapshotRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].GapScore > out[j].GapScore })
	return out
}

func highlight(r domain.SnapshotRecord) CategoryHighlight {
	return CategoryHighlight{Category: r.Category, GapScore: r.GapScore, Status: r.GapStatus}
}

func bulletList(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		for _, s := range g {
			out = append(out, "- "+s)
		}
	}
	return out
}
