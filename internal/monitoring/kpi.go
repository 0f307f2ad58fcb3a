package monitoring

import (
	"sort"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/pkg/numfmt"
)

// ComputeKPIs summarizes a gap table. An empty table yields a zero summary.
func ComputeKPIs(records []domain.SnapshotRecord) domain.KPISummary {
	kpis := domain.KPISummary{TotalCategories: len(records)}
	if len(records) == 0 {
		return kpis
	}

	scores := make([]float64, 0, len(records))
	var sum float64
	maxIdx := 0
	for i, r := range records {
		scores = append(scores, r.GapScore)
		sum += r.GapScore
		if r.GapScore > records[maxIdx].GapScore {
			maxIdx = i
		}
		if r.GapStatus.IsSevere() {
			kpis.CriticalCategories++
		}
		kpis.TotalSupply += r.Supply
		kpis.TotalDemand += r.Demand
	}

	kpis.AvgGapScore = numfmt.Round(sum/float64(len(records)), 2)
	kpis.MedianGapScore = numfmt.Round(median(scores), 2)
	kpis.MaxGapScore = numfmt.Round(records[maxIdx].GapScore, 2)
	kpis.MaxGapCategory = records[maxIdx].Category
	kpis.CriticalPct = numfmt.Round(float64(kpis.CriticalCategories)/float64(len(records))*100, 1)
	return kpis
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
