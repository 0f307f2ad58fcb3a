package gap_score

import (
	"sort"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/pkg/numfmt"
)

// Scorer derives gap scores and severities from aggregated supply and demand.
type Scorer struct {
	bands []config.SeverityBand
}

// NewScorer builds a scorer from the configured severity bands, falling back to the
// default bands when none are configured.
func NewScorer(cfg config.GapConfig) *Scorer {
	bands := append([]config.SeverityBand(nil), cfg.Bands...)
	if len(bands) == 0 {
		bands = config.DefaultGapConfig().Bands
	}
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Min < bands[j].Min })
	return &Scorer{bands: bands}
}

// GapScore returns (demand+1)/(supply+1) rounded to 2 decimals.
func GapScore(supply, demand int) float64 {
	return numfmt.Round(float64(demand+1)/float64(supply+1), 2)
}

// Classify maps a gap score onto its closed-open band. Scores below the lowest band
// fall into the lowest band.
func (s *Scorer) Classify(score float64) domain.Severity {
	for i := len(s.bands) - 1; i >= 0; i-- {
		if score >= s.bands[i].Min {
			return s.bands[i].Severity
		}
	}
	return s.bands[0].Severity
}

// Score computes gap score, severity and supplementary ratios for each row.
// The normalized score is left at zero; see Normalize.
func (s *Scorer) Score(rows []domain.MetricRow) []domain.GapRecord {
	out := make([]domain.GapRecord, 0, len(rows))
	for _, r := range rows {
		score := GapScore(r.UniqueSupply, r.TotalDemand)
		out = append(out, domain.GapRecord{
			MetricRow:             r,
			Category:              r.Key.Label(),
			GapScore:              score,
			Severity:              s.Classify(score),
			AvgQuantityPerProduct: numfmt.Round(float64(r.TotalDemand)/float64(r.UniqueSupply+1), 2),
			AvgQuantityPerOrder:   numfmt.Round(float64(r.TotalDemand)/float64(r.UniqueOrders+1), 2),
			CustomerOrderRatio:    numfmt.Round(float64(r.UniqueCustomers)/float64(r.UniqueOrders+1), 2),
		})
	}
	return out
}

// Normalize min-max scales gap scores over the given set, rounded to 4 decimals.
// Every row gets 0.0 when all scores are equal.
func Normalize(records []domain.GapRecord) []domain.GapRecord {
	out := append([]domain.GapRecord(nil), records...)
	if len(out) == 0 {
		return out
	}

	minScore, maxScore := out[0].GapScore, out[0].GapScore
	for _, r := range out[1:] {
		if r.GapScore < minScore {
			minScore = r.GapScore
		}
		if r.GapScore > maxScore {
			maxScore = r.GapScore
		}
	}

	spread := maxScore - minScore
	for i := range out {
		if spread > 0 {
			out[i].NormalizedGapScore = numfmt.Round((out[i].GapScore-minScore)/spread, 4)
		} else {
			out[i].NormalizedGapScore = 0
		}
	}
	return out
}

// Rank stable-sorts records by gap score (descending unless ascending is set) and
// assigns contiguous 1-based ranks. Ties keep their input order.
func Rank(records []domain.GapRecord, ascending bool) []domain.GapRecord {
	out := append([]domain.GapRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].GapScore < out[j].GapScore
		}
		return out[i].GapScore > out[j].GapScore
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
