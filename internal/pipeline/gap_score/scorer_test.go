package gap_score

import (
	"math"
	"testing"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGapScore(t *testing.T) {
	tests := []struct {
		supply, demand int
		want           float64
	}{
		{0, 0, 1.0},
		{10, 990, 90.09},
		{0, 500, 501.0},
		{3, 1, 0.5},
	}
	for _, tt := range tests {
		got := GapScore(tt.supply, tt.demand)
		if !almostEqual(got, tt.want) {
			t.Errorf("GapScore(%d, %d) = %v, want %v", tt.supply, tt.demand, got, tt.want)
		}
		if got <= 0 {
			t.Errorf("GapScore(%d, %d) must be positive", tt.supply, tt.demand)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	s := NewScorer(config.DefaultGapConfig())
	tests := []struct {
		score float64
		want  domain.Severity
	}{
		{0, domain.SeverityLow},
		{49.99, domain.SeverityLow},
		{50, domain.SeverityModerate},
		{90.09, domain.SeverityModerate},
		{99.99, domain.SeverityModerate},
		{100, domain.SeverityHigh},
		{199.99, domain.SeverityHigh},
		{200, domain.SeverityCritical},
		{501, domain.SeverityCritical},
	}
	for _, tt := range tests {
		if got := s.Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestClassifyCustomBands(t *testing.T) {
	s := NewScorer(config.GapConfig{Bands: []config.SeverityBand{
		{Min: 10, Severity: domain.SeverityCritical},
		{Min: 0, Severity: domain.SeverityLow},
	}})
	if got := s.Classify(9.99); got != domain.SeverityLow {
		t.Fatalf("Classify(9.99) = %q", got)
	}
	if got := s.Classify(10); got != domain.SeverityCritical {
		t.Fatalf("Classify(10) = %q", got)
	}
}

func TestScoreSupplementaryRatios(t *testing.T) {
	s := NewScorer(config.DefaultGapConfig())
	recs := s.Score([]domain.MetricRow{{
		Key:             domain.DimensionKey{"Bikes"},
		UniqueSupply:    10,
		TotalDemand:     990,
		UniqueOrders:    400,
		UniqueCustomers: 300,
	}})
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.Category != "Bikes" || !almostEqual(r.GapScore, 90.09) || r.Severity != domain.SeverityModerate {
		t.Fatalf("unexpected record: %+v", r)
	}
	if !almostEqual(r.AvgQuantityPerProduct, 90.0) {
		t.Errorf("AvgQuantityPerProduct = %v", r.AvgQuantityPerProduct)
	}
	if !almostEqual(r.AvgQuantityPerOrder, 2.47) {
		t.Errorf("AvgQuantityPerOrder = %v", r.AvgQuantityPerOrder)
	}
	if !almostEqual(r.CustomerOrderRatio, 0.75) {
		t.Errorf("CustomerOrderRatio = %v", r.CustomerOrderRatio)
	}
}

func records(scores ...float64) []domain.GapRecord {
	out := make([]domain.GapRecord, len(scores))
	for i, s := range scores {
		out[i] = domain.GapRecord{Category: string(rune('A' + i)), GapScore: s}
	}
	return out
}

func TestNormalize(t *testing.T) {
	got := Normalize(records(1, 3, 5, 2))
	want := []float64{0, 0.5, 1, 0.25}
	for i, r := range got {
		if !almostEqual(r.NormalizedGapScore, want[i]) {
			t.Errorf("row %d normalized = %v, want %v", i, r.NormalizedGapScore, want[i])
		}
		if r.NormalizedGapScore < 0 || r.NormalizedGapScore > 1 {
			t.Errorf("row %d out of range: %v", i, r.NormalizedGapScore)
		}
	}
}

func TestNormalizeEqualScores(t *testing.T) {
	for _, set := range [][]domain.GapRecord{records(4.2), records(7, 7, 7)} {
		for _, r := range Normalize(set) {
			if r.NormalizedGapScore != 0 {
				t.Fatalf("expected 0 for identical scores, got %v", r.NormalizedGapScore)
			}
		}
	}
	if got := Normalize(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestRankStableAndIdempotent(t *testing.T) {
	in := records(2, 5, 2, 9)
	ranked := Rank(in, false)

	wantOrder := []string{"D", "B", "A", "C"}
	for i, r := range ranked {
		if r.Category != wantOrder[i] || r.Rank != i+1 {
			t.Fatalf("position %d = %s rank %d, want %s rank %d", i, r.Category, r.Rank, wantOrder[i], i+1)
		}
	}

	again := Rank(ranked, false)
	for i := range again {
		if again[i].Category != ranked[i].Category || again[i].Rank != ranked[i].Rank {
			t.Fatalf("ranking not idempotent at %d", i)
		}
	}

	asc := Rank(in, true)
	if asc[0].Category != "A" || asc[1].Category != "C" || asc[3].Category != "D" {
		t.Fatalf("unexpected ascending order: %+v", asc)
	}

	if got := Rank(nil, false); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %+v", got)
	}
}
