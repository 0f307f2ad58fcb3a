package export

import "github.com/andresuchdata/gapwatch/internal/domain"

const KPIFileName = "kpis.json"

// KPIReport is the persisted KPI document of one cycle.
type KPIReport struct {
	Date             string             `json:"date"`
	Week             int                `json:"week"`
	Summary          domain.KPISummary  `json:"summary"`
	TargetGaps       []domain.TargetGap `json:"target_gaps"`
	OverallTargetPct float64            `json:"overall_target_gap_pct"`
}

func WriteKPIs(report KPIReport, path string) error {
	if report.TargetGaps == nil {
		report.TargetGaps = []domain.TargetGap{}
	}
	return WriteJSON(report, path)
}
