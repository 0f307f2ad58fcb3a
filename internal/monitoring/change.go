package monitoring

import (
	"math"
	"sort"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/pkg/numfmt"
)

// alertRule raises an alert when match holds for a record.
type alertRule struct {
	alert domain.Alert
	match func(r domain.ChangeRecord) bool
}

// priorityRule assigns priority when any of the listed alerts is present.
type priorityRule struct {
	priority domain.Priority
	anyOf    []domain.Alert
}

// Analyzer compares a cycle against the previous snapshot and flags categories.
type Analyzer struct {
	alerts     []alertRule
	priorities []priorityRule
}

// NewAnalyzer builds the alert and priority rule tables from thresholds.
func NewAnalyzer(cfg config.MonitorConfig) *Analyzer {
	return &Analyzer{
		alerts: []alertRule{
			{domain.AlertCritical, func(r domain.ChangeRecord) bool { return r.GapScore > cfg.CriticalAlertScore }},
			{domain.AlertGapIncreasing, func(r domain.ChangeRecord) bool { return r.GapChangePct > cfg.GapIncreasePct }},
			{domain.AlertGapImproving, func(r domain.ChangeRecord) bool { return r.GapChangePct < cfg.GapImprovePct }},
			{domain.AlertSupplyDrop, func(r domain.ChangeRecord) bool { return r.SupplyChangePct < cfg.SupplyDropPct }},
			{domain.AlertDemandSpike, func(r domain.ChangeRecord) bool { return r.DemandChangePct > cfg.DemandSpikePct }},
		},
		// first match wins
		priorities: []priorityRule{
			{domain.PriorityHigh, []domain.Alert{domain.AlertCritical, domain.AlertGapIncreasing}},
			{domain.PriorityMedium, []domain.Alert{domain.AlertSupplyDrop, domain.AlertDemandSpike}},
			{domain.PriorityLow, []domain.Alert{domain.AlertGapImproving}},
		},
	}
}

// ChangePct returns (current-previous)/(previous+1)*100 rounded to 2 decimals.
// A previous value of -1 or below has no meaningful base and yields 0.
func ChangePct(current, previous float64) float64 {
	base := previous + 1
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return 0
	}
	return numfmt.Round((current-previous)/base*100, 2)
}

// ComputeChange joins the current records to the previous snapshot by category.
// Without a previous snapshot every change is 0. A category missing from the previous
// snapshot keeps nil previous values and 0 changes.
func ComputeChange(current []domain.SnapshotRecord, previous *domain.Snapshot) []domain.ChangeRecord {
	var prevByCategory map[string]domain.SnapshotRecord
	if previous != nil {
		prevByCategory = make(map[string]domain.SnapshotRecord, len(previous.Records))
		for _, r := range previous.Records {
			prevByCategory[r.Category] = r
		}
	}

	out := make([]domain.ChangeRecord, 0, len(current))
	for _, cur := range current {
		rec := domain.ChangeRecord{SnapshotRecord: cur, Alerts: []domain.Alert{}}
		if prev, ok := prevByCategory[cur.Category]; ok {
			prevScore, prevSupply, prevDemand := prev.GapScore, prev.Supply, prev.Demand
			rec.PreviousGapScore = &prevScore
			rec.PreviousSupply = &prevSupply
			rec.PreviousDemand = &prevDemand
			rec.GapChangePct = ChangePct(cur.GapScore, prevScore)
			rec.SupplyChangePct = ChangePct(float64(cur.Supply), float64(prevSupply))
			rec.DemandChangePct = ChangePct(float64(cur.Demand), float64(prevDemand))
		}
		out = append(out, rec)
	}
	return out
}

// Flag evaluates every alert rule independently, resolves priority and sorts by gap
// score descending.
func (a *Analyzer) Flag(records []domain.ChangeRecord) []domain.ChangeRecord {
	out := append([]domain.ChangeRecord(nil), records...)
	for i := range out {
		alerts := make([]domain.Alert, 0, len(a.alerts))
		for _, rule := range a.alerts {
			if rule.match(out[i]) {
				alerts = append(alerts, rule.alert)
			}
		}
		out[i].Alerts = alerts
		out[i].Priority = a.resolvePriority(out[i])
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].GapScore > out[j].GapScore })
	return out
}

// Analyze runs ComputeChange followed by Flag.
func (a *Analyzer) Analyze(current []domain.SnapshotRecord, previous *domain.Snapshot) []domain.ChangeRecord {
	return a.Flag(ComputeChange(current, previous))
}

func (a *Analyzer) resolvePriority(r domain.ChangeRecord) domain.Priority {
	for _, rule := range a.priorities {
		for _, alert := range rule.anyOf {
			if r.HasAlert(alert) {
				return rule.priority
			}
		}
	}
	return domain.PriorityNormal
}

// NeedingAttention returns the records whose priority is not Normal, preserving order.
func NeedingAttention(records []domain.ChangeRecord) []domain.ChangeRecord {
	out := make([]domain.ChangeRecord, 0, len(records))
	for _, r := range records {
		if r.Priority != domain.PriorityNormal {
			out = append(out, r)
		}
	}
	return out
}
