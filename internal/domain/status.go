package domain

import "strings"

// Severity is the persisted gap status label of a gap score band.
type Severity string

const (
	SeverityLow      Severity = "Low Gap"
	SeverityModerate Severity = "Moderate Gap"
	SeverityHigh     Severity = "High Gap"
	SeverityCritical Severity = "Critical Gap"
)

var severityCodes = map[string]Severity{
	"low":          SeverityLow,
	"low gap":      SeverityLow,
	"moderate":     SeverityModerate,
	"moderate gap": SeverityModerate,
	"high":         SeverityHigh,
	"high gap":     SeverityHigh,
	"critical":     SeverityCritical,
	"critical gap": SeverityCritical,
}

// Level returns the short band name (Low, Moderate, High, Critical).
func (s Severity) Level() string {
	return strings.TrimSuffix(string(s), " Gap")
}

// IsSevere reports whether the band counts toward critical KPIs.
func (s Severity) IsSevere() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// ParseSeverity returns the severity for a label (case-insensitive, with or without the "Gap" suffix).
func ParseSeverity(label string) (Severity, bool) {
	s, ok := severityCodes[strings.ToLower(strings.TrimSpace(label))]

	return s, ok
}

// Alert is a change flag raised for a category.
type Alert string

const (
	AlertCritical      Alert = "Critical Alert"
	AlertGapIncreasing Alert = "Gap Increasing"
	AlertGapImproving  Alert = "Gap Improving"
	AlertSupplyDrop    Alert = "Supply Drop"
	AlertDemandSpike   Alert = "Demand Spike"
	alertsNoneLabel          = "None"
	alertsSeparator          = "; "
)

// AlertsText joins alerts the way reports print them.
func AlertsText(alerts []Alert) string {
	if len(alerts) == 0 {
		return alertsNoneLabel
	}
	parts := make([]string, len(alerts))
	for i, a := range alerts {
		parts[i] = string(a)
	}
	return strings.Join(parts, alertsSeparator)
}

// Priority ranks how urgently a category needs attention.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
)
