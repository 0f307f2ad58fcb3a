package monitoring

import (
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/pkg/numfmt"
)

// MetricValue is an observed business metric.
type MetricValue struct {
	Name  string
	Value float64
}

// DatasetMetrics derives the business metrics the transaction log can support.
func DatasetMetrics(ds domain.Dataset) []MetricValue {
	orders := make(map[string]struct{})
	customers := make(map[string]struct{})
	for _, tx := range ds.Transactions {
		if tx.OrderNumber != "" {
			orders[tx.OrderNumber] = struct{}{}
		}
		if tx.CustomerKey != "" {
			customers[tx.CustomerKey] = struct{}{}
		}
	}

	var perCustomer float64
	if len(customers) > 0 {
		perCustomer = float64(len(orders)) / float64(len(customers))
	}

	return []MetricValue{
		{Name: "Total Orders", Value: float64(len(orders))},
		{Name: "Total Customers", Value: float64(len(customers))},
		{Name: "Orders per Customer", Value: numfmt.Round(perCustomer, 2)},
	}
}

// ComputeTargetGaps applies the uplift multipliers to each metric and returns the gaps
// plus the mean gap percentage. Metrics without a multiplier get a target equal to the
// actual value. A zero actual value yields a 0 gap percentage.
func ComputeTargetGaps(metrics []MetricValue, multipliers map[string]float64) ([]domain.TargetGap, float64) {
	out := make([]domain.TargetGap, 0, len(metrics))
	if len(metrics) == 0 {
		return out, 0
	}

	var sumPct float64
	for _, m := range metrics {
		mult, ok := multipliers[m.Name]
		if !ok {
			mult = 1
		}
		target := m.Value * mult
		gap := target - m.Value

		var pct float64
		if m.Value != 0 {
			pct = gap / m.Value * 100
		}
		sumPct += pct

		out = append(out, domain.TargetGap{
			Metric:      m.Name,
			ActualValue: m.Value,
			TargetValue: numfmt.Round(target, 2),
			Gap:         numfmt.Round(gap, 2),
			GapPct:      numfmt.Round(pct, 2),
		})
	}
	return out, numfmt.Round(sumPct/float64(len(metrics)), 2)
}
