package gap_score

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andresuchdata/gapwatch/internal/domain"
)

// writeMetricRowsCSV writes the merged supply/demand layer with one column per key field.
func writeMetricRowsCSV(path string, dim domain.Dimension, rows []domain.MetricRow) error {
	header := append(append([]string(nil), dim.Fields...),
		"unique_supply", "total_demand", "unique_orders", "unique_customers")

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		record := append([]string(nil), r.Key...)
		record = append(record,
			strconv.Itoa(r.UniqueSupply),
			strconv.Itoa(r.TotalDemand),
			strconv.Itoa(r.UniqueOrders),
			strconv.Itoa(r.UniqueCustomers),
		)
		records = append(records, record)
	}
	return writeCSV(path, header, records)
}

// WriteGapRecordsCSV writes a ranked gap table with one column per key field.
func WriteGapRecordsCSV(path string, dim domain.Dimension, rows []domain.GapRecord) error {
	header := append([]string{"rank"}, dim.Fields...)
	header = append(header,
		"unique_supply", "total_demand", "unique_orders", "unique_customers",
		"gap_score", "normalized_gap_score", "gap_status",
		"avg_quantity_per_product", "avg_quantity_per_order", "customer_order_ratio",
	)

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		record := []string{strconv.Itoa(r.Rank)}
		record = append(record, r.Key...)
		record = append(record,
			strconv.Itoa(r.UniqueSupply),
			strconv.Itoa(r.TotalDemand),
			strconv.Itoa(r.UniqueOrders),
			strconv.Itoa(r.UniqueCustomers),
			formatFloat(r.GapScore),
			formatFloat(r.NormalizedGapScore),
			string(r.Severity),
			formatFloat(r.AvgQuantityPerProduct),
			formatFloat(r.AvgQuantityPerOrder),
			formatFloat(r.CustomerOrderRatio),
		)
		records = append(records, record)
	}
	return writeCSV(path, header, records)
}

func writeCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
