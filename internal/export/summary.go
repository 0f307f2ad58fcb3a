package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/pkg/numfmt"
)

var summaryHeader = []string{"category", "supply", "demand", "gap_score", "gap_status", "gap_pct"}

// BuildGapSummary projects snapshot records onto the summary table, sorted by gap
// score descending.
func BuildGapSummary(records []domain.SnapshotRecord) []domain.GapSummaryRow {
	rows := make([]domain.GapSummaryRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, domain.GapSummaryRow{
			Category:  r.Category,
			Supply:    r.Supply,
			Demand:    r.Demand,
			GapScore:  numfmt.Round(r.GapScore, 2),
			GapStatus: r.GapStatus,
			GapPct:    numfmt.Round(float64(r.Demand-r.Supply)/float64(r.Supply+1)*100, 2),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].GapScore > rows[j].GapScore })
	return rows
}

// WriteSummaryCSV writes the summary table as CSV.
func WriteSummaryCSV(rows []domain.GapSummaryRow, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(summaryRecord(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(v interface{}, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteSummaryJSON writes the summary table as a JSON list. An empty table is written as [].
func WriteSummaryJSON(rows []domain.GapSummaryRow, path string) error {
	if rows == nil {
		rows = []domain.GapSummaryRow{}
	}
	return WriteJSON(rows, path)
}

func summaryRecord(r domain.GapSummaryRow) []string {
	return []string{
		r.Category,
		strconv.Itoa(r.Supply),
		strconv.Itoa(r.Demand),
		strconv.FormatFloat(r.GapScore, 'f', -1, 64),
		string(r.GapStatus),
		strconv.FormatFloat(r.GapPct, 'f', -1, 64),
	}
}
