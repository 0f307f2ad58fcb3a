package drive

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// splitWorkbook writes each sheet listed in sheets (sheet name -> csv file name) that
// exists in the workbook as CSV into dir. Missing sheets are skipped.
func splitWorkbook(xlsxPath, dir string, sheets map[string]string) ([]string, error) {
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", xlsxPath, err)
	}
	defer f.Close()

	var written []string
	for _, sheet := range f.GetSheetList() {
		name, ok := sheets[sheet]
		if !ok {
			continue
		}
		csvPath := filepath.Join(dir, name)
		if err := sheetToCSV(f, sheet, csvPath); err != nil {
			return written, err
		}
		written = append(written, csvPath)
	}
	return written, nil
}

// sheetToCSV streams one sheet into a CSV file.
func sheetToCSV(f *excelize.File, sheet, csvPath string) error {
	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create csv file %s: %w", csvPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row from %s: %w", sheet, err)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row to %s: %w", csvPath, err)
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("error iterating rows in %s: %w", sheet, err)
	}

	w.Flush()
	return w.Error()
}
