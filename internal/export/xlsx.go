package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Gap Summary"

// RenderFunc renders the summary table into path.
type RenderFunc func(rows []domain.GapSummaryRow, path string) error

// Exporter writes the rich summary workbook, falling back to CSV when rendering fails.
type Exporter struct {
	dir    string
	colors map[domain.Severity]string
	render RenderFunc
}

// NewExporter creates an exporter writing into dir; colors fill the status column.
func NewExporter(dir string, colors map[domain.Severity]string) *Exporter {
	e := &Exporter{dir: dir, colors: colors}
	e.render = e.writeXLSX
	return e
}

// WithRenderer replaces the rich renderer.
func (e *Exporter) WithRenderer(r RenderFunc) *Exporter {
	if r != nil {
		e.render = r
	}
	return e
}

// ExportRich writes <base>.xlsx. On renderer failure it logs a warning, writes
// <base>_fallback.csv instead and reports fellBack; only a failing fallback is an error.
func (e *Exporter) ExportRich(rows []domain.GapSummaryRow, base string) (path string, fellBack bool, err error) {
	path = filepath.Join(e.dir, base+".xlsx")
	renderErr := e.render(rows, path)
	if renderErr == nil {
		return path, false, nil
	}

	log.Warn().Err(renderErr).Str("path", path).Msg("export: workbook rendering failed, falling back to csv")
	fallback := filepath.Join(e.dir, base+"_fallback.csv")
	if err := WriteSummaryCSV(rows, fallback); err != nil {
		return "", true, fmt.Errorf("fallback export failed after %v: %w", renderErr, err)
	}
	return fallback, true, nil
}

func (e *Exporter) writeXLSX(rows []domain.GapSummaryRow, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}

	header := make([]interface{}, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}

	styles := make(map[domain.Severity]int, len(e.colors))
	for status, color := range e.colors {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(color, "#")}},
		})
		if err != nil {
			return fmt.Errorf("style for %s: %w", status, err)
		}
		styles[status] = id
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.Category, r.Supply, r.Demand, r.GapScore, string(r.GapStatus), r.GapPct}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
		if id, ok := styles[r.GapStatus]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(5, i+2)
			if err := f.SetCellStyle(summarySheet, statusCell, statusCell, id); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 36); err != nil {
		return err
	}
	return f.SaveAs(path)
}
