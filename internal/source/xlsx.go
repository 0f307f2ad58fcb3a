package source

import (
	"context"
	"fmt"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// XLSXLoader reads all three tables from sheets of a single workbook.
type XLSXLoader struct {
	Path             string
	ProductsSheet    string
	SalesSheet       string
	TerritoriesSheet string
}

func (l XLSXLoader) Load(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset

	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return ds, fmt.Errorf("failed to open xlsx file %s: %w", l.Path, err)
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, s := range f.GetSheetList() {
		sheets[s] = true
	}

	products, err := readSheet(f, l.ProductsSheet)
	if err != nil {
		return ds, err
	}
	if ds.Products, err = parseProducts(products); err != nil {
		return ds, err
	}

	if err := ctx.Err(); err != nil {
		return ds, err
	}

	sales, err := readSheet(f, l.SalesSheet)
	if err != nil {
		return ds, err
	}
	if ds.Transactions, err = parseTransactions(sales); err != nil {
		return ds, err
	}

	if l.TerritoriesSheet != "" && sheets[l.TerritoriesSheet] {
		territories, err := readSheet(f, l.TerritoriesSheet)
		if err != nil {
			return ds, err
		}
		if ds.Territories, err = parseTerritories(territories); err != nil {
			return ds, err
		}
	}

	log.Info().
		Str("workbook", l.Path).
		Int("products", len(ds.Products)).
		Int("transactions", len(ds.Transactions)).
		Int("territories", len(ds.Territories)).
		Msg("source: xlsx dataset loaded")
	return ds, nil
}

func readSheet(f *excelize.File, sheet string) (table, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return table{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table{}, fmt.Errorf("sheet %s is empty", sheet)
	}
	return table{name: "sheet " + sheet, header: rows[0], rows: rows[1:]}, nil
}
