package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/rs/zerolog/log"
)

// CSVLoader reads one CSV file per input table. TerritoriesPath is optional.
type CSVLoader struct {
	ProductsPath     string
	TransactionsPath string
	TerritoriesPath  string
}

func (l CSVLoader) Load(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset

	products, err := readCSVTable(l.ProductsPath)
	if err != nil {
		return ds, err
	}
	if ds.Products, err = parseProducts(products); err != nil {
		return ds, err
	}

	if err := ctx.Err(); err != nil {
		return ds, err
	}

	sales, err := readCSVTable(l.TransactionsPath)
	if err != nil {
		return ds, err
	}
	if ds.Transactions, err = parseTransactions(sales); err != nil {
		return ds, err
	}

	if l.TerritoriesPath != "" {
		if _, statErr := os.Stat(l.TerritoriesPath); statErr == nil {
			territories, err := readCSVTable(l.TerritoriesPath)
			if err != nil {
				return ds, err
			}
			if ds.Territories, err = parseTerritories(territories); err != nil {
				return ds, err
			}
		} else {
			log.Warn().Str("path", l.TerritoriesPath).Msg("source: territory lookup not found, territory dimensions unavailable")
		}
	}

	log.Info().
		Int("products", len(ds.Products)).
		Int("transactions", len(ds.Transactions)).
		Int("territories", len(ds.Territories)).
		Msg("source: csv dataset loaded")
	return ds, nil
}

func readCSVTable(path string) (table, error) {
	file, err := os.Open(path)
	if err != nil {
		return table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return table{}, fmt.Errorf("%s: empty file", path)
	}
	return table{name: path, header: records[0], rows: records[1:]}, nil
}
