// Package source reads the catalog, transaction log and territory lookup into a Dataset.
package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/andresuchdata/gapwatch/internal/domain"
)

// Loader materializes one monitoring cycle's input.
type Loader interface {
	Load(ctx context.Context) (domain.Dataset, error)
}

// ErrMissingColumn is returned when a required header cannot be found.
var ErrMissingColumn = errors.New("missing required column")

// Accepted header spellings per field, compared after normalizeColumnName.
var (
	colProductKey   = []string{"ProductKey", "product_key", "sku"}
	colCategory     = []string{"CategoryName", "category", "Product Category"}
	colSubcategory  = []string{"SubcategoryName", "subcategory", "Product Subcategory"}
	colOrderNumber  = []string{"OrderNumber", "order_number", "order_id"}
	colQuantity     = []string{"OrderQuantity", "quantity", "qty"}
	colCustomerKey  = []string{"CustomerKey", "customer_key", "customer_id"}
	colOrderDate    = []string{"OrderDate", "order_date"}
	colTerritoryKey = []string{"TerritoryKey", "SalesTerritoryKey", "territory_key"}
	colRegion       = []string{"Region"}
	colCountry      = []string{"Country"}
)

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// table is a header row plus data rows, as read from a CSV file or a sheet.
type table struct {
	name   string
	header []string
	rows   [][]string
}

func (t table) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

func (t table) requireCol(names ...string) (int, error) {
	idx := t.colIndex(names...)
	if idx < 0 {
		return -1, fmt.Errorf("%s: %w %q", t.name, ErrMissingColumn, names[0])
	}
	return idx, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// isBlank reports rows exported as trailing empty lines by spreadsheets.
func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseProducts(t table) ([]domain.Product, error) {
	idxKey, err := t.requireCol(colProductKey...)
	if err != nil {
		return nil, err
	}
	idxCat, err := t.requireCol(colCategory...)
	if err != nil {
		return nil, err
	}
	idxSub := t.colIndex(colSubcategory...)

	out := make([]domain.Product, 0, len(t.rows))
	for _, r := range t.rows {
		if isBlank(r) {
			continue
		}
		out = append(out, domain.Product{
			ProductKey:  cell(r, idxKey),
			Category:    cell(r, idxCat),
			Subcategory: cell(r, idxSub),
		})
	}
	return out, nil
}

func parseTransactions(t table) ([]domain.Transaction, error) {
	idxOrder, err := t.requireCol(colOrderNumber...)
	if err != nil {
		return nil, err
	}
	idxProduct, err := t.requireCol(colProductKey...)
	if err != nil {
		return nil, err
	}
	idxQty, err := t.requireCol(colQuantity...)
	if err != nil {
		return nil, err
	}
	idxCustomer, err := t.requireCol(colCustomerKey...)
	if err != nil {
		return nil, err
	}
	idxCat := t.colIndex(colCategory...)
	idxSub := t.colIndex(colSubcategory...)
	idxDate := t.colIndex(colOrderDate...)
	idxTerritory := t.colIndex(colTerritoryKey...)

	out := make([]domain.Transaction, 0, len(t.rows))
	for i, r := range t.rows {
		if isBlank(r) {
			continue
		}
		qty, err := parseQuantity(cell(r, idxQty))
		if err != nil {
			// +2: header line and 1-based numbering
			return nil, fmt.Errorf("%s line %d: %w", t.name, i+2, err)
		}
		out = append(out, domain.Transaction{
			OrderNumber:  cell(r, idxOrder),
			ProductKey:   cell(r, idxProduct),
			Category:     cell(r, idxCat),
			Subcategory:  cell(r, idxSub),
			Quantity:     qty,
			CustomerKey:  cell(r, idxCustomer),
			OrderDate:    cell(r, idxDate),
			TerritoryKey: cell(r, idxTerritory),
		})
	}
	return out, nil
}

func parseTerritories(t table) ([]domain.Territory, error) {
	idxKey, err := t.requireCol(colTerritoryKey...)
	if err != nil {
		return nil, err
	}
	idxRegion, err := t.requireCol(colRegion...)
	if err != nil {
		return nil, err
	}
	idxCountry, err := t.requireCol(colCountry...)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Territory, 0, len(t.rows))
	for _, r := range t.rows {
		if isBlank(r) {
			continue
		}
		out = append(out, domain.Territory{
			TerritoryKey: cell(r, idxKey),
			Region:       cell(r, idxRegion),
			Country:      cell(r, idxCountry),
		})
	}
	return out, nil
}

// parseQuantity accepts integers and integral floats ("3.0" from spreadsheets).
func parseQuantity(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid quantity %q", v)
	}
	return int(f), nil
}
