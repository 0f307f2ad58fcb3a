package gap_score

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/gapwatch/internal/domain"
)

// ErrUnknownDimension is returned when a dimension names a field no input table carries.
var ErrUnknownDimension = errors.New("unknown dimension field")

const keySeparator = "\x1f"

// catalogFields are the dimension fields a product listing can be grouped on.
var catalogFields = map[string]bool{
	domain.FieldCategory:    true,
	domain.FieldSubcategory: true,
}

var knownFields = map[string]bool{
	domain.FieldRegion:      true,
	domain.FieldCountry:     true,
	domain.FieldCategory:    true,
	domain.FieldSubcategory: true,
}

// Aggregate groups the catalog and the transaction log by the dimension's key tuple and
// returns one MetricRow per distinct key, sorted by key.
//
// Supply is counted on the catalog fields of the dimension only; when the dimension also
// carries territory fields, each supply row is reused for every territory row that shares
// its catalog key. Rows with an empty key value are not grouped.
func Aggregate(ds domain.Dataset, dim domain.Dimension) ([]domain.MetricRow, error) {
	if len(dim.Fields) == 0 {
		return nil, fmt.Errorf("dimension %q has no fields: %w", dim.Name, ErrUnknownDimension)
	}
	for _, f := range dim.Fields {
		if !knownFields[f] {
			return nil, fmt.Errorf("dimension %q field %q: %w", dim.Name, f, ErrUnknownDimension)
		}
	}

	// 1) Positions of the catalog fields inside the full key
	supplyPos := make([]int, 0, len(dim.Fields))
	for i, f := range dim.Fields {
		if catalogFields[f] {
			supplyPos = append(supplyPos, i)
		}
	}

	// 2) Supply: distinct product keys per catalog key
	supply := computeSupply(ds.Products, dim, supplyPos)

	// 3) Demand: order lines per full key, joined to territories when needed
	demand := computeDemand(ds, dim)

	// 4) Outer merge on the catalog fields, missing counts filled with 0
	return mergeSupplyDemand(supply, demand, dim, supplyPos), nil
}

func computeSupply(products []domain.Product, dim domain.Dimension, supplyPos []int) map[string]*supplyAgg {
	out := make(map[string]*supplyAgg)
	for _, p := range products {
		if strings.TrimSpace(p.ProductKey) == "" {
			continue
		}
		key := make(domain.DimensionKey, 0, len(supplyPos))
		for _, pos := range supplyPos {
			key = append(key, productField(p, dim.Fields[pos]))
		}
		if hasEmpty(key) {
			continue
		}
		id := joinKey(key)
		agg, ok := out[id]
		if !ok {
			agg = &supplyAgg{key: key, products: make(map[string]struct{})}
			out[id] = agg
		}
		agg.products[p.ProductKey] = struct{}{}
	}
	return out
}

func computeDemand(ds domain.Dataset, dim domain.Dimension) map[string]*demandAgg {
	var territories map[string]domain.Territory
	if dim.UsesTerritory() {
		territories = make(map[string]domain.Territory, len(ds.Territories))
		for _, t := range ds.Territories {
			territories[strings.TrimSpace(t.TerritoryKey)] = t
		}
	}

	catalog := make(map[string]domain.Product, len(ds.Products))
	for _, p := range ds.Products {
		catalog[p.ProductKey] = p
	}

	out := make(map[string]*demandAgg)
	for _, tx := range ds.Transactions {
		tx = resolveCategory(tx, catalog)

		var territory domain.Territory
		if territories != nil {
			t, ok := territories[strings.TrimSpace(tx.TerritoryKey)]
			if !ok {
				// left join: unmatched territory contributes nothing
				continue
			}
			territory = t
		}

		key := make(domain.DimensionKey, len(dim.Fields))
		for i, f := range dim.Fields {
			key[i] = transactionField(tx, territory, f)
		}
		if hasEmpty(key) {
			continue
		}

		id := joinKey(key)
		agg, ok := out[id]
		if !ok {
			agg = &demandAgg{
				key:       key,
				orders:    make(map[string]struct{}),
				customers: make(map[string]struct{}),
			}
			out[id] = agg
		}
		agg.quantity += tx.Quantity
		if tx.OrderNumber != "" {
			agg.orders[tx.OrderNumber] = struct{}{}
		}
		if tx.CustomerKey != "" {
			agg.customers[tx.CustomerKey] = struct{}{}
		}
	}
	return out
}

func mergeSupplyDemand(supply map[string]*supplyAgg, demand map[string]*demandAgg, dim domain.Dimension, supplyPos []int) []domain.MetricRow {
	rows := make([]domain.MetricRow, 0, len(demand)+len(supply))
	matched := make(map[string]bool, len(supply))

	for _, d := range demand {
		sk := make(domain.DimensionKey, len(supplyPos))
		for i, pos := range supplyPos {
			sk[i] = d.key[pos]
		}
		sid := joinKey(sk)

		// returns may outweigh sales for a key; demand is a count and stays >= 0
		row := domain.MetricRow{
			Key:             d.key,
			TotalDemand:     max(d.quantity, 0),
			UniqueOrders:    len(d.orders),
			UniqueCustomers: len(d.customers),
		}
		if s, ok := supply[sid]; ok {
			row.UniqueSupply = len(s.products)
			matched[sid] = true
		}
		rows = append(rows, row)
	}

	for sid, s := range supply {
		if matched[sid] {
			continue
		}
		key := make(domain.DimensionKey, len(dim.Fields))
		for i, pos := range supplyPos {
			key[pos] = s.key[i]
		}
		rows = append(rows, domain.MetricRow{Key: key, UniqueSupply: len(s.products)})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key.Less(rows[j].Key) })
	return rows
}

// resolveCategory fills a missing category/subcategory from the product catalog.
func resolveCategory(tx domain.Transaction, catalog map[string]domain.Product) domain.Transaction {
	if tx.Category != "" && tx.Subcategory != "" {
		return tx
	}
	p, ok := catalog[tx.ProductKey]
	if !ok {
		return tx
	}
	if tx.Category == "" {
		tx.Category = p.Category
	}
	if tx.Subcategory == "" {
		tx.Subcategory = p.Subcategory
	}
	return tx
}

func productField(p domain.Product, field string) string {
	switch field {
	case domain.FieldCategory:
		return strings.TrimSpace(p.Category)
	case domain.FieldSubcategory:
		return strings.TrimSpace(p.Subcategory)
	}
	return ""
}

func transactionField(tx domain.Transaction, t domain.Territory, field string) string {
	switch field {
	case domain.FieldRegion:
		return strings.TrimSpace(t.Region)
	case domain.FieldCountry:
		return strings.TrimSpace(t.Country)
	case domain.FieldCategory:
		return strings.TrimSpace(tx.Category)
	case domain.FieldSubcategory:
		return strings.TrimSpace(tx.Subcategory)
	}
	return ""
}

func hasEmpty(key domain.DimensionKey) bool {
	for _, v := range key {
		if v == "" {
			return true
		}
	}
	return false
}

func joinKey(key domain.DimensionKey) string {
	return strings.Join(key, keySeparator)
}
