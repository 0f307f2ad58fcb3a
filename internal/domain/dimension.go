package domain

import "strings"

// Dimension field names shared by the catalog, the transaction log and the territory lookup.
const (
	FieldRegion      = "region"
	FieldCountry     = "country"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
)

// DimensionKey is the ordered tuple of field values a metric row is grouped on.
type DimensionKey []string

// Label renders the key the way snapshots and plans name a category, skipping empty parts.
func (k DimensionKey) Label() string {
	parts := make([]string, 0, len(k))
	for _, v := range k {
		if v == "" {
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " / ")
}

// Less orders keys lexicographically, field by field.
func (k DimensionKey) Less(o DimensionKey) bool {
	for i := 0; i < len(k) && i < len(o); i++ {
		if k[i] != o[i] {
			return k[i] < o[i]
		}
	}
	return len(k) < len(o)
}

// Dimension names an ordered list of grouping fields.
type Dimension struct {
	Name   string
	Fields []string
}

var (
	DimensionCategory             = Dimension{Name: "category", Fields: []string{FieldCategory}}
	DimensionSubcategory          = Dimension{Name: "subcategory", Fields: []string{FieldCategory, FieldSubcategory}}
	DimensionTerritory            = Dimension{Name: "territory", Fields: []string{FieldRegion, FieldCountry, FieldCategory}}
	DimensionSubcategoryTerritory = Dimension{Name: "subcategory_territory", Fields: []string{FieldRegion, FieldCountry, FieldCategory, FieldSubcategory}}
)

var dimensions = map[string]Dimension{
	DimensionCategory.Name:             DimensionCategory,
	DimensionSubcategory.Name:          DimensionSubcategory,
	DimensionTerritory.Name:            DimensionTerritory,
	DimensionSubcategoryTerritory.Name: DimensionSubcategoryTerritory,
}

// LookupDimension returns a built-in dimension by name (case-insensitive).
func LookupDimension(name string) (Dimension, bool) {
	d, ok := dimensions[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// UsesTerritory reports whether the dimension needs the territory lookup.
func (d Dimension) UsesTerritory() bool {
	for _, f := range d.Fields {
		if f == FieldRegion || f == FieldCountry {
			return true
		}
	}
	return false
}
