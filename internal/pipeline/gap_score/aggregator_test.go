package gap_score

import (
	"errors"
	"reflect"
	"testing"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
)

func sampleDataset() domain.Dataset {
	return domain.Dataset{
		Products: []domain.Product{
			{ProductKey: "P1", Category: "Bikes", Subcategory: "Road"},
			{ProductKey: "P2", Category: "Bikes", Subcategory: "Mountain"},
			{ProductKey: "P3", Category: "Bikes", Subcategory: "Mountain"},
			{ProductKey: "P4", Category: "Clothing", Subcategory: "Jerseys"},
			{ProductKey: "P5", Category: "Components", Subcategory: "Frames"},
			{ProductKey: "P5", Category: "Components", Subcategory: "Frames"},
		},
		Transactions: []domain.Transaction{
			{OrderNumber: "SO1", ProductKey: "P1", Quantity: 2, CustomerKey: "C1", TerritoryKey: "1"},
			{OrderNumber: "SO1", ProductKey: "P2", Quantity: 1, CustomerKey: "C1", TerritoryKey: "1"},
			{OrderNumber: "SO2", ProductKey: "P3", Quantity: 3, CustomerKey: "C2", TerritoryKey: "2"},
			{OrderNumber: "SO3", ProductKey: "P4", Quantity: 5, CustomerKey: "C1", TerritoryKey: "2"},
			{OrderNumber: "SO4", ProductKey: "P9", Category: "Accessories", Subcategory: "Helmets", Quantity: 4, CustomerKey: "C3", TerritoryKey: "1"},
			{OrderNumber: "SO5", ProductKey: "P1", Quantity: 7, CustomerKey: "C4", TerritoryKey: "99"},
		},
		Territories: []domain.Territory{
			{TerritoryKey: "1", Region: "Europe", Country: "France"},
			{TerritoryKey: "2", Region: "North America", Country: "Canada"},
		},
	}
}

func TestAggregateCategory(t *testing.T) {
	rows, err := Aggregate(sampleDataset(), domain.DimensionCategory)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	want := []domain.MetricRow{
		{Key: domain.DimensionKey{"Accessories"}, UniqueSupply: 0, TotalDemand: 4, UniqueOrders: 1, UniqueCustomers: 1},
		{Key: domain.DimensionKey{"Bikes"}, UniqueSupply: 3, TotalDemand: 13, UniqueOrders: 3, UniqueCustomers: 3},
		{Key: domain.DimensionKey{"Clothing"}, UniqueSupply: 1, TotalDemand: 5, UniqueOrders: 1, UniqueCustomers: 1},
		{Key: domain.DimensionKey{"Components"}, UniqueSupply: 1, TotalDemand: 0, UniqueOrders: 0, UniqueCustomers: 0},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows mismatch\n got: %+v\nwant: %+v", rows, want)
	}
}

func TestAggregateSubcategory(t *testing.T) {
	rows, err := Aggregate(sampleDataset(), domain.DimensionSubcategory)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	got := make(map[string]domain.MetricRow, len(rows))
	for _, r := range rows {
		got[r.Key.Label()] = r
	}
	if len(got) != len(rows) {
		t.Fatalf("duplicate keys in %+v", rows)
	}

	mountain := got["Bikes / Mountain"]
	if mountain.UniqueSupply != 2 || mountain.TotalDemand != 4 || mountain.UniqueOrders != 2 {
		t.Fatalf("unexpected mountain row: %+v", mountain)
	}
	road := got["Bikes / Road"]
	if road.UniqueSupply != 1 || road.TotalDemand != 9 || road.UniqueCustomers != 2 {
		t.Fatalf("unexpected road row: %+v", road)
	}
}

func TestAggregateTerritoryLeftJoin(t *testing.T) {
	rows, err := Aggregate(sampleDataset(), domain.DimensionTerritory)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	got := make(map[string]domain.MetricRow, len(rows))
	for _, r := range rows {
		got[r.Key.Label()] = r
	}

	// SO5 has an unknown territory and contributes nothing
	france := got["Europe / France / Bikes"]
	if france.TotalDemand != 3 || france.UniqueOrders != 1 {
		t.Fatalf("unexpected france bikes row: %+v", france)
	}
	// category supply is reused for every territory row of that category
	if france.UniqueSupply != 3 || got["North America / Canada / Bikes"].UniqueSupply != 3 {
		t.Fatalf("supply not reused across territories: %+v", rows)
	}
	// supply-only category appears once with empty territory fields
	comp, ok := got["Components"]
	if !ok || comp.UniqueSupply != 1 || comp.TotalDemand != 0 {
		t.Fatalf("missing supply-only row: %+v", rows)
	}
	if !reflect.DeepEqual(comp.Key, domain.DimensionKey{"", "", "Components"}) {
		t.Fatalf("unexpected supply-only key: %#v", comp.Key)
	}

	for i := 1; i < len(rows); i++ {
		if rows[i].Key.Less(rows[i-1].Key) {
			t.Fatalf("rows not sorted at %d: %+v", i, rows)
		}
	}
}

func TestAggregateEmptyDataset(t *testing.T) {
	rows, err := Aggregate(domain.Dataset{}, domain.DimensionCategory)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %+v", rows)
	}
}

func TestAggregateUnknownField(t *testing.T) {
	_, err := Aggregate(sampleDataset(), domain.Dimension{Name: "brand", Fields: []string{"brand"}})
	if !errors.Is(err, ErrUnknownDimension) {
		t.Fatalf("expected ErrUnknownDimension, got %v", err)
	}
}

func TestAggregateFloorsNegativeDemand(t *testing.T) {
	ds := domain.Dataset{
		Products: []domain.Product{{ProductKey: "P1", Category: "Bikes"}},
		Transactions: []domain.Transaction{
			{OrderNumber: "SO1", ProductKey: "P1", Quantity: 3, CustomerKey: "C1"},
			{OrderNumber: "RT1", ProductKey: "P1", Quantity: -1, CustomerKey: "C1"},
			{OrderNumber: "RT2", ProductKey: "R1", Category: "Returns", Quantity: -2, CustomerKey: "C2"},
		},
	}
	rows, err := Aggregate(ds, domain.DimensionCategory)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	want := []domain.MetricRow{
		{Key: domain.DimensionKey{"Bikes"}, UniqueSupply: 1, TotalDemand: 2, UniqueOrders: 2, UniqueCustomers: 1},
		{Key: domain.DimensionKey{"Returns"}, UniqueSupply: 0, TotalDemand: 0, UniqueOrders: 1, UniqueCustomers: 1},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows mismatch\n got: %+v\nwant: %+v", rows, want)
	}

	for _, r := range NewScorer(config.DefaultGapConfig()).Score(rows) {
		if r.GapScore <= 0 {
			t.Errorf("%s: gap score %v must stay positive", r.Category, r.GapScore)
		}
	}
}
