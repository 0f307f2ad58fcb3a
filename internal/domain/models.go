// internal/domain/models.go
package domain

// Product is a single catalog listing.
type Product struct {
	ProductKey  string `json:"product_key" db:"product_key"`
	Category    string `json:"category" db:"category"`
	Subcategory string `json:"subcategory" db:"subcategory"`
}

// Transaction is one order line from the sales log.
type Transaction struct {
	OrderNumber  string `json:"order_number" db:"order_number"`
	ProductKey   string `json:"product_key" db:"product_key"`
	Category     string `json:"category" db:"category"`
	Subcategory  string `json:"subcategory" db:"subcategory"`
	Quantity     int    `json:"quantity" db:"quantity"`
	CustomerKey  string `json:"customer_key" db:"customer_key"`
	OrderDate    string `json:"order_date" db:"order_date"`
	TerritoryKey string `json:"territory_key" db:"territory_key"`
}

// Territory maps a sales territory key to its geography.
type Territory struct {
	TerritoryKey string `json:"territory_key" db:"territory_key"`
	Region       string `json:"region" db:"region"`
	Country      string `json:"country" db:"country"`
}

// Dataset is the fully materialized input of one monitoring cycle.
type Dataset struct {
	Products     []Product
	Transactions []Transaction
	Territories  []Territory
}

// MetricRow is one aggregation unit of supply and demand.
type MetricRow struct {
	Key             DimensionKey `json:"key"`
	UniqueSupply    int          `json:"supply"`
	TotalDemand     int          `json:"demand"`
	UniqueOrders    int          `json:"unique_orders"`
	UniqueCustomers int          `json:"unique_customers"`
}

// GapRecord is a scored MetricRow.
type GapRecord struct {
	MetricRow
	Category              string   `json:"category"`
	GapScore              float64  `json:"gap_score"`
	NormalizedGapScore    float64  `json:"normalized_gap"`
	Severity              Severity `json:"gap_status"`
	AvgQuantityPerProduct float64  `json:"avg_quantity_per_product"`
	AvgQuantityPerOrder   float64  `json:"avg_quantity_per_order"`
	CustomerOrderRatio    float64  `json:"customer_order_ratio"`
	Rank                  int      `json:"rank,omitempty"`
}

// SnapshotRecord is the persisted form of one GapRecord.
type SnapshotRecord struct {
	Date          string   `json:"date"`
	Week          int      `json:"week"`
	Category      string   `json:"category"`
	Supply        int      `json:"supply"`
	Demand        int      `json:"demand"`
	GapScore      float64  `json:"gap_score"`
	GapStatus     Severity `json:"gap_status"`
	NormalizedGap float64  `json:"normalized_gap"`
}

// Snapshot is an immutable capture of one monitoring cycle.
type Snapshot struct {
	Date    string           `json:"date"`
	Week    int              `json:"week"`
	Records []SnapshotRecord `json:"records"`
}

// ToSnapshotRecords stamps scored records with the cycle date and week.
func ToSnapshotRecords(records []GapRecord, date string, week int) []SnapshotRecord {
	out := make([]SnapshotRecord, 0, len(records))
	for _, r := range records {
		out = append(out, SnapshotRecord{
			Date:          date,
			Week:          week,
			Category:      r.Category,
			Supply:        r.UniqueSupply,
			Demand:        r.TotalDemand,
			GapScore:      r.GapScore,
			GapStatus:     r.Severity,
			NormalizedGap: r.NormalizedGapScore,
		})
	}
	return out
}

// ChangeRecord is a SnapshotRecord compared against the previous cycle.
// Previous values are nil when the category first appears in this cycle.
type ChangeRecord struct {
	SnapshotRecord
	PreviousGapScore *float64 `json:"previous_gap_score,omitempty"`
	GapChangePct     float64  `json:"gap_change_pct"`
	PreviousSupply   *int     `json:"previous_supply,omitempty"`
	SupplyChangePct  float64  `json:"supply_change_pct"`
	PreviousDemand   *int     `json:"previous_demand,omitempty"`
	DemandChangePct  float64  `json:"demand_change_pct"`
	Alerts           []Alert  `json:"alerts"`
	Priority         Priority `json:"priority"`
}

// HasAlert reports whether the record carries the given flag.
func (c ChangeRecord) HasAlert(a Alert) bool {
	for _, got := range c.Alerts {
		if got == a {
			return true
		}
	}
	return false
}

// KPISummary aggregates one cycle's gap table.
type KPISummary struct {
	TotalCategories    int     `json:"total_categories"`
	AvgGapScore        float64 `json:"avg_gap_score"`
	MedianGapScore     float64 `json:"median_gap_score"`
	MaxGapScore        float64 `json:"max_gap_score"`
	MaxGapCategory     string  `json:"max_gap_category,omitempty"`
	CriticalCategories int     `json:"critical_categories"`
	CriticalPct        float64 `json:"critical_pct"`
	TotalSupply        int     `json:"total_supply"`
	TotalDemand        int     `json:"total_demand"`
}

// GapSummaryRow is one line of the exported gap summary.
type GapSummaryRow struct {
	Category  string   `json:"category"`
	Supply    int      `json:"supply"`
	Demand    int      `json:"demand"`
	GapScore  float64  `json:"gap_score"`
	GapStatus Severity `json:"gap_status"`
	GapPct    float64  `json:"gap_pct"`
}

// TargetGap compares an observed business metric against its uplift target.
type TargetGap struct {
	Metric      string  `json:"metric"`
	ActualValue float64 `json:"actual_value"`
	TargetValue float64 `json:"target_value"`
	Gap         float64 `json:"gap"`
	GapPct      float64 `json:"gap_pct"`
}
