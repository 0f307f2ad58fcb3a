package gap_score

import (
	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
)

// Config holds the gap score pipeline configuration
type Config struct {
	Dimension          domain.Dimension
	Gap                config.GapConfig
	Ascending          bool   // rank lowest gap first
	IntermediateDir    string // root directory for per-run debug layers
	PersistDebugLayers bool   // write supply/demand and scored layers as CSV
	RunDate            string // date used to name intermediate directories (2006-01-02)
}

// supplyAgg accumulates distinct catalog products for one key
type supplyAgg struct {
	key      domain.DimensionKey
	products map[string]struct{}
}

// demandAgg accumulates order lines for one key
type demandAgg struct {
	key       domain.DimensionKey
	quantity  int
	orders    map[string]struct{}
	customers map[string]struct{}
}
