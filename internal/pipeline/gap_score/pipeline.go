package gap_score

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/internal/pipeline"
	"github.com/rs/zerolog/log"
)

// ErrEmptyDataset is returned when neither the catalog nor the transaction log has rows.
var ErrEmptyDataset = errors.New("dataset has no products and no transactions")

var _ pipeline.Pipeline = (*GapScorePipeline)(nil)

// GapScorePipeline implements the generic pipeline.Pipeline interface for gap scoring.
type GapScorePipeline struct {
	config Config
	scorer *Scorer
}

// NewGapScorePipeline creates a new gap score pipeline instance.
func NewGapScorePipeline(cfg Config) *GapScorePipeline {
	if len(cfg.Dimension.Fields) == 0 {
		cfg.Dimension = domain.DimensionCategory
	}
	if cfg.IntermediateDir == "" {
		cfg.IntermediateDir = filepath.Join("data", "intermediate", "gap_score")
	}
	return &GapScorePipeline{
		config: cfg,
		scorer: NewScorer(cfg.Gap),
	}
}

// Name returns the unique identifier of this pipeline.
func (p *GapScorePipeline) Name() string {
	return "gap_score_" + p.config.Dimension.Name
}

// Scorer exposes the configured scorer so callers can re-classify loaded snapshots.
func (p *GapScorePipeline) Scorer() *Scorer {
	return p.scorer
}

// Validate performs basic validation on the dataset.
func (p *GapScorePipeline) Validate(ds domain.Dataset) error {
	if len(ds.Products) == 0 && len(ds.Transactions) == 0 {
		return ErrEmptyDataset
	}
	if p.config.Dimension.UsesTerritory() && len(ds.Territories) == 0 {
		return fmt.Errorf("dimension %s requires a territory lookup", p.config.Dimension.Name)
	}
	for _, tx := range ds.Transactions {
		if tx.Quantity < 0 {
			log.Warn().Str("order", tx.OrderNumber).Int("quantity", tx.Quantity).Msg("gap score: negative order quantity")
		}
	}
	return nil
}

// Transform aggregates, scores, normalizes and ranks the dataset.
func (p *GapScorePipeline) Transform(ctx context.Context, ds domain.Dataset) ([]domain.GapRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1) Aggregate supply and demand per key
	rows, err := Aggregate(ds, p.config.Dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", p.config.Dimension.Name, err)
	}

	runDate := p.runDate()
	if p.config.PersistDebugLayers {
		if err := writeMetricRowsCSV(p.layerPath(runDate, "1_supply_demand"), p.config.Dimension, rows); err != nil {
			return nil, fmt.Errorf("failed to write supply_demand intermediate: %w", err)
		}
	}

	// 2) Score, normalize over this set, rank
	records := p.scorer.Score(rows)
	records = Normalize(records)
	records = Rank(records, p.config.Ascending)

	if p.config.PersistDebugLayers {
		if err := WriteGapRecordsCSV(p.layerPath(runDate, "2_gap_scores"), p.config.Dimension, records); err != nil {
			return nil, fmt.Errorf("failed to write gap_scores intermediate: %w", err)
		}
	}

	log.Info().
		Str("pipeline", p.Name()).
		Int("products", len(ds.Products)).
		Int("transactions", len(ds.Transactions)).
		Int("rows", len(records)).
		Msg("gap score: transform completed")

	return records, nil
}

func (p *GapScorePipeline) runDate() time.Time {
	if p.config.RunDate != "" {
		if d, err := time.Parse("2006-01-02", p.config.RunDate); err == nil {
			return d
		}
	}
	return time.Now()
}

func (p *GapScorePipeline) layerPath(date time.Time, stage string) string {
	return filepath.Join(p.config.IntermediateDir, stage, date.Format("20060102"), p.config.Dimension.Name+".csv")
}
