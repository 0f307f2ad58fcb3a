package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/andresuchdata/gapwatch/internal/domain"
)

// Pipeline defines the interface that all scoring pipelines must implement
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Validate checks if the dataset can be processed by this pipeline
	Validate(ds domain.Dataset) error

	// Transform aggregates and scores the dataset, returning ranked gap records
	Transform(ctx context.Context, ds domain.Dataset) ([]domain.GapRecord, error)
}

// PipelineConfig holds configuration for one monitoring cycle
type PipelineConfig struct {
	Name        string
	OutputDir   string // Directory for plans, summaries and insights
	SnapshotDir string // Directory for weekly snapshots
	Week        int    // ISO week override, 0 means current week
	Date        string // Snapshot date override (2006-01-02), empty means today
	TopN        int    // Number of categories in ranking insights
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:        name,
		OutputDir:   filepath.Join("data", "results"),
		SnapshotDir: filepath.Join("data", "results", "monitoring_reports"),
		TopN:        5,
	}
}

// PipelineStatus represents the final state of a monitoring cycle
type PipelineStatus string

const (
	StatusCompleted PipelineStatus = "completed"
	StatusDegraded  PipelineStatus = "degraded" // core outputs written, an optional side effect failed
	StatusFailed    PipelineStatus = "failed"
)

// CycleReport summarizes a single monitoring cycle
type CycleReport struct {
	RunID        string                `json:"run_id"`
	Pipeline     string                `json:"pipeline"`
	Status       PipelineStatus        `json:"status"`
	Week         int                   `json:"week"`
	Date         string                `json:"date"`
	HasHistory   bool                  `json:"has_history"`
	PreviousDate string                `json:"previous_date,omitempty"`
	KPIs         domain.KPISummary     `json:"kpis"`
	TargetGaps   []domain.TargetGap    `json:"target_gaps"`
	Changes      []domain.ChangeRecord `json:"changes"`
	Plan         domain.ActionPlan     `json:"plan"`
	Artifacts    []string              `json:"artifacts"`
	Warnings     []string              `json:"warnings,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	CompletedAt  time.Time             `json:"completed_at"`
}
