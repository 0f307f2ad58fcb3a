package service

import (
	"context"
	"errors"

	"github.com/andresuchdata/gapwatch/internal/cache"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/internal/monitoring"
	"github.com/andresuchdata/gapwatch/internal/planner"
	"github.com/rs/zerolog/log"
)

// ErrSnapshotNotFound is returned when no snapshot exists for the requested date.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	viewKPIs    = "kpis"
	viewChanges = "changes"
	viewPlan    = "plan"
)

// KPIView is the KPI summary of one snapshot.
type KPIView struct {
	Date string            `json:"date"`
	Week int               `json:"week"`
	KPIs domain.KPISummary `json:"kpis"`
}

// ChangesView compares one snapshot with the snapshot before it.
type ChangesView struct {
	Date             string                `json:"date"`
	Week             int                   `json:"week"`
	PreviousDate     string                `json:"previous_date,omitempty"`
	Changes          []domain.ChangeRecord `json:"changes"`
	NeedingAttention int                   `json:"needing_attention"`
}

// GapService serves read-only views over persisted snapshots.
type GapService struct {
	store    *monitoring.SnapshotStore
	analyzer *monitoring.Analyzer
	planner  *planner.Planner
	cache    cache.ReportCache
}

func NewGapService(store *monitoring.SnapshotStore, analyzer *monitoring.Analyzer, p *planner.Planner, cacheImpl cache.ReportCache) *GapService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &GapService{store: store, analyzer: analyzer, planner: p, cache: cacheImpl}
}

func (s *GapService) ListSnapshots(ctx context.Context) ([]monitoring.SnapshotInfo, error) {
	infos, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []monitoring.SnapshotInfo{}
	}
	return infos, nil
}

// GetSnapshot returns the snapshot for date, or the latest one when date is empty.
func (s *GapService) GetSnapshot(ctx context.Context, date string) (domain.Snapshot, error) {
	var (
		snap  domain.Snapshot
		found bool
		err   error
	)
	if date == "" {
		snap, found, err = s.store.LoadLatest()
	} else {
		snap, found, err = s.store.LoadByDate(date)
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !found {
		return domain.Snapshot{}, ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *GapService) GetKPIs(ctx context.Context, date string) (KPIView, error) {
	var view KPIView
	if s.cached(ctx, viewKPIs, date, &view) {
		return view, nil
	}

	snap, err := s.GetSnapshot(ctx, date)
	if err != nil {
		return KPIView{}, err
	}
	view = KPIView{Date: snap.Date, Week: snap.Week, KPIs: monitoring.ComputeKPIs(snap.Records)}

	s.remember(ctx, viewKPIs, date, view)
	return view, nil
}

func (s *GapService) GetChanges(ctx context.Context, date string) (ChangesView, error) {
	var view ChangesView
	if s.cached(ctx, viewChanges, date, &view) {
		return view, nil
	}

	snap, err := s.GetSnapshot(ctx, date)
	if err != nil {
		return ChangesView{}, err
	}
	previous, found, err := s.store.LoadBefore(snap.Date)
	if err != nil {
		return ChangesView{}, err
	}

	var prev *domain.Snapshot
	view = ChangesView{Date: snap.Date, Week: snap.Week}
	if found {
		prev = &previous
		view.PreviousDate = previous.Date
	}
	view.Changes = s.analyzer.Analyze(snap.Records, prev)
	view.NeedingAttention = len(monitoring.NeedingAttention(view.Changes))

	s.remember(ctx, viewChanges, date, view)
	return view, nil
}

func (s *GapService) GetPlan(ctx context.Context, date string) (domain.ActionPlan, error) {
	var plan domain.ActionPlan
	if s.cached(ctx, viewPlan, date, &plan) {
		return plan, nil
	}

	changes, err := s.GetChanges(ctx, date)
	if err != nil {
		return domain.ActionPlan{}, err
	}
	plan = s.planner.GeneratePlan(changes.Changes, changes.Week, changes.Date)
	if plan.ActionPlans == nil {
		plan.ActionPlans = []domain.CategoryActionPlan{}
	}

	s.remember(ctx, viewPlan, date, plan)
	return plan, nil
}

func (s *GapService) cached(ctx context.Context, view, date string, dest interface{}) bool {
	ok, err := s.cache.Get(ctx, view, date, dest)
	if err != nil {
		log.Warn().Err(err).Str("view", view).Msg("gap service: cache get failed")
		return false
	}
	return ok
}

func (s *GapService) remember(ctx context.Context, view, date string, v interface{}) {
	if err := s.cache.Set(ctx, view, date, v); err != nil {
		log.Warn().Err(err).Str("view", view).Msg("gap service: cache set failed")
	}
}
