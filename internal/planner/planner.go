package planner

import (
	"time"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
)

// Planner turns flagged change records into per-category action plans.
type Planner struct {
	rules ruleSet
	now   func() time.Time
}

// NewPlanner builds the rule lists from the configured thresholds.
func NewPlanner(cfg config.PlannerConfig) *Planner {
	return &Planner{rules: newRuleSet(cfg), now: time.Now}
}

// WithClock replaces the clock used for default week and date.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	if now != nil {
		p.now = now
	}
	return p
}

// PlanCategory derives the four action lists for one record.
func (p *Planner) PlanCategory(r domain.ChangeRecord) domain.CategoryActionPlan {
	in := ruleInput{
		GapScore:     r.GapScore,
		Supply:       r.Supply,
		Demand:       r.Demand,
		GapChangePct: r.GapChangePct,
	}
	return domain.CategoryActionPlan{
		Category:              r.Category,
		GapScore:              r.GapScore,
		GapStatus:             r.GapStatus,
		Supply:                r.Supply,
		Demand:                r.Demand,
		GapChangePct:          r.GapChangePct,
		OperationalActions:    apply(p.rules.operational, in, r.Category),
		StrategicActions:      apply(p.rules.strategic, in, r.Category),
		PlatformActions:       apply(p.rules.platform, in, r.Category),
		UserEngagementActions: apply(p.rules.userEngagement, in, r.Category),
	}
}

// GeneratePlan builds the cycle plan in input order. A zero week defaults to the current
// ISO week and an empty date to today.
func (p *Planner) GeneratePlan(changes []domain.ChangeRecord, week int, date string) domain.ActionPlan {
	now := p.now()
	if week == 0 {
		_, week = now.ISOWeek()
	}
	if date == "" {
		date = now.Format("2006-01-02")
	}

	plans := make([]domain.CategoryActionPlan, 0, len(changes))
	for _, r := range changes {
		plans = append(plans, p.PlanCategory(r))
	}

	return domain.ActionPlan{
		Week:            week,
		Date:            date,
		TotalCategories: len(changes),
		ActionPlans:     plans,
	}
}
