package domain

// ActionPlan groups the recommended interventions of one cycle.
type ActionPlan struct {
	Week            int                  `json:"week"`
	Date            string               `json:"date"`
	TotalCategories int                  `json:"total_categories"`
	ActionPlans     []CategoryActionPlan `json:"action_plans"`
}

// CategoryActionPlan holds the four action lists derived for a single category.
type CategoryActionPlan struct {
	Category              string   `json:"category"`
	GapScore              float64  `json:"gap_score"`
	GapStatus             Severity `json:"gap_status"`
	Supply                int      `json:"supply"`
	Demand                int      `json:"demand"`
	GapChangePct          float64  `json:"gap_change_pct"`
	OperationalActions    []string `json:"operational_actions"`
	StrategicActions      []string `json:"strategic_actions"`
	PlatformActions       []string `json:"platform_actions"`
	UserEngagementActions []string `json:"user_engagement_actions"`
}
