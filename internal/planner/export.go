package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/pkg/numfmt"
)

const ruleWidth = 100

type section struct {
	title   string
	actions func(p domain.CategoryActionPlan) []string
}

var sections = []section{
	{"OPERATIONAL ACTIONS (Immediate):", func(p domain.CategoryActionPlan) []string { return p.OperationalActions }},
	{"STRATEGIC ACTIONS (Medium-term):", func(p domain.CategoryActionPlan) []string { return p.StrategicActions }},
	{"PLATFORM OPTIMIZATION:", func(p domain.CategoryActionPlan) []string { return p.PlatformActions }},
	{"USER ENGAGEMENT:", func(p domain.CategoryActionPlan) []string { return p.UserEngagementActions }},
}

// JSONFileName returns action_plan_week_<n>.json.
func JSONFileName(week int) string {
	return fmt.Sprintf("action_plan_week_%d.json", week)
}

// TextFileName returns action_plan_week_<n>.txt.
func TextFileName(week int) string {
	return fmt.Sprintf("action_plan_week_%d.txt", week)
}

// WriteJSON writes the plan as indented JSON into dir and returns the path.
func WriteJSON(plan domain.ActionPlan, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create plan dir: %w", err)
	}
	if plan.ActionPlans == nil {
		plan.ActionPlans = []domain.CategoryActionPlan{}
	}

	payload, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode action plan: %w", err)
	}

	path := filepath.Join(dir, JSONFileName(plan.Week))
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteText writes the formatted plain-text plan into dir and returns the path.
func WriteText(plan domain.ActionPlan, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create plan dir: %w", err)
	}

	path := filepath.Join(dir, TextFileName(plan.Week))
	if err := os.WriteFile(path, []byte(RenderText(plan)), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// RenderText formats the plan with one block per category and numbered actions.
func RenderText(plan domain.ActionPlan) string {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&b, "ACTION PLAN - WEEK %d (%s)\n", plan.Week, plan.Date)
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")
	fmt.Fprintf(&b, "Total Categories Monitored: %d\n\n", plan.TotalCategories)

	for _, p := range plan.ActionPlans {
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
		fmt.Fprintf(&b, "Gap Score: %.2f | Status: %s\n", p.GapScore, p.GapStatus)
		fmt.Fprintf(&b, "Supply: %s | Demand: %s\n", numfmt.Thousands(p.Supply), numfmt.Thousands(p.Demand))
		fmt.Fprintf(&b, "Gap Change: %s\n\n", numfmt.Percent(p.GapChangePct))

		for _, s := range sections {
			b.WriteString(s.title + "\n")
			for i, action := range s.actions(p) {
				fmt.Fprintf(&b, "  %d. %s\n", i+1, action)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
