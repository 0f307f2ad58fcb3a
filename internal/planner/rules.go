package planner

import (
	"strings"

	"github.com/andresuchdata/gapwatch/internal/config"
)

const categoryPlaceholder = "{category}"

// ruleInput is what every action rule sees for one category.
type ruleInput struct {
	GapScore     float64
	Supply       int
	Demand       int
	GapChangePct float64
}

// actionRule emits its templates, formatted with the category name, when match holds.
type actionRule struct {
	name      string
	match     func(in ruleInput) bool
	templates []string
}

func (r actionRule) actions(category string) []string {
	out := make([]string, len(r.templates))
	for i, tpl := range r.templates {
		out[i] = strings.ReplaceAll(tpl, categoryPlaceholder, category)
	}
	return out
}

// ruleSet holds the four independent action lists.
type ruleSet struct {
	operational    []actionRule
	strategic      []actionRule
	platform       []actionRule
	userEngagement []actionRule
}

func always(ruleInput) bool { return true }

func newRuleSet(cfg config.PlannerConfig) ruleSet {
	critical := func(in ruleInput) bool { return in.GapScore > cfg.CriticalScore }
	high := func(in ruleInput) bool { return in.GapScore > cfg.HighScore }

	return ruleSet{
		operational: []actionRule{
			{
				name:  "supply_recruitment",
				match: critical,
				templates: []string{
					"Launch supply recruitment campaign targeting lenders with {category} items",
					"Offer 3-month listing incentive (10% commission reduction) for {category}",
					"Create {category} category highlight page with featured rewards",
				},
			},
			{
				name:  "renter_activation",
				match: high,
				templates: []string{
					"Send targeted push notifications to active renters in {category}",
					"Feature trending {category} items in homepage recommendations",
					"Implement waitlist feature for out-of-stock {category} items",
				},
			},
			{
				name: "external_sourcing",
				match: func(in ruleInput) bool {
					return float64(in.Supply) < float64(in.Demand)*cfg.SupplyDemandRatio
				},
				templates: []string{
					"Contact top lenders outside platform to list {category} items",
					"Establish partnerships with {category} retailers for consignment",
				},
			},
		},
		strategic: []actionRule{
			{
				name:  "category_expansion",
				match: critical,
				templates: []string{
					"Develop supplier partnership strategy for {category} expansion",
					"Allocate marketing budget (15%) toward {category} category growth",
					"Create {category} category vertical with dedicated team",
				},
			},
			{
				name:  "gap_investigation",
				match: func(in ruleInput) bool { return in.GapChangePct > cfg.GapIncreasePct },
				templates: []string{
					"Investigate root cause of {category} gap increase",
					"Conduct competitor analysis in {category} segment",
					"Review and adjust {category} pricing strategy",
				},
			},
			{
				name:  "replicate_improvement",
				match: func(in ruleInput) bool { return in.GapChangePct < cfg.GapImprovePct },
				templates: []string{
					"Document successful {category} improvement strategy for other categories",
					"Accelerate similar initiatives based on {category} success model",
				},
			},
		},
		platform: []actionRule{
			{
				name:  "visibility_boost",
				match: critical,
				templates: []string{
					"Boost {category} SEO/search ranking priority",
					"Increase {category} items in recommendation algorithm weight",
					"Create dedicated {category} landing page with category-specific messaging",
				},
			},
			{
				name:  "demand_signals",
				match: high,
				templates: []string{
					"Add 'High-Demand' badge to all {category} listings",
					"Implement smart search suggestions for {category} terms",
					"Create {category} category widget on homepage",
				},
			},
			{
				name:  "deprioritize",
				match: func(in ruleInput) bool { return in.GapScore < cfg.BalancedScore },
				templates: []string{
					"Reduce {category} visibility in recommendations (balanced supply)",
					"Redirect marketing focus to shortage categories",
				},
			},
		},
		userEngagement: []actionRule{
			{
				name:  "lender_outreach",
				match: critical,
				templates: []string{
					"Create referral rewards program specifically for {category} lenders",
					"Send personalized emails to inactive lenders about {category} opportunity",
					"Develop {category}-specific renter profiles for targeted outreach",
				},
			},
			{
				name:  "social_proof",
				match: high,
				templates: []string{
					"Display 'Popular in {category}' social proof on item pages",
					"Create {category} community discussions and forums",
					"Implement {category} item pre-booking feature",
				},
			},
			{
				name:      "first_lister_bonus",
				match:     always,
				templates: []string{"Reward users who first list {category} items with bonus credit"},
			},
		},
	}
}

// apply runs every rule of a list independently and concatenates the matches in rule order.
func apply(rules []actionRule, in ruleInput, category string) []string {
	out := make([]string, 0)
	for _, r := range rules {
		if r.match(in) {
			out = append(out, r.actions(category)...)
		}
	}
	return out
}
