package ratelimit

import (
	"time"

	"github.com/zerlake/thesisai/internal/domain/models"
)

// Metered features.
const (
	FeatureAICompletions = "ai_completions"
	FeaturePaperSearch   = "paper_search"
	FeatureMessages      = "messages"
	FeatureAuth          = "auth"
	FeatureCore          = "core_requests"
)

// CoreWindow is the window for the plan-based general API ceiling.
const CoreWindow = 15 * time.Minute

// CoreOptions is the plan-based ceiling applied to the whole API.
func CoreOptions() Options {
	return Options{Feature: FeatureCore, Window: CoreWindow, PlanWindow: true}
}

// Unlimited marks a plan limit with no ceiling.
const Unlimited = -1

// PlanLimits holds the ceilings of one plan. Daily maps a feature to its
// per-UTC-day quota.
type PlanLimits struct {
	Daily        map[string]int `json:"daily"`
	CorePer15Min int            `json:"core_per_15min"`
}

var planTable = map[string]PlanLimits{
	models.PlanFree: {
		Daily:        map[string]int{FeatureAICompletions: 10, FeaturePaperSearch: 20},
		CorePer15Min: 100,
	},
	models.PlanPro: {
		Daily:        map[string]int{FeatureAICompletions: 100, FeaturePaperSearch: 200},
		CorePer15Min: 500,
	},
	models.PlanPremium: {
		Daily:        map[string]int{FeatureAICompletions: 500, FeaturePaperSearch: 1000},
		CorePer15Min: 1000,
	},
	models.PlanInstitutional: {
		Daily:        map[string]int{FeatureAICompletions: Unlimited, FeaturePaperSearch: Unlimited},
		CorePer15Min: 5000,
	},
}

// LimitsFor returns the limits of plan, treating unknown plans as free.
func LimitsFor(plan string) PlanLimits {
	if l, ok := planTable[plan]; ok {
		return l
	}
	return planTable[models.PlanFree]
}

// AllPlanLimits returns the whole table, keyed by plan.
func AllPlanLimits() map[string]PlanLimits {
	out := make(map[string]PlanLimits, len(planTable))
	for k, v := range planTable {
		out[k] = v
	}
	return out
}

// DailyQuota returns the daily quota of feature under plan. ok is false when
// the feature is not metered daily.
func DailyQuota(plan, feature string) (limit int, ok bool) {
	limit, ok = LimitsFor(plan).Daily[feature]
	return limit, ok
}

// Day returns the UTC day key used for daily usage counters.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextDay returns the start of the UTC day after t, when daily quotas reset.
func NextDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func scale(limit int, multiplier float64) int {
	if limit == Unlimited || multiplier <= 0 || multiplier == 1 {
		return limit
	}
	scaled := int(float64(limit) * multiplier)
	if scaled < 1 {
		return 1
	}
	return scaled
}
