package auth

import "strings"

// planNames maps Claude Code subscription identifiers to header badges.
var planNames = map[string]string{
	"default_claude_pro":     "pro",
	"default_claude_max_5x":  "max",
	"default_claude_max_20x": "max",
}

// PlanFromSubscription maps a subscriptionType to "pro" or "max".
func PlanFromSubscription(subType string) (string, bool) {
	if plan, ok := planNames[subType]; ok {
		return plan, true
	}
	lower := strings.ToLower(subType)
	if strings.Contains(lower, "max") {
		return "max", true
	}
	if strings.Contains(lower, "pro") {
		return "pro", true
	}
	return "", false
}

// DetectPlanType resolves the plan badge: credential metadata first, then the
// usage API (fetchPlan, may be nil), then "pro".
func DetectPlanType(fetchPlan func() (string, error)) string {
	if subType := SubscriptionType(); subType != "" {
		if plan, ok := PlanFromSubscription(subType); ok {
			return plan
		}
	}
	if fetchPlan != nil {
		if plan, err := fetchPlan(); err == nil && plan != "" {
			return plan
		}
	}
	return "pro"
}
