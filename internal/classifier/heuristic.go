// Package classifier implements the local keyword-based fallback used when
// the remote analysis service is unavailable. Matching is case-insensitive
// substring containment; the first matching rule wins, so rule order
// matters.
package classifier

import (
	"strings"

	"github.com/spec-kit/support-assistant/internal/domain"
)

type rule struct {
	keywords      []string
	category      string
	priority      domain.TicketPriority
	confidence    float64
	estimatedTime string
	insights      []string
}

var categoryRules = []rule{
	{
		keywords:      []string{"login", "password", "access"},
		category:      "Authentication & Access",
		priority:      domain.TicketPriorityHigh,
		confidence:    0.90,
		estimatedTime: "2-4 hours",
		insights: []string{
			"Try resetting your password from the sign-in page.",
			"Clear saved credentials in your browser before retrying.",
		},
	},
	{
		keywords:      []string{"slow", "loading", "performance", "timeout"},
		category:      "Performance & Speed",
		priority:      domain.TicketPriorityMedium,
		confidence:    0.85,
		estimatedTime: "4-6 hours",
		insights: []string{
			"Check whether other sites load normally on your connection.",
			"A hard refresh often clears stale cached assets.",
		},
	},
	{
		keywords:      []string{"error", "bug", "crash", "broken"},
		category:      "Bug Report",
		priority:      domain.TicketPriorityHigh,
		confidence:    0.88,
		estimatedTime: "6-12 hours",
		insights: []string{
			"Note the exact error text and the steps that trigger it.",
			"A screenshot helps the engineering team reproduce the issue.",
		},
	},
	{
		keywords:      []string{"account", "profile", "settings"},
		category:      "Account Management",
		priority:      domain.TicketPriorityMedium,
		confidence:    0.82,
		estimatedTime: "2-6 hours",
		insights: []string{
			"Profile changes can take a few minutes to propagate.",
		},
	},
	{
		keywords:      []string{"billing", "payment", "charge", "invoice"},
		category:      "Billing & Payments",
		priority:      domain.TicketPriorityHigh,
		confidence:    0.95,
		estimatedTime: "1-3 hours",
		insights: []string{
			"Have the invoice number or transaction date ready.",
			"Duplicate charges are usually reversed within one business day.",
		},
	},
}

var defaultRule = rule{
	category:      "General Support",
	priority:      domain.TicketPriorityMedium,
	confidence:    0.75,
	estimatedTime: "4-8 hours",
	insights: []string{
		"A support agent will review your request shortly.",
	},
}

var urgencyKeywords = []string{"urgent", "critical", "emergency"}

// Classify maps free text to a usable classification. It never fails: text
// that matches no rule falls through to the General Support bucket.
func Classify(text string) domain.ClassificationResult {
	lower := strings.ToLower(text)

	matched := defaultRule
	for _, r := range categoryRules {
		if containsAny(lower, r.keywords) {
			matched = r
			break
		}
	}

	result := domain.ClassificationResult{
		Category:      matched.category,
		Priority:      matched.priority,
		Confidence:    matched.confidence,
		EstimatedTime: matched.estimatedTime,
		Insights:      append([]string(nil), matched.insights...),
		NeedsTicket:   true,
	}

	// Urgency override takes precedence over the matched category.
	if containsAny(lower, urgencyKeywords) {
		result.Priority = domain.TicketPriorityCritical
		result.EstimatedTime = "1-2 hours"
	}

	return result
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
