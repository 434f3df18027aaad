package classifier

import (
	"testing"

	"github.com/spec-kit/support-assistant/internal/domain"
)

func TestClassifyAuthenticationKeywords(t *testing.T) {
	for _, text := range []string{
		"I cannot LOGIN to my dashboard",
		"my password stopped working",
		"lost access to the admin panel",
	} {
		result := Classify(text)
		if result.Category != "Authentication & Access" {
			t.Errorf("Classify(%q) category = %q, want Authentication & Access", text, result.Category)
		}
		if result.Priority != domain.TicketPriorityHigh {
			t.Errorf("Classify(%q) priority = %q, want High", text, result.Priority)
		}
		if result.Confidence != 0.90 {
			t.Errorf("Classify(%q) confidence = %v, want 0.90", text, result.Confidence)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// "login" (rule 1) beats "slow" (rule 2) regardless of word order.
	result := Classify("the app is slow after login")
	if result.Category != "Authentication & Access" {
		t.Fatalf("category = %q, want Authentication & Access", result.Category)
	}
}

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		text     string
		category string
		priority domain.TicketPriority
		time     string
	}{
		{"page loading takes forever", "Performance & Speed", domain.TicketPriorityMedium, "4-6 hours"},
		{"the export button is broken", "Bug Report", domain.TicketPriorityHigh, "6-12 hours"},
		{"update my profile picture", "Account Management", domain.TicketPriorityMedium, "2-6 hours"},
		{"double charge on my invoice", "Billing & Payments", domain.TicketPriorityHigh, "1-3 hours"},
		{"something else entirely", "General Support", domain.TicketPriorityMedium, "4-8 hours"},
	}
	for _, tc := range cases {
		result := Classify(tc.text)
		if result.Category != tc.category {
			t.Errorf("Classify(%q) category = %q, want %q", tc.text, result.Category, tc.category)
		}
		if result.Priority != tc.priority {
			t.Errorf("Classify(%q) priority = %q, want %q", tc.text, result.Priority, tc.priority)
		}
		if result.EstimatedTime != tc.time {
			t.Errorf("Classify(%q) time = %q, want %q", tc.text, result.EstimatedTime, tc.time)
		}
	}
}

func TestUrgencyOverride(t *testing.T) {
	for _, text := range []string{
		"urgent: cannot login",
		"critical billing problem",
		"emergency, the site crashed",
	} {
		result := Classify(text)
		if result.Priority != domain.TicketPriorityCritical {
			t.Errorf("Classify(%q) priority = %q, want Critical", text, result.Priority)
		}
		if result.EstimatedTime != "1-2 hours" {
			t.Errorf("Classify(%q) time = %q, want 1-2 hours", text, result.EstimatedTime)
		}
	}

	// The base category still comes from the matched rule.
	result := Classify("urgent: cannot login")
	if result.Category != "Authentication & Access" {
		t.Errorf("category = %q, want Authentication & Access", result.Category)
	}
}

func TestRoute(t *testing.T) {
	cases := []struct {
		text       string
		department string
		service    string
	}{
		{"vpn will not connect", "IT", "IT Helpdesk"},
		{"question about my payroll", "HR", "Employee Services"},
		{"wrong charge on the invoice", "Finance", "Billing Desk"},
		{"general question", "General Support", "Customer Care"},
	}
	for _, tc := range cases {
		routing := Route(tc.text)
		if routing.Department != tc.department || routing.Service != tc.service {
			t.Errorf("Route(%q) = %+v, want {%s %s}", tc.text, routing, tc.department, tc.service)
		}
	}
}
