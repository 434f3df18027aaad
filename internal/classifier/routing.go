package classifier

import "strings"

// Routing is the department and sub-service assignment for a ticket. It is
// independent of the priority table and used only for routing.
type Routing struct {
	Department string
	Service    string
}

type routingRule struct {
	keywords   []string
	department string
	service    string
}

var routingRules = []routingRule{
	{
		keywords:   []string{"login", "password", "access", "vpn", "network", "software", "hardware", "computer"},
		department: "IT",
		service:    "IT Helpdesk",
	},
	{
		keywords:   []string{"payroll", "leave", "vacation", "benefits", "onboarding", "hr"},
		department: "HR",
		service:    "Employee Services",
	},
	{
		keywords:   []string{"billing", "payment", "charge", "invoice", "refund", "expense"},
		department: "Finance",
		service:    "Billing Desk",
	},
}

var defaultRouting = Routing{
	Department: "General Support",
	Service:    "Customer Care",
}

// Route picks the department and sub-service for a problem statement. The
// first matching rule wins.
func Route(text string) Routing {
	lower := strings.ToLower(text)
	for _, r := range routingRules {
		if containsAny(lower, r.keywords) {
			return Routing{Department: r.department, Service: r.service}
		}
	}
	return defaultRouting
}
